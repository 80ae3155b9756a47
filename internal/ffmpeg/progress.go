package ffmpeg

import (
	"fmt"
	"regexp"
	"strconv"
)

// ffmpeg stats lines look like:
//
//	frame= 1234 fps= 30 q=28.0 size=    512KiB time=00:01:30.04 bitrate=2544.1kbits/s speed=1.01x
var (
	timePattern  = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2})`)
	fpsPattern   = regexp.MustCompile(`fps=\s*([\d.]+)`)
	speedPattern = regexp.MustCompile(`speed=\s*([\d.]+)x`)
)

// Progress is one observation extracted from a stats chunk.
type Progress struct {
	// Clock is the elapsed time normalized to HH:MM:SS.
	Clock   string
	Seconds float64

	// FPS and Speed are 0 when the chunk does not carry them.
	FPS   float64
	Speed float64
}

// ParseProgress extracts the elapsed-time marker from a chunk of ffmpeg
// diagnostic output. Chunks may interleave unrelated log lines or carry
// several stats updates; the last time marker wins. Returns false when
// the chunk has no marker, which is the common case and not an error.
func ParseProgress(chunk string) (Progress, bool) {
	matches := timePattern.FindAllStringSubmatch(chunk, -1)
	if len(matches) == 0 {
		return Progress{}, false
	}

	m := matches[len(matches)-1]
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])

	p := Progress{
		Clock:   fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
		Seconds: float64(hours*3600 + minutes*60 + seconds),
	}

	if fm := fpsPattern.FindAllStringSubmatch(chunk, -1); len(fm) > 0 {
		p.FPS, _ = strconv.ParseFloat(fm[len(fm)-1][1], 64)
	}
	if sm := speedPattern.FindAllStringSubmatch(chunk, -1); len(sm) > 0 {
		p.Speed, _ = strconv.ParseFloat(sm[len(sm)-1][1], 64)
	}

	return p, true
}

// LoopCount derives how many times the clip has played from the elapsed
// time. The first play is loop 1. Returns 0 when the clip window is
// unknown or not positive.
func LoopCount(elapsedSeconds, clipSeconds float64) int {
	if clipSeconds <= 0 {
		return 0
	}
	return int(elapsedSeconds/clipSeconds) + 1
}
