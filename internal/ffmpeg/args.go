package ffmpeg

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Fixed encoding chain for low-latency RTMP push. The supervisor restarts
// processes freely, so encoder settings favor fast startup over quality.
const (
	videoCodec  = "libx264"
	videoPreset = "veryfast"
	videoTune   = "zerolatency"

	audioCodec      = "aac"
	audioBitrate    = "128k"
	audioSampleRate = "44100"

	// DefaultBitrateKbps is used when the configured bitrate is "auto",
	// empty, or not a positive number.
	DefaultBitrateKbps = 2500
)

// resolutionScales maps the resolution presets to explicit scale targets.
// Anything else, including "source", means passthrough.
var resolutionScales = map[string]string{
	"1080p": "1920:1080",
	"720p":  "1280:720",
	"480p":  "854:480",
}

// aspectRatios are the recognized display aspect ratio presets.
var aspectRatios = []string{"16:9", "9:16", "1:1", "4:3"}

// Params describes one push invocation. All fields except Source and
// RTMPURL are optional; zero values mean passthrough or defaults.
type Params struct {
	Source string

	// Looping. Loop or LoopCount == -1 requests infinite looping;
	// LoopCount > 1 plays the source exactly LoopCount times.
	Loop      bool
	LoopCount int

	// Clip window in seconds. EndTime is only honored when not looping.
	StartTime float64
	EndTime   float64

	// Duration caps the output in minutes, regardless of loop state.
	Duration float64

	Resolution  string
	AspectRatio string
	FrameRate   string
	Bitrate     string

	RTMPURL   string
	StreamKey string
}

// Looping reports whether any input looping is in effect.
func (p Params) Looping() bool {
	return p.Loop || p.LoopCount == -1 || p.LoopCount > 1
}

// BuildPushArgs builds the ffmpeg argument vector for pushing a source to
// an RTMP ingest. Deterministic: identical params always produce an
// identical vector. Unrecognized enum values degrade to passthrough
// rather than erroring; only a missing source or destination is rejected.
func BuildPushArgs(p Params) ([]string, error) {
	if p.Source == "" {
		return nil, errors.New("source is required")
	}
	if p.RTMPURL == "" {
		return nil, errors.New("rtmp url is required")
	}

	// -re paces reads at native rate so the ingest is not flooded.
	args := []string{"-hide_banner", "-loglevel", "level+info", "-re"}

	infinite := p.Loop || p.LoopCount == -1
	switch {
	case infinite:
		args = append(args, "-stream_loop", "-1")
	case p.LoopCount > 1:
		// -stream_loop counts additional plays, not total plays
		args = append(args, "-stream_loop", strconv.Itoa(p.LoopCount-1))
	}

	if p.StartTime > 0 {
		args = append(args, "-ss", formatSeconds(p.StartTime))
	}

	// Input-side clip cap breaks -stream_loop, so looping always wins.
	// The loop mechanics enforce the clip length instead.
	if !p.Looping() && p.EndTime > p.StartTime {
		args = append(args, "-t", formatSeconds(p.EndTime-p.StartTime))
	}

	args = append(args, "-i", p.Source)

	args = append(args, "-c:v", videoCodec, "-preset", videoPreset, "-tune", videoTune)

	if scale, ok := resolutionScales[p.Resolution]; ok {
		args = append(args, "-vf", "scale="+scale)
	}
	if slices.Contains(aspectRatios, p.AspectRatio) {
		args = append(args, "-aspect", p.AspectRatio)
	}
	if fps := strings.TrimSpace(p.FrameRate); isPositiveNumber(fps) {
		args = append(args, "-r", fps)
	}

	kbps := bitrateKbps(p.Bitrate)
	args = append(args,
		"-b:v", fmt.Sprintf("%dk", kbps),
		"-bufsize", fmt.Sprintf("%dk", kbps*2),
	)

	args = append(args, "-c:a", audioCodec, "-b:a", audioBitrate, "-ar", audioSampleRate)

	if p.Duration > 0 {
		args = append(args, "-t", formatSeconds(p.Duration*60))
	}

	args = append(args, "-f", "flv", Destination(p.RTMPURL, p.StreamKey))
	return args, nil
}

// Destination joins the ingest base URL and the optional stream key.
func Destination(rtmpURL, streamKey string) string {
	dest := strings.TrimSuffix(rtmpURL, "/")
	if streamKey != "" {
		dest += "/" + streamKey
	}
	return dest
}

// bitrateKbps resolves the configured bitrate string to kbps.
// "auto", empty, and unparsable values fall back to the default.
func bitrateKbps(bitrate string) int {
	s := strings.TrimSpace(bitrate)
	if s == "" || strings.EqualFold(s, "auto") {
		return DefaultBitrateKbps
	}
	kbps, err := strconv.Atoi(s)
	if err != nil || kbps <= 0 {
		return DefaultBitrateKbps
	}
	return kbps
}

func isPositiveNumber(s string) bool {
	if s == "" || strings.EqualFold(s, "source") {
		return false
	}
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && v > 0
}

// formatSeconds renders a seconds value without a trailing ".0" for
// whole numbers, which keeps argument vectors stable and readable.
func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
