package streams

import (
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/ffmpeg"
)

// StreamConfig describes how a source is pushed to its ingest. All
// fields are optional except RTMPURL; zero values mean passthrough or
// defaults. The config is immutable once a stream is started and is
// retained for relaunches.
type StreamConfig struct {
	// Loop plays the source indefinitely. LoopCount plays it exactly N
	// times; -1 is an explicit infinite sentinel. Loop wins when both
	// are set.
	Loop      bool `toml:"loop" json:"loop"`
	LoopCount int  `toml:"loop_count" json:"loop_count"`

	// StartTime and EndTime trim the source, in seconds. The end trim
	// is ignored while looping; the loop mechanics enforce clip length.
	StartTime float64 `toml:"start_time" json:"start_time"`
	EndTime   float64 `toml:"end_time" json:"end_time"`

	// Duration caps the total output, in minutes, regardless of loops.
	Duration float64 `toml:"duration" json:"duration"`

	// Resolution: source, 1080p, 720p, 480p.
	Resolution string `toml:"resolution" json:"resolution"`
	// AspectRatio: source, 16:9, 9:16, 1:1, 4:3.
	AspectRatio string `toml:"aspect_ratio" json:"aspect_ratio"`
	// FrameRate is a number or "source".
	FrameRate string `toml:"frame_rate" json:"frame_rate"`
	// Bitrate in kbps, or "auto" for the default.
	Bitrate string `toml:"bitrate" json:"bitrate"`

	// RTMPURL is the ingest base; StreamKey is appended as an extra
	// path segment when set.
	RTMPURL   string `toml:"rtmp_url" json:"rtmp_url"`
	StreamKey string `toml:"stream_key" json:"stream_key"`
}

// ClipSeconds returns the trim window length in seconds, or 0 when the
// window is absent or inverted. Loop counting needs a positive window.
func (c StreamConfig) ClipSeconds() float64 {
	if c.EndTime > c.StartTime {
		return c.EndTime - c.StartTime
	}
	return 0
}

// params maps the config onto builder parameters for one source.
func (c StreamConfig) params(source string) ffmpeg.Params {
	return ffmpeg.Params{
		Source:      source,
		Loop:        c.Loop,
		LoopCount:   c.LoopCount,
		StartTime:   c.StartTime,
		EndTime:     c.EndTime,
		Duration:    c.Duration,
		Resolution:  c.Resolution,
		AspectRatio: c.AspectRatio,
		FrameRate:   c.FrameRate,
		Bitrate:     c.Bitrate,
		RTMPURL:     c.RTMPURL,
		StreamKey:   c.StreamKey,
	}
}

// BuildArgs returns the full push argument vector for a source under
// this config. The supervisor builds once at start; the args command
// uses it to show operators the exact invocation.
func BuildArgs(source string, config StreamConfig) ([]string, error) {
	return ffmpeg.BuildPushArgs(config.params(source))
}
