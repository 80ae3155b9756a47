// Package ffmpeg builds argument vectors for the ffmpeg binary and
// parses its diagnostic output. It never spawns processes itself; the
// process package owns execution.
package ffmpeg

import (
	"fmt"
	"os/exec"
	"strings"
)

// DefaultBinary is the ffmpeg executable resolved via PATH unless a
// path is configured.
const DefaultBinary = "ffmpeg"

// Available reports whether the given ffmpeg binary can be invoked.
// Capability probe only; no stream side effects.
func Available(path string) bool {
	if path == "" {
		path = DefaultBinary
	}
	_, err := exec.LookPath(path)
	return err == nil
}

// Version runs the binary once and returns its version banner line,
// e.g. "ffmpeg version 6.1.1 ...".
func Version(path string) (string, error) {
	if path == "" {
		path = DefaultBinary
	}
	out, err := exec.Command(path, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("probing %s: %w", path, err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}
