package ffmpeg

import "strings"

// ParseLogLevel splits the level tag from one line of ffmpeg output.
// With -loglevel level+info every line starts with "[info] " or, for
// component logs, "[flv @ 0x...] [error] ". The component prefix stays
// in the message; lines without a recognizable tag map to "info".
func ParseLogLevel(line string) (level, msg string) {
	tag, rest, ok := splitBracket(line)
	if !ok {
		return "info", line
	}
	if isLogLevel(tag) {
		return tag, rest
	}

	// First bracket is a component name. The level tag, if any, comes
	// right after it.
	if tag2, rest2, ok2 := splitBracket(rest); ok2 && isLogLevel(tag2) {
		return tag2, "[" + tag + "] " + rest2
	}
	return "info", line
}

// splitBracket splits "[tag] rest" into its parts.
func splitBracket(s string) (tag, rest string, ok bool) {
	if len(s) < 3 || s[0] != '[' {
		return "", "", false
	}
	end := strings.Index(s, "] ")
	if end == -1 {
		return "", "", false
	}
	return s[1:end], s[end+2:], true
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}
