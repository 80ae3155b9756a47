package ffmpeg

import "testing"

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		line      string
		wantLevel string
		wantMsg   string
	}{
		{"[info] Opening 'rtmp://x/live' for writing", "info", "Opening 'rtmp://x/live' for writing"},
		{"[error] Connection refused", "error", "Connection refused"},
		{"[warning] deprecated pixel format", "warning", "deprecated pixel format"},
		{"[flv @ 0x5586] [error] Failed to update header", "error", "[flv @ 0x5586] Failed to update header"},
		{"[libx264 @ 0x5586] [info] using cpu capabilities", "info", "[libx264 @ 0x5586] using cpu capabilities"},
		{"plain line without brackets", "info", "plain line without brackets"},
		{"[notalevel] something", "info", "[notalevel] something"},
		{"", "info", ""},
	}

	for _, tt := range tests {
		level, msg := ParseLogLevel(tt.line)
		if level != tt.wantLevel {
			t.Errorf("ParseLogLevel(%q) level = %q, want %q", tt.line, level, tt.wantLevel)
		}
		if msg != tt.wantMsg {
			t.Errorf("ParseLogLevel(%q) msg = %q, want %q", tt.line, msg, tt.wantMsg)
		}
	}
}
