// Package logging wires slog to stderr and the systemd journal, with a
// per-module level registry so one noisy area can be turned up or down
// without touching the rest.
//
// Each module fetches its logger once:
//
//	logger := logging.GetLogger("supervisor")
//	logger.Info("Stream started", "stream_id", id)
//
// GetLogger works before Initialize; early loggers start at info and
// follow the configured levels as soon as Initialize runs:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text", // or "json"
//		Modules: map[string]string{
//			"ffmpeg": "warn",
//		},
//	})
//
// # Outputs
//
// Records go to stderr as text or JSON, and to journald with native
// priorities whenever the journal socket is present. With both
// available the record is written to each. Attribute keys become
// uppercased journal fields, which keeps journalctl filtering usable:
//
//	journalctl -t livestreamrepeater -f
//	journalctl -t livestreamrepeater -p err
//	journalctl -t livestreamrepeater MODULE=supervisor
//	journalctl -t livestreamrepeater STREAM_ID=main
//
// # Configuration
//
// In TOML, any key under [logging] besides level and format names a
// module:
//
//	[logging]
//	level = "info"
//	format = "text"
//	supervisor = "debug"
//	ffmpeg = "warn"
package logging
