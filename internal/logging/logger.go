package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger is the subset of *slog.Logger the rest of the code depends
// on. Components accept this interface so tests can hand in silent
// loggers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config selects the output level and format. A module listed in
// Modules runs at its own level instead of the global one.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

// reg tracks every module logger handed out so far. Each logger owns a
// LevelVar shared with its handler, which lets Initialize retune levels
// on loggers that were created before configuration was loaded.
var reg = struct {
	sync.RWMutex
	loggers map[string]*slog.Logger
	levels  map[string]*slog.LevelVar
	cfg     Config
	ready   bool
}{
	loggers: make(map[string]*slog.Logger),
	levels:  make(map[string]*slog.LevelVar),
}

var globalLevel = new(slog.LevelVar)

// Initialize applies the configuration. Loggers created earlier pick
// up their new level through the shared level vars and are rebuilt so
// a format change applies to them as well.
func Initialize(cfg Config) {
	reg.Lock()
	defer reg.Unlock()

	reg.cfg = cfg
	reg.ready = true
	globalLevel.Set(levelFor(cfg, ""))

	for module, lv := range reg.levels {
		lv.Set(levelFor(cfg, module))
		reg.loggers[module] = slog.New(buildHandler(cfg.Format, lv)).With("module", module)
	}

	slog.SetDefault(slog.New(buildHandler(cfg.Format, globalLevel)))
}

// GetLogger returns the logger for a module, creating it on first use.
// Safe to call before Initialize; such loggers start at info level and
// are retuned once Initialize runs.
func GetLogger(module string) *slog.Logger {
	reg.RLock()
	if l, ok := reg.loggers[module]; ok {
		reg.RUnlock()
		return l
	}
	reg.RUnlock()

	reg.Lock()
	defer reg.Unlock()

	// Another goroutine may have won the race between the locks.
	if l, ok := reg.loggers[module]; ok {
		return l
	}

	lv := new(slog.LevelVar)
	format := "text"
	if reg.ready {
		lv.Set(levelFor(reg.cfg, module))
		format = reg.cfg.Format
	} else {
		lv.Set(slog.LevelInfo)
	}

	l := slog.New(buildHandler(format, lv)).With("module", module)
	reg.loggers[module] = l
	reg.levels[module] = lv
	return l
}

// levelFor resolves the effective level for a module: the module
// override when present and valid, the global level otherwise, info as
// the last resort. An empty module name resolves the global level.
func levelFor(cfg Config, module string) slog.Level {
	level := slog.LevelInfo
	if l, ok := parseLevel(cfg.Level); ok {
		level = l
	}
	if module == "" {
		return level
	}
	if override, ok := cfg.Modules[module]; ok {
		if l, ok := parseLevel(override); ok {
			level = l
		}
	}
	return level
}

// buildHandler assembles the output chain for one level var. Records
// go to stderr in the chosen format and to the systemd journal when
// the process runs under one.
func buildHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	var console slog.Handler
	if format == "json" {
		console = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		console = slog.NewTextHandler(os.Stderr, opts)
	}

	var chain []slog.Handler
	if consoleUsable() {
		chain = append(chain, console)
	}
	if journalAvailable() {
		chain = append(chain, newJournalHandler(level))
	}

	switch len(chain) {
	case 0:
		// Nowhere sensible to write; keep the console handler so log
		// calls stay harmless no-ops on a broken stderr.
		return console
	case 1:
		return chain[0]
	default:
		return newFanout(chain...)
	}
}

// consoleUsable reports whether stderr points at a terminal, pipe,
// socket, or regular file.
func consoleUsable() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	m := fi.Mode()
	return m&os.ModeCharDevice != 0 || m&os.ModeNamedPipe != 0 || m&os.ModeSocket != 0 || m.IsRegular()
}

// parseLevel converts a config string to a slog level. The second
// return is false for unknown names.
func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
