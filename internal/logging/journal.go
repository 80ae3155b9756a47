package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

const syslogIdentifier = "livestreamrepeater"

// journalHandler forwards records to systemd-journald with native
// priorities, so journalctl -p filtering works as expected. Attributes
// become uppercased journal fields (stream_id turns into STREAM_ID).
type journalHandler struct {
	level slog.Leveler
	// fields holds attrs accumulated through With, already flattened
	// and qualified with the group path active when they were added.
	fields map[string]string
	prefix string
}

// newJournalHandler wraps level, which may be a *slog.LevelVar so
// runtime level changes take effect.
func newJournalHandler(level slog.Leveler) *journalHandler {
	return &journalHandler{level: level}
}

func (h *journalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *journalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]string, len(h.fields)+r.NumAttrs()+1)
	fields["SYSLOG_IDENTIFIER"] = syslogIdentifier
	for k, v := range h.fields {
		fields[k] = v
	}
	r.Attrs(func(attr slog.Attr) bool {
		flattenAttr(fields, attr, h.prefix)
		return true
	})

	// journal.Send fills in MESSAGE and PRIORITY itself.
	if err := journal.Send(r.Message, priority(r.Level), fields); err != nil {
		// Keep the record visible somewhere when journald rejects it.
		fmt.Fprintf(os.Stderr, "journal send failed: %v\n", err)
		return err
	}
	return nil
}

func (h *journalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make(map[string]string, len(h.fields)+len(attrs))
	for k, v := range h.fields {
		fields[k] = v
	}
	for _, attr := range attrs {
		flattenAttr(fields, attr, h.prefix)
	}
	return &journalHandler{level: h.level, fields: fields, prefix: h.prefix}
}

func (h *journalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &journalHandler{
		level:  h.level,
		fields: h.fields,
		prefix: h.prefix + strings.ToUpper(name) + "_",
	}
}

// flattenAttr writes attr into fields under prefix, recursing into
// groups. Empty attrs are dropped the way slog's own handlers drop
// them.
func flattenAttr(fields map[string]string, attr slog.Attr, prefix string) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	v := attr.Value.Resolve()
	key := prefix + strings.ToUpper(attr.Key)
	if v.Kind() == slog.KindGroup {
		for _, a := range v.Group() {
			flattenAttr(fields, a, key+"_")
		}
		return
	}
	fields[key] = formatValue(v)
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	default:
		return v.String()
	}
}

// priority maps slog levels onto journal priorities.
func priority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// journalAvailable reports whether journald is accepting messages.
func journalAvailable() bool {
	return journal.Enabled()
}
