package testutil

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// LogRecord is one captured record with its attributes flattened. Grouped
// attributes are keyed "group.name".
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// BufferedSlogHandler records everything logged through it and through the
// loggers derived from it with With and WithGroup.
type BufferedSlogHandler struct {
	log   *recordLog
	attrs map[string]any
	group string
}

type recordLog struct {
	mu      sync.Mutex
	t       *testing.T
	records []LogRecord
}

// NewTestLogger returns a debug level logger and the handler capturing its
// records. Records are echoed to t.Log.
func NewTestLogger(t *testing.T) (*slog.Logger, *BufferedSlogHandler) {
	h := &BufferedSlogHandler{log: &recordLog{t: t}}
	return slog.New(h), h
}

func (h *BufferedSlogHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *BufferedSlogHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for k, v := range h.attrs {
		attrs[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.key(a.Key)] = a.Value.Any()
		return true
	})

	h.log.mu.Lock()
	defer h.log.mu.Unlock()
	h.log.records = append(h.log.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	if h.log.t != nil {
		h.log.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

func (h *BufferedSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make(map[string]any, len(h.attrs)+len(attrs))
	for k, v := range h.attrs {
		merged[k] = v
	}
	for _, a := range attrs {
		merged[h.key(a.Key)] = a.Value.Any()
	}
	return &BufferedSlogHandler{log: h.log, attrs: merged, group: h.group}
}

func (h *BufferedSlogHandler) WithGroup(name string) slog.Handler {
	return &BufferedSlogHandler{log: h.log, attrs: h.attrs, group: h.key(name)}
}

func (h *BufferedSlogHandler) key(name string) string {
	if h.group == "" {
		return name
	}
	return h.group + "." + name
}

// Records returns a copy of the captured records, optionally filtered to
// the given levels.
func (h *BufferedSlogHandler) Records(levels ...slog.Level) []LogRecord {
	h.log.mu.Lock()
	defer h.log.mu.Unlock()

	out := make([]LogRecord, 0, len(h.log.records))
	for _, r := range h.log.records {
		if len(levels) == 0 || containsLevel(levels, r.Level) {
			out = append(out, r)
		}
	}
	return out
}

func containsLevel(levels []slog.Level, l slog.Level) bool {
	for _, level := range levels {
		if level == l {
			return true
		}
	}
	return false
}

// ContainsAttr reports whether any record carries key=value.
func (h *BufferedSlogHandler) ContainsAttr(key string, value any) bool {
	for _, r := range h.Records() {
		if v, ok := r.Attrs[key]; ok && reflect.DeepEqual(v, value) {
			return true
		}
	}
	return false
}

// Count returns the number of captured records.
func (h *BufferedSlogHandler) Count() int {
	h.log.mu.Lock()
	defer h.log.mu.Unlock()
	return len(h.log.records)
}

// Clear drops the captured records.
func (h *BufferedSlogHandler) Clear() {
	h.log.mu.Lock()
	defer h.log.mu.Unlock()
	h.log.records = nil
}

// AssertLogContains fails t unless a record at level has a message
// containing message.
func AssertLogContains(t *testing.T, h *BufferedSlogHandler, level slog.Level, message string) bool {
	t.Helper()
	records := h.Records(level)
	for _, r := range records {
		if strings.Contains(r.Message, message) {
			return true
		}
	}
	return assert.Failf(t, "log message not found", "no %s record containing %q in %v", level, message, messages(records))
}

// AssertLogAttr fails t unless some record carries key=value.
func AssertLogAttr(t *testing.T, h *BufferedSlogHandler, key string, value any) bool {
	t.Helper()
	if h.ContainsAttr(key, value) {
		return true
	}
	return assert.Failf(t, "log attribute not found", "no record with %s=%v in %v", key, value, h.Records())
}

// AssertNoErrors fails t if anything was logged at error level.
func AssertNoErrors(t *testing.T, h *BufferedSlogHandler) bool {
	t.Helper()
	errs := h.Records(slog.LevelError)
	return assert.Empty(t, errs, "unexpected error logs: %v", messages(errs))
}

func messages(records []LogRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Message
	}
	return out
}
