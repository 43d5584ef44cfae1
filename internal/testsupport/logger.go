package testsupport

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// LogRecord is one captured log entry with its attributes flattened.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// LogCapture collects records written through CaptureLogger.
type LogCapture struct {
	mu      sync.Mutex
	records []LogRecord
}

// CaptureLogger returns a debug-level logger that records every entry.
func CaptureLogger() (*slog.Logger, *LogCapture) {
	capture := &LogCapture{}
	return slog.New(&captureHandler{capture: capture}), capture
}

// Records returns a snapshot of the captured entries.
func (c *LogCapture) Records() []LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LogRecord(nil), c.records...)
}

// Find returns the first record at level or above whose message contains msg.
func (c *LogCapture) Find(level slog.Level, msg string) (LogRecord, bool) {
	for _, rec := range c.Records() {
		if rec.Level >= level && strings.Contains(rec.Message, msg) {
			return rec, true
		}
	}
	return LogRecord{}, false
}

type captureHandler struct {
	capture *LogCapture
	attrs   []slog.Attr
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]string, len(h.attrs)+record.NumAttrs())
	for _, attr := range h.attrs {
		attrs[attr.Key] = attr.Value.Resolve().String()
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.Resolve().String()
		return true
	})
	h.capture.mu.Lock()
	h.capture.records = append(h.capture.records, LogRecord{Level: record.Level, Message: record.Message, Attrs: attrs})
	h.capture.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &captureHandler{capture: h.capture, attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }
