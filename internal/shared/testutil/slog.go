// Package testutil provides test helpers shared across packages,
// currently a capturing slog handler for asserting on log output.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log entry.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// CaptureHandler records every log entry passed through it. Safe for
// concurrent use.
type CaptureHandler struct {
	mu      sync.Mutex
	records []LogRecord
	base    []slog.Attr
}

// NewLogger returns a logger whose output is captured by the returned
// handler.
func NewLogger(t *testing.T) (*slog.Logger, *CaptureHandler) {
	t.Helper()
	h := &CaptureHandler{}
	return slog.New(h), h
}

// Enabled implements slog.Handler; all levels are captured.
func (h *CaptureHandler) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler.
func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.base))
	for _, a := range h.base {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	h.records = append(h.records, LogRecord{
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	h.mu.Unlock()
	return nil
}

// WithAttrs implements slog.Handler. The derived handler shares the
// record buffer so captures from child loggers remain visible.
func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sharedHandler{parent: h, base: append(append([]slog.Attr{}, h.base...), attrs...)}
}

// WithGroup implements slog.Handler. Groups are flattened; tests
// assert on keys, not structure.
func (h *CaptureHandler) WithGroup(string) slog.Handler { return h }

type sharedHandler struct {
	parent *CaptureHandler
	base   []slog.Attr
}

func (s *sharedHandler) Enabled(context.Context, slog.Level) bool { return true }

func (s *sharedHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, a := range s.base {
		r.AddAttrs(a)
	}
	return s.parent.Handle(ctx, r)
}

func (s *sharedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sharedHandler{parent: s.parent, base: append(append([]slog.Attr{}, s.base...), attrs...)}
}

func (s *sharedHandler) WithGroup(string) slog.Handler { return s }

// Records returns a copy of all captured entries.
func (h *CaptureHandler) Records() []LogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]LogRecord, len(h.records))
	copy(out, h.records)
	return out
}

// ContainsMessage reports whether any entry's message contains substr.
func (h *CaptureHandler) ContainsMessage(substr string) bool {
	for _, r := range h.Records() {
		if strings.Contains(r.Message, substr) {
			return true
		}
	}
	return false
}

// ContainsAttr reports whether any entry carries the given attribute.
func (h *CaptureHandler) ContainsAttr(key string, value any) bool {
	for _, r := range h.Records() {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}

// AssertLogged fails the test when no entry at the given level contains
// the message substring.
func AssertLogged(t *testing.T, h *CaptureHandler, level slog.Level, substr string) {
	t.Helper()
	for _, r := range h.Records() {
		if r.Level == level && strings.Contains(r.Message, substr) {
			return
		}
	}
	t.Errorf("no %s log containing %q; captured:", level, substr)
	for _, r := range h.Records() {
		t.Logf("  [%s] %s %v", r.Level, r.Message, r.Attrs)
	}
}
