// Package logging holds the process-wide slog logger shared by frame and its
// sub-packages.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// LevelTrace is the level below [slog.LevelDebug] used for verbose
// diagnostic-bridge messages.
const LevelTrace = slog.Level(-8)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// NewNop creates a logger that silently discards all output.
func NewNop() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(NewNop())
}

// Set stores l as the active logger. A nil logger restores silence.
func Set(l *slog.Logger) {
	if l == nil {
		l = NewNop()
	}
	loggerPtr.Store(l)
}

// Logger returns the active logger. It never returns nil.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// Trace logs msg at [LevelTrace].
func Trace(msg string, args ...any) {
	Logger().Log(context.Background(), LevelTrace, msg, args...)
}

// SpdLevel converts a spdlog-style numeric level (0 trace .. 6 off) into a
// slog level. ok is false for values outside that range, including -1.
func SpdLevel(n int) (level slog.Level, ok bool) {
	switch n {
	case 0:
		return LevelTrace, true
	case 1:
		return slog.LevelDebug, true
	case 2:
		return slog.LevelInfo, true
	case 3:
		return slog.LevelWarn, true
	case 4:
		return slog.LevelError, true
	case 5:
		return slog.LevelError + 4, true
	case 6:
		return slog.Level(1 << 10), true
	}
	return 0, false
}

// LevelName returns the spdlog name for a numeric level.
func LevelName(n int) string {
	names := [...]string{"trace", "debug", "info", "warning", "error", "critical", "off"}
	if n < 0 || n >= len(names) {
		return "unknown"
	}
	return names[n]
}
