package frame

import (
	"log/slog"

	"github.com/gogpu/frame/internal/logging"
)

// LevelTrace is the level below debug used for verbose diagnostics.
const LevelTrace = logging.LevelTrace

// SetLogger configures the logger for frame and all its sub-packages.
// By default, frame produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by frame:
//   - [LevelTrace]: verbose diagnostic messages from the backend
//   - [slog.LevelDebug]: negotiation details, device lifecycle
//   - [slog.LevelInfo]: startup banner, command line, backend version
//   - [slog.LevelWarn]: backend warnings, skipped manifests
//   - [slog.LevelError]: validation errors, setup failures
//
// Example:
//
//	frame.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger used by frame.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
