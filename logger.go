package hwcomp

import (
	"log/slog"

	"github.com/gogpu/hwcomp/internal/logging"
)

// SetLogger configures the logger for hwcomp and all its sub-packages.
// By default, hwcomp produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by hwcomp:
//   - [slog.LevelDebug]: per-frame strategy decisions, pipe binding, rotator remaps
//   - [slog.LevelInfo]: display connect, disconnect and blank
//   - [slog.LevelWarn]: commit rejection, fence timeouts, fallback to GPU
//
// Example:
//
//	hwcomp.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger used by hwcomp.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
