package leosim

// logging.go provides a small structured-logging seam used for setup
// warnings and per-packet debug traces. log/slog is the standard
// library's structured logger; it replaces the bespoke fmt.Printf
// warnings an older codebase would reach for.

import (
	"log/slog"
	"os"
)

// Logger is the narrow logging surface the simulation core needs. It is a
// field of Simulation rather than a package-level global, so a process
// can run more than one Simulation with independent logging.
type Logger struct {
	l *slog.Logger
}

// NewLogger builds a Logger that writes text-formatted records of warning
// level and above to standard error. A nil
// Logger is valid and silently discards everything (useful for tests that
// don't care about log output).
func NewLogger() *Logger {
	return &Logger{l: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))}
}

// NewDebugLogger is the same as NewLogger but emits debug-level records
// too, including the per-packet NoRoute/LinkInactive traces.
func NewDebugLogger() *Logger {
	return &Logger{l: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))}
}

func (lg *Logger) Warn(msg string, args ...any) {
	if lg == nil || lg.l == nil {
		return
	}
	lg.l.Warn(msg, args...)
}

func (lg *Logger) Debug(msg string, args ...any) {
	if lg == nil || lg.l == nil {
		return
	}
	lg.l.Debug(msg, args...)
}

func (lg *Logger) Info(msg string, args ...any) {
	if lg == nil || lg.l == nil {
		return
	}
	lg.l.Info(msg, args...)
}
