// Package logger provides the structured logger shared by the converter,
// the media sideloader, the HTTP server and the CLI.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(newLogger(Options{}))
}

// Options configures the logger.
type Options struct {
	Debug  bool         // Enable debug level logging
	Quiet  bool         // Only show errors
	JSON   bool         // Output as JSON
	Level  string       // Explicit level name, overrides Debug and Quiet
	Output io.Writer    // Output destination (default: stderr)
	Logger *slog.Logger // Custom logger (overrides all other options)
}

// Init replaces the package logger. An invalid Level is reported and the
// logger falls back to the Debug/Quiet flags.
func Init(opts Options) error {
	if opts.Logger != nil {
		current.Store(opts.Logger)
		return nil
	}

	var err error
	if opts.Level != "" {
		if _, err = ParseLevel(opts.Level); err != nil {
			opts.Level = ""
		}
	}
	current.Store(newLogger(opts))
	return err
}

// SetLogger installs l as the package logger so htmlblocks logs through an
// embedding application's handler.
func SetLogger(l *slog.Logger) {
	if l != nil {
		current.Store(l)
	}
}

// Default returns the package logger.
func Default() *slog.Logger {
	return current.Load()
}

// ParseLevel converts debug, info, warn/warning or error to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

func newLogger(opts Options) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case opts.Level != "":
		level, _ = ParseLevel(opts.Level)
	case opts.Quiet:
		level = slog.LevelError
	case opts.Debug:
		level = slog.LevelDebug
	}

	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(output, handlerOpts)
	}
	return slog.New(handler)
}

// Component returns a logger that tags every record with component=name.
func Component(name string) *slog.Logger {
	return current.Load().With("component", name)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return current.Load().With(args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) { current.Load().Debug(msg, args...) }

// Info logs an info message.
func Info(msg string, args ...any) { current.Load().Info(msg, args...) }

// Warn logs a warning message.
func Warn(msg string, args ...any) { current.Load().Warn(msg, args...) }

// Error logs an error message.
func Error(msg string, args ...any) { current.Load().Error(msg, args...) }

// DebugContext logs a debug message with context.
func DebugContext(ctx context.Context, msg string, args ...any) {
	current.Load().DebugContext(ctx, msg, args...)
}

// InfoContext logs an info message with context.
func InfoContext(ctx context.Context, msg string, args ...any) {
	current.Load().InfoContext(ctx, msg, args...)
}

// WarnContext logs a warning message with context.
func WarnContext(ctx context.Context, msg string, args ...any) {
	current.Load().WarnContext(ctx, msg, args...)
}

// ErrorContext logs an error message with context.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	current.Load().ErrorContext(ctx, msg, args...)
}
