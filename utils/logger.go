package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger provides leveled logging throughout the application.
// Messages are printf-formatted and emitted through a slog handler.
type Logger struct {
	slog *slog.Logger
}

// LoggerOptions configures NewLoggerWithOptions.
type LoggerOptions struct {
	Level  string    // debug, info, warn, error (default info)
	JSON   bool      // emit JSON records instead of text
	Output io.Writer // default stdout
}

// NewLogger creates an info-level Logger writing text to stdout.
func NewLogger() *Logger {
	return NewLoggerWithOptions(LoggerOptions{})
}

// NewLoggerWithOptions creates a Logger from opts.
func NewLoggerWithOptions(opts LoggerOptions) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return &Logger{slog: slog.New(handler)}
}

// NopLogger returns a Logger that discards everything.
func NopLogger() *Logger {
	return NewLoggerWithOptions(LoggerOptions{Output: io.Discard, Level: "error"})
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a Logger that adds the given attributes to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

// Slog exposes the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger { return l.slog }

func (l *Logger) Info(format string, args ...any) { l.log(slog.LevelInfo, format, args...) }

func (l *Logger) Warn(format string, args ...any) { l.log(slog.LevelWarn, format, args...) }

func (l *Logger) Error(format string, args ...any) { l.log(slog.LevelError, format, args...) }

func (l *Logger) Debug(format string, args ...any) { l.log(slog.LevelDebug, format, args...) }

func (l *Logger) log(level slog.Level, format string, args ...any) {
	if l == nil || l.slog == nil {
		return
	}
	ctx := context.Background()
	if !l.slog.Enabled(ctx, level) {
		return
	}
	l.slog.Log(ctx, level, fmt.Sprintf(format, args...))
}
