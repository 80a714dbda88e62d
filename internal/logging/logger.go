// Package logging defines the structured-logging interface used across the
// client. Implementations wrap slog or zerolog; components only ever see Logger.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "request sent", "method", method, "path", path)
type Logger interface {
	// Debug logs verbose diagnostics (token rotation, retries).
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// New builds a Logger writing to w.
//
// level is one of "debug", "info", "warn", "error" (default "info").
// format is "text" or "json" for slog, or "zerolog" for a zerolog JSON writer.
func New(level, format string, w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}

	if strings.EqualFold(format, "zerolog") {
		zl := zerolog.New(w).With().Timestamp().Logger().Level(zerologLevel(level))
		return NewZerologLogger(zl)
	}

	opts := &slog.HandlerOptions{Level: slogLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return NewSlogLogger(slog.New(handler))
}

// Nop returns a Logger that discards everything. Library constructors use it
// when no logger is supplied.
func Nop() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func slogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func zerologLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
