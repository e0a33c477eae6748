// Package logging provides structured logging utilities using the standard library's log/slog package.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"chunk-summarizer/internal/handler/http/requestid"
)

// Output formats accepted by New.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// NewLogger creates a JSON logger writing to stdout.
// The level is read from LOG_LEVEL (debug, info, warn, error; default info).
func NewLogger() *slog.Logger {
	return New(os.Stdout, FormatJSON, os.Getenv("LOG_LEVEL"))
}

// NewTextLogger creates a human-readable logger writing to stdout.
func NewTextLogger() *slog.Logger {
	return New(os.Stdout, FormatText, os.Getenv("LOG_LEVEL"))
}

// New creates a logger with the given writer, format and level name.
// Unknown formats fall back to JSON and unknown levels to info.
func New(w io.Writer, format, level string) *slog.Logger {
	logLevel := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: logLevel,
		// source location only when debugging
		AddSource: logLevel <= slog.LevelDebug,
	}

	var handler slog.Handler
	if format == FormatText {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a level name to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// WithRequestID returns a new logger that includes the request ID from the context.
func WithRequestID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	reqID := requestid.FromContext(ctx)
	if reqID == "" {
		return logger
	}
	return logger.With("request_id", reqID)
}

// WithSegment returns a logger annotated with a 1-based segment position.
func WithSegment(logger *slog.Logger, index, count int) *slog.Logger {
	return logger.With(
		slog.Int("segment_index", index),
		slog.Int("segment_count", count),
	)
}

// FromContext retrieves the logger from the context, or returns the default logger if not found.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

type contextKey string

const loggerContextKey contextKey = "logger"
