// Package slogutil provides small factories for the loggers used across
// qastore.
package slogutil

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger creates a text logger writing to w at the given level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewDiscardLogger creates a logger that drops everything. Useful for tests.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LevelFromString converts a string to a slog.Level.
// Supports: debug, info, warn, error (case-insensitive).
// Returns slog.LevelInfo for unrecognized strings.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
