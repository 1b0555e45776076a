// Package logging configures structured logging with slog.
//
// Text output is colored with tint; JSON output uses the standard slog
// handler for log shippers.
//
// Usage:
//
//	logging.SetupWithOptions("debug", "json", os.Stderr)
//
// Levels: debug, info, warn, error (default: info).
// Formats: text, json (default: text).
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// SetupWithOptions installs a default logger with the given level and format.
func SetupWithOptions(level, format string, w io.Writer) *slog.Logger {
	logger := slog.New(NewHandler(ParseLevel(level), format, w))
	slog.SetDefault(logger)
	return logger
}

// NewHandler returns a tint handler for "text" and a JSON handler for "json".
func NewHandler(level slog.Level, format string, w io.Writer) slog.Handler {
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	})
}

// ParseLevel maps a level name to slog.Level, defaulting to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
