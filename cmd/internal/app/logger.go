package app

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log output formats accepted by DESK_LOG_FORMAT.
const (
	LogFormatJSON   = "json"
	LogFormatText   = "text"
	LogFormatPretty = "pretty"
)

// Logger is the app-wide logger type (slog).
type Logger = *slog.Logger

// NewLogger creates a structured logger on stdout and installs it as slog's default.
func NewLogger(level, format string) *slog.Logger {
	log := NewLoggerTo(os.Stdout, level, format)
	slog.SetDefault(log)
	return log
}

// NewLoggerTo creates a structured logger writing to w.
// Unknown formats fall back to JSON.
func NewLoggerTo(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(level),
		AddSource: true,
	}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case LogFormatText:
		h = slog.NewTextHandler(w, opts)
	case LogFormatPretty:
		h = newPrettyHandler(w, opts, EnvBool("DESK_LOG_COLOR", false))
	default:
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

func parseLogLevel(level string) slog.Level {
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
