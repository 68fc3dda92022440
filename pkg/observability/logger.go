// Package observability configures structured logging and the Prometheus
// metrics the analysis pipeline exposes.
package observability

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds an slog.Logger writing to w. Level is one of debug,
// info, warn or error; format is "text" or "json". Unknown values fall back
// to info and text.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
