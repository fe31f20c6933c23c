// Package logging builds the process logger from the infra config section.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"toolbroker/internal/domain"
)

// ParseLevel maps a config level name to slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// New returns a logger writing to w in the configured format ("json" or text).
func New(infra domain.InfraConfig, w io.Writer) *slog.Logger {
	logger, _ := NewLeveled(infra, w)
	return logger
}

// NewLeveled is New with the level held in a LevelVar, so a config reload can
// change it on the running logger.
func NewLeveled(infra domain.InfraConfig, w io.Writer) (*slog.Logger, *slog.LevelVar) {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(infra.LogLevel))
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(infra.LogFormat, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), level
}
