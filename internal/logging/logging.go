// Package logging builds the structured slog.Logger every binary and
// internal/app thread down through their components.
package logging

import (
	"log/slog"
	"os"
)

// Config selects the logger's level and the static fields every record
// carries.
type Config struct {
	ServiceName string
	Level       string
}

// New returns a JSON-handler logger at cfg.Level (default info), tagged
// with service=cfg.ServiceName. Callers add component=... via With as the
// logger is threaded down to a specific subsystem.
func New(cfg Config) *slog.Logger {
	level := new(slog.LevelVar)
	switch cfg.Level {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("service", cfg.ServiceName))
}
