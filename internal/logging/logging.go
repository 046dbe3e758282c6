// Package logging initializes the process-wide structured logger, the way
// the teacher's globals.InitLogger does for NMSlite.
package logging

import (
	"log/slog"
	"os"

	"github.com/nmslite/clusterguard/internal/config"
)

// Init builds a slog.Logger from cfg and installs it as the slog default.
func Init(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
