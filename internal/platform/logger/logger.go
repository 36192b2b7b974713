package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/medforge/cardgen/internal/config"
)

// Setup initializes the application's logging system from configuration.
// It creates a structured JSON logger at the configured level, installs it
// as the process default, and returns it so callers can attach component
// attributes.
func Setup(cfg config.LogConfig) (*slog.Logger, error) {
	return setupWithWriter(cfg, os.Stdout), nil
}

// setupWithWriter is Setup with an injectable output, for tests.
func setupWithWriter(cfg config.LogConfig, out io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo

		// Warn about the bad value on a throwaway text logger so the
		// message is visible before the real handler exists.
		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", cfg.Level,
			"default_level", "info")
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
