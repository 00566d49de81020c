package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
)

// ConfigureLogger sets the default slog logger from the resolved Config,
// adapted from the teacher's utils.ConfigureDefaultLogger: "none" disables
// logging entirely, any other level selects a slog.Level, and a non-empty
// LogFile switches from a stdout text handler to a JSON handler writing to
// that file. The returned *os.File is nil unless a log file was opened, so
// callers can defer its Close only when there's something to close.
func ConfigureLogger(c Config) (*os.File, error) {
	if c.LogLevel == "none" {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	}

	var level slog.Level
	switch c.LogLevel {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	default:
		return nil, errors.New("config: unexpected log level " + c.LogLevel)
	}

	opts := &slog.HandlerOptions{Level: level}

	if c.LogFile == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, opts)))
		return nil, nil
	}

	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, opts)))
	return f, nil
}
