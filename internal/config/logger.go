package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerConfig struct {
	Level      string `koanf:"level"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// NewLogger builds a JSON logger on stdout. When File is set the same
// records also go to a size-rotated file.
func (c LoggerConfig) NewLogger() *slog.Logger {
	var out io.Writer = os.Stdout
	if c.File != "" {
		rot := &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    orDefault(c.MaxSizeMB, 50),
			MaxBackups: orDefault(c.MaxBackups, 3),
			MaxAge:     orDefault(c.MaxAgeDays, 7),
		}
		out = io.MultiWriter(os.Stdout, rot)
	}

	h := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: c.level()})
	return slog.New(h).With("service", "billing")
}

func (c LoggerConfig) level() slog.Level {
	switch strings.ToLower(c.Level) {
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

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
