package app

import (
	"io"
	"log/slog"
)

// newLogger builds the logger of one App from its configured level and
// format. It never touches the global logger. An empty or unknown level
// logs at info.
func newLogger(cfg *Config, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(outW, opts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(outW, opts)
	}
	return slog.New(handler)
}
