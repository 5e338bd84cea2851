package cli

import (
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

func newLogger(w io.Writer, level string, fallback slog.Level, jsonFormat bool) *slog.Logger {
	slogLevel := fallback
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: slogLevel}
	if jsonFormat {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// serverLogOutput returns a rotating file when path is set, else stdout.
func serverLogOutput(path string, stdout io.Writer) io.Writer {
	if path == "" {
		return stdout
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		LocalTime:  true,
	}
}
