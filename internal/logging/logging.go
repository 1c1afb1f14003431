package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/RobsonDevCode/metascan/internal/configuration"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the diagnostic logger. Console output of scan reports does not
// go through it; it carries request and poll traces only.
// The returned closer releases the rotating log file, if one was configured.
func New(settings configuration.LoggingSettings, verbose bool) (*slog.Logger, io.Closer) {
	level := ParseLevel(settings.Level)
	if verbose {
		level = slog.LevelDebug
	}

	writer, closer := buildWriter(settings)
	return slog.New(buildHandler(writer, level, settings.Format)), closer
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ParseLevel converts a string to slog.Level, defaulting to Warn.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func buildWriter(settings configuration.LoggingSettings) (io.Writer, io.Closer) {
	if settings.FilePath == "" {
		return os.Stderr, nil
	}

	maxSize := settings.FileMaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	maxFiles := settings.FileMaxFiles
	if maxFiles <= 0 {
		maxFiles = 3
	}
	maxAge := settings.FileMaxAgeDays
	if maxAge <= 0 {
		maxAge = 30
	}

	lj := &lumberjack.Logger{
		Filename:   settings.FilePath,
		MaxSize:    maxSize,
		MaxBackups: maxFiles,
		MaxAge:     maxAge,
	}

	return lj, lj
}

func buildHandler(w io.Writer, level slog.Leveler, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
