// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogSizeMB  = 5
	maxLogBackups = 5
	maxLogAgeDays = 14
)

// Init builds a logger writing to console and, when cfg.File is set, to a
// rotated log file as well. The logger becomes the slog default.
func Init(cfg config.LoggingConfig, console io.Writer) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if console == nil {
		console = os.Stderr
	}

	logPath := strings.TrimSpace(cfg.File)
	if logPath == "" {
		logger := slog.New(newHandler(cfg.Format, console, opts))
		slog.SetDefault(logger)
		return logger, nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		logger := slog.New(newHandler(cfg.Format, console, opts))
		slog.SetDefault(logger)
		return logger, nopCloser{}, err
	}

	file := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
		Compress:   true,
	}

	logger := slog.New(newHandler(cfg.Format, io.MultiWriter(console, file), opts))
	slog.SetDefault(logger)
	return logger, file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func newHandler(format string, out io.Writer, opts *slog.HandlerOptions) slog.Handler {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return slog.NewJSONHandler(out, opts)
	default:
		return slog.NewTextHandler(out, opts)
	}
}
