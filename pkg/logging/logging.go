package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matlukowski/readTube-sub000/pkg/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the standard logrus logger from cfg and returns the
// rotating file writer, if any, so the caller can close it on shutdown.
func Setup(cfg config.LoggingConfig) (io.Closer, error) {
	logger := logrus.StandardLogger()
	closer, err := Configure(logger, cfg)
	if err != nil {
		return nil, err
	}
	return closer, nil
}

// Configure applies cfg to logger.
func Configure(logger *logrus.Logger, cfg config.LoggingConfig) (io.Closer, error) {
	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	default:
		return nil, fmt.Errorf("invalid log format %q: want text or json", cfg.Format)
	}

	var rotating *lumberjack.Logger
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	case "file", "both":
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotating = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		if strings.EqualFold(cfg.Output, "both") {
			logger.SetOutput(io.MultiWriter(os.Stdout, rotating))
		} else {
			logger.SetOutput(rotating)
		}
	default:
		return nil, fmt.Errorf("invalid log output %q: want stdout, stderr, file or both", cfg.Output)
	}

	if rotating == nil {
		return nopCloser{}, nil
	}
	return rotating, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Discard returns a logger that drops everything. Handy for tests and CLI
// commands that print their own output.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
