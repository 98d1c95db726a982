// Package logging настраивает глобальный logrus-логгер сервиса.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vladislavdragonenkov/fastfood/internal/config"
)

// Setup применяет уровень, формат и вывод. Возвращаемый closer закрывает файл лога.
func Setup(logger *log.Logger, cfg config.LogConfig) (io.Closer, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}

	if cfg.File == "" {
		logger.SetOutput(os.Stdout)
		return io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	return file, nil
}
