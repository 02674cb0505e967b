package gorm

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// LogWriter implements GORM's Writer interface on top of zap
type LogWriter struct {
	logger *zap.Logger
}

// Printf implements the Writer interface
func (w *LogWriter) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	// Log based on content
	switch {
	case strings.Contains(msg, "SLOW SQL"):
		w.logger.Warn("GORM slow query", zap.String("message", msg))
	case strings.Contains(msg, "rror"):
		w.logger.Error("GORM error", zap.String("message", msg))
	default:
		w.logger.Debug("GORM log", zap.String("message", msg))
	}
}

// NewLogger creates a GORM logger that writes through zap. level is one of
// silent, error, warn or debug.
func NewLogger(log *zap.Logger, level string, slowThreshold time.Duration) logger.Interface {
	logLevel := logger.Warn
	switch level {
	case "silent":
		logLevel = logger.Silent
	case "debug", "info":
		logLevel = logger.Info
	case "error":
		logLevel = logger.Error
	}

	return logger.New(
		&LogWriter{logger: log.Named("gorm")},
		logger.Config{
			SlowThreshold:             slowThreshold,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
