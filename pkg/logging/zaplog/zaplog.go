// Package zaplog adapts a zap logger to logging.Logger.
package zaplog

import (
	"github.com/goliatone/go-overrides/pkg/logging"
	"go.uber.org/zap"
)

// Logger forwards structured messages to a zap SugaredLogger.
type Logger struct {
	sugar *zap.SugaredLogger
}

var _ logging.Logger = (*Logger)(nil)

// New wraps logger. A nil logger yields a no-op zap logger.
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{sugar: logger.Sugar()}
}

// NewDevelopment builds a console logger at the requested level
// ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func NewDevelopment(level string) (*Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	parsed, err := zap.ParseAtomicLevel(level)
	if err != nil {
		parsed = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Level = parsed
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return New(logger), nil
}

func (l *Logger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
