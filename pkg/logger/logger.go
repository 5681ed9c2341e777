// Package logger holds the process-wide zap logger. Until Init runs the
// logger is a no-op, so packages may log during early startup without
// ordering concerns.
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Init builds the production logger at the requested level and installs it
// globally. Level strings the zap core does not recognise fall back to info
// rather than failing startup.
func Init(level string) error {
	parsed, err := zapcore.ParseLevel(strings.TrimSpace(strings.ToLower(level)))
	if err != nil {
		parsed = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)

	built, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	root = built
	mu.Unlock()
	return nil
}

// Logger returns the currently installed logger.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Sync flushes any buffered entries.
func Sync() error {
	return Logger().Sync()
}

// WithModule derives a logger tagged with the owning module, so entries from
// different subsystems can be told apart in aggregated output.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}

// Convenience wrappers over the installed logger.

func Info(msg string, fields ...zap.Field) {
	Logger().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Logger().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Logger().Error(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	Logger().Debug(msg, fields...)
}
