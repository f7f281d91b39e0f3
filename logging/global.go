package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	globalLogger Logger
	globalMu     sync.RWMutex
	once         sync.Once
)

// Global returns the process-wide logger, lazily built from DefaultConfig.
func Global() Logger {
	globalMu.RLock()
	if globalLogger != nil {
		defer globalMu.RUnlock()
		return globalLogger
	}
	globalMu.RUnlock()

	once.Do(func() {
		SetGlobal(NewLogger(DefaultConfig()))
	})

	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetGlobal replaces the process-wide logger.
func SetGlobal(logger Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// Init builds the process-wide logger from config.
func Init(config Config) {
	SetGlobal(NewLogger(config))
}

// Package-level shortcuts delegating to the global logger.

func Debug(msg string, fields ...zap.Field) { Global().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { Global().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { Global().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Global().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { Global().Fatal(msg, fields...) }

func Debugf(format string, args ...any) { Global().Debugf(format, args...) }
func Infof(format string, args ...any)  { Global().Infof(format, args...) }
func Warnf(format string, args ...any)  { Global().Warnf(format, args...) }
func Errorf(format string, args ...any) { Global().Errorf(format, args...) }
func Fatalf(format string, args ...any) { Global().Fatalf(format, args...) }

// With creates a child of the global logger with additional fields.
func With(fields ...zap.Field) Logger { return Global().With(fields...) }

// WithError creates a child of the global logger carrying an error field.
func WithError(err error) Logger { return Global().WithError(err) }

// Named creates a named child of the global logger.
func Named(name string) Logger { return Global().Named(name) }

// Sync flushes the global logger.
func Sync() error { return Global().Sync() }
