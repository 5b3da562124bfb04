// Package logger provides leveled, printf-style logging for graphmail.
//
// Debug output is hidden unless verbose mode is enabled with SetVerbose.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar = newDefault().Sugar()
)

func newDefault() *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}

// SetVerbose toggles debug output.
func SetVerbose(verbose bool) {
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
		return
	}
	level.SetLevel(zapcore.InfoLevel)
}

// IsVerbose reports whether debug output is enabled.
func IsVerbose() bool {
	return level.Enabled(zapcore.DebugLevel)
}

// SetLogger replaces the underlying zap logger. Used by tests and by
// callers that want structured JSON output.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	sugar = l.Sugar()
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = sugar.Sync()
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debug logs a debug message.
func Debug(format string, args ...any) {
	get().Debugf(format, args...)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	get().Infof(format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	get().Warnf(format, args...)
}

// Error logs an error.
func Error(format string, args ...any) {
	get().Errorf(format, args...)
}
