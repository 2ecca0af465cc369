// Package logger provides the process-wide structured logger for the resolver.
package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu    sync.Mutex
	sugar *zap.SugaredLogger
)

// Initialize configures the global logger. In debug mode it uses the
// human-friendly development encoder and enables debug-level output.
// It is safe to call more than once; the last call wins.
func Initialize(debug bool) {
	mu.Lock()
	defer mu.Unlock()

	var (
		log *zap.Logger
		err error
	)
	if debug {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		// Fall back to a no-op logger rather than failing process startup
		log = zap.NewNop()
	}

	sugar = log.Sugar()
}

// get returns the current logger, initializing a default one on first use.
func get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if sugar == nil {
		log, err := zap.NewProduction()
		if err != nil {
			log = zap.NewNop()
		}
		sugar = log.Sugar()
	}
	return sugar
}

// Named returns a logger scoped to the given component name.
func Named(name string) *zap.SugaredLogger {
	return get().Named(name)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...any) {
	get().Debugf(format, args...)
}

// Infof logs a formatted info message.
func Infof(format string, args ...any) {
	get().Infof(format, args...)
}

// Warnf logs a formatted warning message.
func Warnf(format string, args ...any) {
	get().Warnf(format, args...)
}

// Errorf logs a formatted error message.
func Errorf(format string, args ...any) {
	get().Errorf(format, args...)
}

// Fatalf logs a formatted message and exits the process.
func Fatalf(format string, args ...any) {
	get().Fatalf(format, args...)
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = get().Sync()
}
