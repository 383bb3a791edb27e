// Package logger holds the process-wide slog instance shared by the
// session and migration layers.
package logger

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	current *slog.Logger
	debug   bool
)

// SetGlobal installs the logger every component picks up via Get.
func SetGlobal(l *slog.Logger, debugMode bool) {
	mu.Lock()
	defer mu.Unlock()
	current = l
	debug = debugMode
}

// Get returns the configured logger, or a stderr text logger when none has
// been installed yet.
func Get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if current != nil {
		return current
	}
	return newDefault(debug)
}

// IsDebug reports whether debug logging was requested.
func IsDebug() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debug
}

func newDefault(debugMode bool) *slog.Logger {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
