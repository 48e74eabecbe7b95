package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// Logger provides a unified leveled logging interface for the matcher.
// Output goes to stderr by default; tests can redirect it with SetOutput.

// LogLevel represents log severity levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu sync.Mutex

	// currentLevel holds the minimum level as an int32 so concurrent
	// readers never race with SetLevel (default: Info).
	currentLevel atomic.Int32

	out io.Writer = os.Stderr
)

func init() {
	currentLevel.Store(int32(LevelInfo))
}

// Debugf logs a debug message
func Debugf(format string, args ...interface{}) {
	if Level() > LevelDebug {
		return
	}
	logf(LevelDebug, format, args...)
}

// Infof logs an info message
func Infof(format string, args ...interface{}) {
	if Level() > LevelInfo {
		return
	}
	logf(LevelInfo, format, args...)
}

// Warnf logs a warning message
func Warnf(format string, args ...interface{}) {
	if Level() > LevelWarn {
		return
	}
	logf(LevelWarn, format, args...)
}

// Errorf logs an error message
func Errorf(format string, args ...interface{}) {
	logf(LevelError, format, args...)
}

func logf(level LogLevel, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, levelPrefix(level)+format+"\n", args...)
}

func levelPrefix(level LogLevel) string {
	switch level {
	case LevelDebug:
		return "[DEBUG] "
	case LevelInfo:
		return "[INFO] "
	case LevelWarn:
		return "[WARN] "
	case LevelError:
		return "[ERROR] "
	default:
		return "[LOG] "
	}
}

// Level returns the current minimum log level
func Level() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetLevel sets the minimum log level
func SetLevel(level LogLevel) {
	currentLevel.Store(int32(level))
}

// ParseLevel maps a config string to a level, defaulting to Info.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetOutput redirects log output (useful for tests)
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	out = w
}
