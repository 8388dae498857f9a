package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel constants
const (
	LogLevelError = "error"
	LogLevelWarn  = "warn"
	LogLevelInfo  = "info"
	LogLevelDebug = "debug"
	LogLevelTrace = "trace"
)

var levelOrder = []string{LogLevelError, LogLevelWarn, LogLevelInfo, LogLevelDebug, LogLevelTrace}

// LoggingConfig represents the logging section of the configuration file
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

var (
	mu           sync.RWMutex
	currentLevel = LogLevelInfo
	logFile      *os.File
)

// Configure applies the logging configuration to the process-wide logger.
// An unknown level is rejected; an empty level means info.
func Configure(cfg LoggingConfig) error {
	level := strings.ToLower(strings.TrimSpace(cfg.Level))
	if level == "" {
		level = LogLevelInfo
	}
	if !IsValidLevel(level) {
		return fmt.Errorf("unknown log level %q (expected one of %s)", cfg.Level, strings.Join(levelOrder, ", "))
	}

	var out io.Writer = os.Stdout
	var opened *os.File
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", cfg.File, err)
		}
		opened = f
		out = f
	}

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = opened
	currentLevel = level
	log.SetOutput(out)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return nil
}

// SetLevel changes the active level without touching the output
func SetLevel(level string) {
	level = strings.ToLower(level)
	if !IsValidLevel(level) {
		return
	}
	mu.Lock()
	currentLevel = level
	mu.Unlock()
}

// Level returns the active level
func Level() string {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// IsValidLevel reports whether level is one of the known level names
func IsValidLevel(level string) bool {
	for _, l := range levelOrder {
		if l == level {
			return true
		}
	}
	return false
}

// shouldLog checks if a message should be logged based on current level
func shouldLog(messageLevel string) bool {
	current := Level()
	currentIndex, messageIndex := -1, -1
	for i, level := range levelOrder {
		if level == current {
			currentIndex = i
		}
		if level == messageLevel {
			messageIndex = i
		}
	}
	if currentIndex == -1 || messageIndex == -1 {
		return true
	}
	return messageIndex <= currentIndex
}

// LogStartup logs startup messages that should always be visible regardless of log level
func LogStartup(format string, args ...interface{}) {
	log.Printf("🚀 "+format, args...)
}

func LogError(format string, args ...interface{}) {
	if shouldLog(LogLevelError) {
		log.Printf("❌ "+format, args...)
	}
}

func LogWarn(format string, args ...interface{}) {
	if shouldLog(LogLevelWarn) {
		log.Printf("⚠️ "+format, args...)
	}
}

func LogInfo(format string, args ...interface{}) {
	if shouldLog(LogLevelInfo) {
		log.Printf("ℹ️ "+format, args...)
	}
}

func LogDebug(format string, args ...interface{}) {
	if shouldLog(LogLevelDebug) {
		log.Printf("🔧 "+format, args...)
	}
}

func LogTrace(format string, args ...interface{}) {
	if shouldLog(LogLevelTrace) {
		log.Printf("🔍 "+format, args...)
	}
}

// IsDebugEnabled checks if debug logging is enabled
func IsDebugEnabled() bool {
	return shouldLog(LogLevelDebug)
}

// IsTraceEnabled checks if trace logging is enabled
func IsTraceEnabled() bool {
	return shouldLog(LogLevelTrace)
}
