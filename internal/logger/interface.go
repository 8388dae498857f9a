package logger

import (
	"fmt"
	"sync"
)

// ILogger is the logging dependency handed to components that are exercised in tests
type ILogger interface {
	LogInfo(format string, args ...interface{})
	LogWarn(format string, args ...interface{})
	LogError(format string, args ...interface{})
	LogDebug(format string, args ...interface{})
	LogTrace(format string, args ...interface{})
}

// StandardLogger implements ILogger using the global logger functions
type StandardLogger struct{}

// NewStandardLogger creates a logger that uses global logger functions
func NewStandardLogger() ILogger {
	return &StandardLogger{}
}

func (l *StandardLogger) LogInfo(format string, args ...interface{})  { LogInfo(format, args...) }
func (l *StandardLogger) LogWarn(format string, args ...interface{})  { LogWarn(format, args...) }
func (l *StandardLogger) LogError(format string, args ...interface{}) { LogError(format, args...) }
func (l *StandardLogger) LogDebug(format string, args ...interface{}) { LogDebug(format, args...) }
func (l *StandardLogger) LogTrace(format string, args ...interface{}) { LogTrace(format, args...) }

// MockLogger records formatted messages per level. Safe for concurrent use.
type MockLogger struct {
	mu            sync.Mutex
	InfoMessages  []string
	WarnMessages  []string
	ErrorMessages []string
	DebugMessages []string
	TraceMessages []string
}

// NewMockLogger creates a new mock logger for testing
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (l *MockLogger) record(dst *[]string, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*dst = append(*dst, fmt.Sprintf(format, args...))
}

func (l *MockLogger) LogInfo(format string, args ...interface{}) {
	l.record(&l.InfoMessages, format, args)
}

func (l *MockLogger) LogWarn(format string, args ...interface{}) {
	l.record(&l.WarnMessages, format, args)
}

func (l *MockLogger) LogError(format string, args ...interface{}) {
	l.record(&l.ErrorMessages, format, args)
}

func (l *MockLogger) LogDebug(format string, args ...interface{}) {
	l.record(&l.DebugMessages, format, args)
}

func (l *MockLogger) LogTrace(format string, args ...interface{}) {
	l.record(&l.TraceMessages, format, args)
}

// Reset clears all recorded messages
func (l *MockLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.InfoMessages = nil
	l.WarnMessages = nil
	l.ErrorMessages = nil
	l.DebugMessages = nil
	l.TraceMessages = nil
}

// Errors returns a copy of the recorded error messages
func (l *MockLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ErrorMessages...)
}

// Warnings returns a copy of the recorded warning messages
func (l *MockLogger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.WarnMessages...)
}

// HasErrorMessage checks if an error message was logged
func (l *MockLogger) HasErrorMessage() bool {
	return len(l.Errors()) > 0
}

// HasWarnMessage checks if a warning message was logged
func (l *MockLogger) HasWarnMessage() bool {
	return len(l.Warnings()) > 0
}
