package health

import (
	"time"
)

// DefaultGracePeriod is how long reads may keep failing before the device is reported offline
const DefaultGracePeriod = 15 * time.Second

// ErrorRecoveryManager tracks a sequence of consecutive read failures and
// decides when the sequence has lasted long enough to report the device offline
type ErrorRecoveryManager struct {
	consecutiveErrors  int
	firstErrorTime     time.Time
	errorGracePeriod   time.Duration
	statusSetToOffline bool
	now                func() time.Time
}

// NewErrorRecoveryManager creates a new error recovery manager
func NewErrorRecoveryManager(gracePeriod time.Duration, now func() time.Time) *ErrorRecoveryManager {
	if gracePeriod == 0 {
		gracePeriod = DefaultGracePeriod
	}
	if now == nil {
		now = time.Now
	}
	return &ErrorRecoveryManager{
		errorGracePeriod: gracePeriod,
		now:              now,
	}
}

// RecordError records an error occurrence and returns whether grace period has expired
func (m *ErrorRecoveryManager) RecordError() bool {
	m.consecutiveErrors++
	if m.firstErrorTime.IsZero() {
		m.firstErrorTime = m.now()
	}
	return m.now().Sub(m.firstErrorTime) >= m.errorGracePeriod
}

// RecordSuccess resets error tracking after a successful operation
func (m *ErrorRecoveryManager) RecordSuccess() {
	m.Reset()
}

// GetConsecutiveErrors returns the current count of consecutive errors
func (m *ErrorRecoveryManager) GetConsecutiveErrors() int {
	return m.consecutiveErrors
}

// ShouldMarkOffline returns true once per failure sequence, when the grace period has expired
func (m *ErrorRecoveryManager) ShouldMarkOffline() bool {
	if m.statusSetToOffline {
		return false
	}
	return !m.firstErrorTime.IsZero() && m.now().Sub(m.firstErrorTime) >= m.errorGracePeriod
}

// MarkAsOffline prevents repeated offline reports for the current sequence
func (m *ErrorRecoveryManager) MarkAsOffline() {
	m.statusSetToOffline = true
}

// IsInGracePeriod returns true if we're currently in the grace period after first error
func (m *ErrorRecoveryManager) IsInGracePeriod() bool {
	if m.firstErrorTime.IsZero() {
		return false
	}
	return m.now().Sub(m.firstErrorTime) < m.errorGracePeriod
}

// GetTimeSinceFirstError returns the duration since the first error in current sequence
func (m *ErrorRecoveryManager) GetTimeSinceFirstError() time.Duration {
	if m.firstErrorTime.IsZero() {
		return 0
	}
	return m.now().Sub(m.firstErrorTime)
}

// Reset resets all error tracking state
func (m *ErrorRecoveryManager) Reset() {
	m.consecutiveErrors = 0
	m.firstErrorTime = time.Time{}
	m.statusSetToOffline = false
}
