// Package health tracks whether the LED device is reachable and serves the /health endpoint.
package health

import (
	"sync"
	"time"

	"led-state-controller/internal/actuator"
	"led-state-controller/internal/controller"
	"led-state-controller/internal/logger"
)

// DefaultWindow is the number of recent status reads the error rate is computed over
const DefaultWindow = 30

// DeviceHealthMonitor follows status read outcomes. The device is online
// after a successful read and goes offline once reads have failed for
// longer than the grace period.
type DeviceHealthMonitor struct {
	mu            sync.RWMutex
	isOnline      bool
	lastSuccess   time.Time
	lastErrorTime time.Time
	state         actuator.State
	errorManager  *ErrorRecoveryManager
	results       []bool // ring of recent outcomes, true = success
	next          int
	filled        bool
	listeners     []func(online bool)
	now           func() time.Time
	log           logger.ILogger
}

// NewDeviceHealthMonitor creates a monitor. now may be nil.
func NewDeviceHealthMonitor(gracePeriod time.Duration, now func() time.Time, log logger.ILogger) *DeviceHealthMonitor {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.NewStandardLogger()
	}
	return &DeviceHealthMonitor{
		errorManager: NewErrorRecoveryManager(gracePeriod, now),
		results:      make([]bool, DefaultWindow),
		now:          now,
		log:          log,
	}
}

// OnStatusChange registers fn to run whenever the device goes online or offline
func (m *DeviceHealthMonitor) OnStatusChange(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Observe is a controller subscriber. Only completed status reads count;
// command failures say nothing about reachability of /STATUS.
func (m *DeviceHealthMonitor) Observe(ev controller.Event) {
	if ev.Kind != controller.EventReadCompleted {
		return
	}
	if ev.Err != nil {
		m.RecordError()
		return
	}
	m.RecordSuccess(ev.Snapshot.State)
}

// RecordSuccess records a successful status read
func (m *DeviceHealthMonitor) RecordSuccess(state actuator.State) {
	m.mu.Lock()
	m.errorManager.RecordSuccess()
	m.lastSuccess = m.now()
	m.state = state
	m.push(true)
	changed := !m.isOnline
	m.isOnline = true
	listeners := m.listeners
	m.mu.Unlock()

	if changed {
		m.log.LogInfo("🟢 Device online")
		notify(listeners, true)
	}
}

// RecordError records a failed status read and reports whether the device was just marked offline
func (m *DeviceHealthMonitor) RecordError() (markedOffline bool) {
	m.mu.Lock()
	m.lastErrorTime = m.now()
	m.state = actuator.Unknown
	m.errorManager.RecordError()
	m.push(false)
	if m.isOnline && m.errorManager.ShouldMarkOffline() {
		m.isOnline = false
		m.errorManager.MarkAsOffline()
		markedOffline = true
	}
	consecutive := m.errorManager.GetConsecutiveErrors()
	listeners := m.listeners
	m.mu.Unlock()

	if markedOffline {
		m.log.LogWarn("🔴 Device offline after %d consecutive failed reads", consecutive)
		notify(listeners, false)
	}
	return markedOffline
}

func notify(listeners []func(bool), online bool) {
	for _, fn := range listeners {
		fn(online)
	}
}

func (m *DeviceHealthMonitor) push(ok bool) {
	m.results[m.next] = ok
	m.next = (m.next + 1) % len(m.results)
	if m.next == 0 {
		m.filled = true
	}
}

func (m *DeviceHealthMonitor) window() []bool {
	if m.filled {
		return m.results
	}
	return m.results[:m.next]
}

// IsOnline returns whether the device is currently considered reachable
func (m *DeviceHealthMonitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isOnline
}

// State returns the state decoded by the last read, Unknown after a failure
func (m *DeviceHealthMonitor) State() actuator.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// GetLastSuccessTime returns when the last successful read completed
func (m *DeviceHealthMonitor) GetLastSuccessTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSuccess
}

// GetLastErrorTime returns the time of the last error
func (m *DeviceHealthMonitor) GetLastErrorTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErrorTime
}

// GetErrorCount returns failed reads within the recent window
func (m *DeviceHealthMonitor) GetErrorCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, ok := range m.window() {
		if !ok {
			n++
		}
	}
	return n
}

// GetSuccessCount returns successful reads within the recent window
func (m *DeviceHealthMonitor) GetSuccessCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, ok := range m.window() {
		if ok {
			n++
		}
	}
	return n
}

// GetConsecutiveErrors returns the current count of consecutive errors
func (m *DeviceHealthMonitor) GetConsecutiveErrors() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errorManager.GetConsecutiveErrors()
}

// IsInGracePeriod returns true if reads are failing but the device is not yet offline
func (m *DeviceHealthMonitor) IsInGracePeriod() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errorManager.IsInGracePeriod()
}
