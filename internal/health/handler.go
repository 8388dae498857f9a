package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"led-state-controller/internal/actuator"
)

// Health status values
const (
	StatusStarting  = "starting"
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status             string    `json:"status"`
	Timestamp          time.Time `json:"timestamp"`
	Uptime             string    `json:"uptime"`
	DeviceOnline       bool      `json:"device_online"`
	DeviceState        string    `json:"device_state"`
	LastSuccessfulPoll string    `json:"last_successful_poll"`
	LastFailedPoll     string    `json:"last_failed_poll"`
	ErrorCount         int       `json:"error_count"`
	SuccessCount       int       `json:"success_count"`
	ConsecutiveErrors  int       `json:"consecutive_errors"`
	Version            string    `json:"version,omitempty"`
}

// HealthChecker interface for providing health information
type HealthChecker interface {
	IsOnline() bool
	GetLastSuccessTime() time.Time
	GetLastErrorTime() time.Time
	GetErrorCount() int
	GetSuccessCount() int
	GetConsecutiveErrors() int
}

// HealthHandler provides HTTP health check endpoint
type HealthHandler struct {
	startTime     time.Time
	healthChecker HealthChecker
	state         func() actuator.State
	version       string
	now           func() time.Time
}

// NewHealthHandler creates a new health check handler. state may be nil.
func NewHealthHandler(healthChecker HealthChecker, state func() actuator.State, version string) *HealthHandler {
	return &HealthHandler{
		startTime:     time.Now(),
		healthChecker: healthChecker,
		state:         state,
		version:       version,
		now:           time.Now,
	}
}

// ServeHTTP implements http.Handler interface for /health endpoint
func (hh *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := hh.Status()

	w.Header().Set("Content-Type", "application/json")
	statusCode := http.StatusOK
	if status.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(status); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode health status: %v", err), http.StatusInternalServerError)
	}
}

// Status determines current health status
func (hh *HealthHandler) Status() HealthStatus {
	now := hh.now()

	isOnline := hh.healthChecker.IsOnline()
	lastSuccess := hh.healthChecker.GetLastSuccessTime()
	lastError := hh.healthChecker.GetLastErrorTime()
	errorCount := hh.healthChecker.GetErrorCount()
	successCount := hh.healthChecker.GetSuccessCount()

	deviceState := actuator.Unknown
	if hh.state != nil {
		deviceState = hh.state()
	}

	status := StatusHealthy
	switch {
	case lastSuccess.IsZero() && errorCount == 0:
		status = StatusStarting
	case !isOnline:
		status = StatusUnhealthy
	case errorCount > 0:
		errorRate := float64(errorCount) / float64(errorCount+successCount) * 100.0
		if errorRate > 50.0 {
			status = StatusUnhealthy
		} else if errorRate > 20.0 {
			status = StatusDegraded
		}
	}
	// the last read succeeded but its reply did not decode to a state
	if status == StatusHealthy && hh.state != nil && !deviceState.Known() && lastError.Before(lastSuccess) {
		status = StatusDegraded
	}

	return HealthStatus{
		Status:             status,
		Timestamp:          now,
		Uptime:             formatDuration(now.Sub(hh.startTime)),
		DeviceOnline:       isOnline,
		DeviceState:        deviceState.String(),
		LastSuccessfulPoll: ago(now, lastSuccess),
		LastFailedPoll:     ago(now, lastError),
		ErrorCount:         errorCount,
		SuccessCount:       successCount,
		ConsecutiveErrors:  hh.healthChecker.GetConsecutiveErrors(),
		Version:            hh.version,
	}
}

// ago renders the time since t, or "never" for the zero time
func ago(now, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	since := now.Sub(t)
	switch {
	case since < time.Minute:
		return fmt.Sprintf("%d seconds ago", int(since.Seconds()))
	case since < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(since.Minutes()))
	default:
		return fmt.Sprintf("%d hours ago", int(since.Hours()))
	}
}

// formatDuration formats a duration in human-readable form
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours %d minutes", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%d days %d hours", int(d.Hours())/24, int(d.Hours())%24)
	}
}
