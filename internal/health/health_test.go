package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"led-state-controller/internal/actuator"
	"led-state-controller/internal/controller"
	"led-state-controller/internal/logger"
)

type fakeTime struct{ t time.Time }

func (f *fakeTime) now() time.Time          { return f.t }
func (f *fakeTime) advance(d time.Duration) { f.t = f.t.Add(d) }

func newMonitor(grace time.Duration) (*DeviceHealthMonitor, *fakeTime, *logger.MockLogger) {
	ft := &fakeTime{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	log := logger.NewMockLogger()
	return NewDeviceHealthMonitor(grace, ft.now, log), ft, log
}

func TestErrorRecoveryManagerGracePeriod(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	m := NewErrorRecoveryManager(10*time.Second, ft.now)

	assert.False(t, m.RecordError())
	assert.True(t, m.IsInGracePeriod())
	assert.False(t, m.ShouldMarkOffline())

	ft.advance(10 * time.Second)
	assert.True(t, m.RecordError())
	assert.Equal(t, 2, m.GetConsecutiveErrors())
	assert.True(t, m.ShouldMarkOffline())

	m.MarkAsOffline()
	assert.False(t, m.ShouldMarkOffline(), "reported once per sequence")

	m.RecordSuccess()
	assert.Zero(t, m.GetConsecutiveErrors())
	assert.Zero(t, m.GetTimeSinceFirstError())
}

func TestErrorRecoveryManagerDefaultGrace(t *testing.T) {
	m := NewErrorRecoveryManager(0, nil)
	assert.Equal(t, DefaultGracePeriod, m.errorGracePeriod)
}

func TestMonitorGoesOfflineAfterGrace(t *testing.T) {
	m, ft, log := newMonitor(15 * time.Second)

	var changes []bool
	m.OnStatusChange(func(online bool) { changes = append(changes, online) })

	m.RecordSuccess(actuator.On)
	assert.True(t, m.IsOnline())
	assert.Equal(t, actuator.On, m.State())

	assert.False(t, m.RecordError())
	ft.advance(14 * time.Second)
	assert.False(t, m.RecordError())
	assert.True(t, m.IsOnline(), "still within grace")
	assert.True(t, m.IsInGracePeriod())

	ft.advance(time.Second)
	assert.True(t, m.RecordError())
	assert.False(t, m.IsOnline())
	assert.False(t, m.RecordError(), "offline is reported once")
	require.Len(t, log.Warnings(), 1)
	assert.Contains(t, log.Warnings()[0], "Device offline")

	m.RecordSuccess(actuator.Off)
	assert.True(t, m.IsOnline())
	assert.Equal(t, []bool{true, false, true}, changes)
}

func TestMonitorObservesReadEvents(t *testing.T) {
	m, _, _ := newMonitor(time.Second)

	m.Observe(controller.Event{Kind: controller.EventCommandCompleted, Err: errors.New("ignored")})
	assert.Zero(t, m.GetErrorCount())

	m.Observe(controller.Event{Kind: controller.EventReadCompleted, Snapshot: controller.Snapshot{State: actuator.Blinking}})
	m.Observe(controller.Event{Kind: controller.EventReadCompleted, Err: errors.New("timeout")})

	assert.Equal(t, 1, m.GetSuccessCount())
	assert.Equal(t, 1, m.GetErrorCount())
	assert.Equal(t, 1, m.GetConsecutiveErrors())
	assert.Equal(t, actuator.Unknown, m.State())
}

func TestMonitorWindow(t *testing.T) {
	m, _, _ := newMonitor(time.Hour)
	for i := 0; i < DefaultWindow; i++ {
		m.RecordError()
	}
	for i := 0; i < 10; i++ {
		m.RecordSuccess(actuator.On)
	}
	assert.Equal(t, DefaultWindow-10, m.GetErrorCount())
	assert.Equal(t, 10, m.GetSuccessCount())
}

func TestHealthHandlerStatus(t *testing.T) {
	tests := []struct {
		name     string
		record   func(m *DeviceHealthMonitor, ft *fakeTime)
		want     string
		wantCode int
	}{
		{
			name:     "no reads yet",
			record:   func(m *DeviceHealthMonitor, ft *fakeTime) {},
			want:     StatusStarting,
			wantCode: http.StatusOK,
		},
		{
			name: "all good",
			record: func(m *DeviceHealthMonitor, ft *fakeTime) {
				m.RecordSuccess(actuator.On)
			},
			want:     StatusHealthy,
			wantCode: http.StatusOK,
		},
		{
			name: "degraded error rate",
			record: func(m *DeviceHealthMonitor, ft *fakeTime) {
				for i := 0; i < 7; i++ {
					m.RecordSuccess(actuator.On)
				}
				m.RecordError()
				m.RecordError()
				m.RecordError()
			},
			want:     StatusDegraded,
			wantCode: http.StatusOK,
		},
		{
			name: "never reached",
			record: func(m *DeviceHealthMonitor, ft *fakeTime) {
				m.RecordError()
			},
			want:     StatusUnhealthy,
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name: "reachable but unrecognized reply",
			record: func(m *DeviceHealthMonitor, ft *fakeTime) {
				m.RecordSuccess(actuator.Unknown)
			},
			want:     StatusDegraded,
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ft, _ := newMonitor(time.Minute)
			tt.record(m, ft)
			h := NewHealthHandler(m, m.State, "1.2.3")
			h.now = ft.now

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Status)
			assert.Equal(t, "1.2.3", body.Version)
		})
	}
}

func TestLastSuccessfulPollText(t *testing.T) {
	m, ft, _ := newMonitor(time.Minute)
	m.RecordSuccess(actuator.Off)
	h := NewHealthHandler(m, nil, "")
	h.now = ft.now

	ft.advance(42 * time.Second)
	assert.Equal(t, "42 seconds ago", h.Status().LastSuccessfulPoll)
	ft.advance(5 * time.Minute)
	assert.Equal(t, "5 minutes ago", h.Status().LastSuccessfulPoll)
	assert.Equal(t, "never", h.Status().LastFailedPoll)

	m.RecordError()
	ft.advance(3 * time.Second)
	assert.Equal(t, "3 seconds ago", h.Status().LastFailedPoll)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "30 seconds", formatDuration(30*time.Second))
	assert.Equal(t, "2 minutes", formatDuration(2*time.Minute))
	assert.Equal(t, "3 hours 5 minutes", formatDuration(3*time.Hour+5*time.Minute))
	assert.Equal(t, "2 days 1 hours", formatDuration(49*time.Hour))
}
