package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"led-state-controller/internal/actuator"
)

// TestPrometheusMetricsRecording verifies that PrometheusMetrics actually records values
func TestPrometheusMetricsRecording(t *testing.T) {
	pm := NewPrometheusMetrics(nil)

	pm.IncrementStatusReads()
	pm.IncrementStatusReads()
	pm.IncrementStatusReadErrors()
	pm.IncrementCommands("LED_ON")
	pm.IncrementCommandErrors("LED_BLINK")
	pm.IncrementCommandErrors("LED_BLINK")
	pm.IncrementMQTTPublishes()
	pm.IncrementEventErrors()
	pm.ObserveStatusReadDuration(40 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.statusReads))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.statusReadErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.commands.WithLabelValues("LED_ON")))
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.commandErrors.WithLabelValues("LED_BLINK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.mqttPublishes))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.eventErrors))
}

func TestActuatorStateGaugeIsOneHot(t *testing.T) {
	pm := NewPrometheusMetrics(nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.actuatorState.WithLabelValues("UNKNOWN")))

	pm.SetActuatorState(actuator.Blinking)
	for _, s := range actuator.States {
		want := 0.0
		if s == actuator.Blinking {
			want = 1
		}
		assert.Equal(t, want, testutil.ToFloat64(pm.actuatorState.WithLabelValues(s.String())), s.String())
	}
}

func TestDeviceOnlineGauge(t *testing.T) {
	pm := NewPrometheusMetrics(nil)
	pm.SetDeviceOnline(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.deviceOnline))
	pm.SetDeviceOnline(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(pm.deviceOnline))
}

func TestPrometheusHandlerExposesMetrics(t *testing.T) {
	pm := NewPrometheusMetrics(nil)
	pm.IncrementStatusReads()

	srv := httptest.NewServer(pm.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "ledctl_status_reads_total 1"), string(body))
}

// TestNullMetrics verifies that NullMetrics has no side effects
func TestNullMetrics(t *testing.T) {
	nm := NewNullMetrics()
	nm.IncrementStatusReads()
	nm.IncrementStatusReadErrors()
	nm.ObserveStatusReadDuration(time.Second)
	nm.IncrementCommands("LED_ON")
	nm.SetActuatorState(actuator.On)
	nm.SetDeviceOnline(true)

	rec := httptest.NewRecorder()
	nm.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
