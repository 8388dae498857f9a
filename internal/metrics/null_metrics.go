package metrics

import (
	"net/http"
	"time"

	"led-state-controller/internal/actuator"
)

// NullMetrics is a no-op implementation of MetricsCollector used when
// metrics are disabled
type NullMetrics struct{}

// NewNullMetrics creates a new NullMetrics instance
func NewNullMetrics() *NullMetrics {
	return &NullMetrics{}
}

func (nm *NullMetrics) IncrementStatusReads()                   {}
func (nm *NullMetrics) IncrementStatusReadErrors()              {}
func (nm *NullMetrics) ObserveStatusReadDuration(time.Duration) {}
func (nm *NullMetrics) IncrementSkippedPolls()                  {}
func (nm *NullMetrics) IncrementCommands(string)                {}
func (nm *NullMetrics) IncrementCommandErrors(string)           {}
func (nm *NullMetrics) SetActuatorState(actuator.State)         {}
func (nm *NullMetrics) SetDeviceOnline(bool)                    {}
func (nm *NullMetrics) IncrementMQTTPublishes()                 {}
func (nm *NullMetrics) IncrementMQTTErrors()                    {}
func (nm *NullMetrics) IncrementEventPublishes()                {}
func (nm *NullMetrics) IncrementEventErrors()                   {}

// Handler answers 404: there is nothing to expose
func (nm *NullMetrics) Handler() http.Handler {
	return http.NotFoundHandler()
}
