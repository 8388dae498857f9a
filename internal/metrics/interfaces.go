package metrics

import (
	"net/http"
	"time"

	"led-state-controller/internal/actuator"
)

// MetricsCollector defines the interface for collecting controller metrics.
//
// Implementations:
//   - PrometheusMetrics: client_golang collectors on a private registry
//   - NullMetrics: no-op implementation used when metrics are disabled
type MetricsCollector interface {
	// IncrementStatusReads counts successful GET /STATUS calls
	IncrementStatusReads()

	// IncrementStatusReadErrors counts failed GET /STATUS calls
	IncrementStatusReadErrors()

	// ObserveStatusReadDuration records how long a status read took, success or not
	ObserveStatusReadDuration(duration time.Duration)

	// IncrementSkippedPolls counts scheduled polls skipped by single-flight
	IncrementSkippedPolls()

	// IncrementCommands counts commands accepted by the device, by endpoint
	IncrementCommands(command string)

	// IncrementCommandErrors counts commands that failed, by endpoint
	IncrementCommandErrors(command string)

	// SetActuatorState marks state as the current actuator state
	SetActuatorState(state actuator.State)

	// SetDeviceOnline sets the device reachability gauge
	SetDeviceOnline(online bool)

	// IncrementMQTTPublishes counts successful MQTT publishes
	IncrementMQTTPublishes()

	// IncrementMQTTErrors counts failed MQTT publishes
	IncrementMQTTErrors()

	// IncrementEventPublishes counts state-change events published to NATS
	IncrementEventPublishes()

	// IncrementEventErrors counts failed NATS publishes
	IncrementEventErrors()

	// Handler exposes the metrics over HTTP
	Handler() http.Handler
}

// Compile-time verification that both implementations satisfy MetricsCollector
var (
	_ MetricsCollector = (*PrometheusMetrics)(nil)
	_ MetricsCollector = (*NullMetrics)(nil)
)
