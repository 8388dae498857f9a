package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"led-state-controller/internal/actuator"
)

const namespace = "ledctl"

// PrometheusMetrics records controller metrics with client_golang collectors
// registered on a private registry
type PrometheusMetrics struct {
	registry *prom.Registry

	statusReads      prom.Counter
	statusReadErrors prom.Counter
	statusReadTime   prom.Histogram
	skippedPolls     prom.Counter
	commands         *prom.CounterVec
	commandErrors    *prom.CounterVec
	actuatorState    *prom.GaugeVec
	deviceOnline     prom.Gauge
	mqttPublishes    prom.Counter
	mqttErrors       prom.Counter
	eventPublishes   prom.Counter
	eventErrors      prom.Counter
}

// NewPrometheusMetrics creates the collectors and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusMetrics(reg *prom.Registry) *PrometheusMetrics {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	pm := &PrometheusMetrics{
		registry: reg,
		statusReads: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "status_reads_total",
			Help:      "Successful device status reads",
		}),
		statusReadErrors: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "status_read_errors_total",
			Help:      "Failed device status reads (network error or non-2xx)",
		}),
		statusReadTime: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "status_read_duration_seconds",
			Help:      "Duration of device status reads",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		skippedPolls: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_polls_total",
			Help:      "Scheduled polls skipped because a read was still outstanding",
		}),
		commands: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands accepted by the device",
		}, []string{"command"}),
		commandErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "command_errors_total",
			Help:      "Commands that failed",
		}, []string{"command"}),
		actuatorState: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "actuator_state",
			Help:      "1 for the current actuator state, 0 otherwise",
		}, []string{"state"}),
		deviceOnline: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "device_online",
			Help:      "1 when the device answered the last status reads, 0 after the grace period expires",
		}),
		mqttPublishes: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_publishes_total",
			Help:      "Successful MQTT publishes",
		}),
		mqttErrors: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_errors_total",
			Help:      "Failed MQTT publishes",
		}),
		eventPublishes: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "event_publishes_total",
			Help:      "State-change events published to NATS",
		}),
		eventErrors: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "event_errors_total",
			Help:      "Failed NATS event publishes",
		}),
	}

	reg.MustRegister(
		pm.statusReads, pm.statusReadErrors, pm.statusReadTime, pm.skippedPolls,
		pm.commands, pm.commandErrors, pm.actuatorState, pm.deviceOnline,
		pm.mqttPublishes, pm.mqttErrors, pm.eventPublishes, pm.eventErrors,
	)
	pm.SetActuatorState(actuator.Unknown)
	return pm
}

// Registry returns the registry the collectors live on
func (pm *PrometheusMetrics) Registry() *prom.Registry {
	return pm.registry
}

func (pm *PrometheusMetrics) IncrementStatusReads()      { pm.statusReads.Inc() }
func (pm *PrometheusMetrics) IncrementStatusReadErrors() { pm.statusReadErrors.Inc() }
func (pm *PrometheusMetrics) IncrementSkippedPolls()     { pm.skippedPolls.Inc() }
func (pm *PrometheusMetrics) IncrementMQTTPublishes()    { pm.mqttPublishes.Inc() }
func (pm *PrometheusMetrics) IncrementMQTTErrors()       { pm.mqttErrors.Inc() }
func (pm *PrometheusMetrics) IncrementEventPublishes()   { pm.eventPublishes.Inc() }
func (pm *PrometheusMetrics) IncrementEventErrors()      { pm.eventErrors.Inc() }

func (pm *PrometheusMetrics) ObserveStatusReadDuration(duration time.Duration) {
	pm.statusReadTime.Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) IncrementCommands(command string) {
	pm.commands.WithLabelValues(command).Inc()
}

func (pm *PrometheusMetrics) IncrementCommandErrors(command string) {
	pm.commandErrors.WithLabelValues(command).Inc()
}

// SetActuatorState sets the gauge for state to 1 and every other state to 0
func (pm *PrometheusMetrics) SetActuatorState(state actuator.State) {
	for _, s := range actuator.States {
		v := 0.0
		if s == state {
			v = 1
		}
		pm.actuatorState.WithLabelValues(s.String()).Set(v)
	}
}

func (pm *PrometheusMetrics) SetDeviceOnline(online bool) {
	if online {
		pm.deviceOnline.Set(1)
	} else {
		pm.deviceOnline.Set(0)
	}
}

// Handler serves the registry in the Prometheus/OpenMetrics text formats
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
