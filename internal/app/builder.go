// Package app wires the controller, its peripherals and the web UI together.
package app

import (
	"context"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"

	"led-state-controller/internal/actuator"
	"led-state-controller/internal/clock"
	"led-state-controller/internal/config"
	"led-state-controller/internal/controller"
	ctlerrors "led-state-controller/internal/errors"
	"led-state-controller/internal/events"
	"led-state-controller/internal/health"
	"led-state-controller/internal/logger"
	"led-state-controller/internal/metrics"
	"led-state-controller/internal/mqtt"
	"led-state-controller/internal/resolver"
	"led-state-controller/internal/services"
	"led-state-controller/internal/transport"
	"led-state-controller/internal/web"
)

// Version is stamped at build time with -ldflags "-X led-state-controller/internal/app.Version=..."
var Version = "dev"

// ApplicationBuilder constructs an Application. Every collaborator has a
// production default derived from the config; the With* methods replace
// them, mainly for tests.
type ApplicationBuilder struct {
	config     *config.Config
	transport  transport.Transport
	clock      clock.Clock
	resolver   resolver.Resolver
	metrics    metrics.MetricsCollector
	mqttClient paho.Client
	eventConn  events.Conn
	log        logger.ILogger
}

// NewApplicationBuilder creates a builder for cfg
func NewApplicationBuilder(cfg *config.Config) *ApplicationBuilder {
	return &ApplicationBuilder{config: cfg}
}

// WithTransport sets the device transport
func (b *ApplicationBuilder) WithTransport(t transport.Transport) *ApplicationBuilder {
	b.transport = t
	return b
}

// WithClock sets the polling clock
func (b *ApplicationBuilder) WithClock(c clock.Clock) *ApplicationBuilder {
	b.clock = c
	return b
}

// WithResolver sets how the device address is found
func (b *ApplicationBuilder) WithResolver(r resolver.Resolver) *ApplicationBuilder {
	b.resolver = r
	return b
}

// WithMetrics sets the metrics collector
func (b *ApplicationBuilder) WithMetrics(m metrics.MetricsCollector) *ApplicationBuilder {
	b.metrics = m
	return b
}

// WithMQTTClient sets the paho client used when MQTT is enabled
func (b *ApplicationBuilder) WithMQTTClient(c paho.Client) *ApplicationBuilder {
	b.mqttClient = c
	return b
}

// WithEventConn sets the NATS connection used when events are enabled
func (b *ApplicationBuilder) WithEventConn(c events.Conn) *ApplicationBuilder {
	b.eventConn = c
	return b
}

// WithLogger sets the logger
func (b *ApplicationBuilder) WithLogger(l logger.ILogger) *ApplicationBuilder {
	b.log = l
	return b
}

// Build constructs the Application with all dependencies
func (b *ApplicationBuilder) Build() (*Application, error) {
	if b.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := b.config
	if b.log == nil {
		b.log = logger.NewStandardLogger()
	}

	polling := config.NewPollingSettings(cfg)

	var closers []func() error
	if b.clock == nil {
		clk, closer, err := NewClock(polling.Scheduler)
		if err != nil {
			return nil, err
		}
		b.clock = clk
		if closer != nil {
			closers = append(closers, closer)
		}
	}
	if b.transport == nil {
		b.transport = transport.NewHTTPTransport(polling.RequestTimeout)
	}
	if b.resolver == nil {
		b.resolver = NewResolver(cfg)
	}

	var prom *metrics.PrometheusMetrics
	if b.metrics == nil {
		if cfg.Metrics.Enabled {
			prom = metrics.NewPrometheusMetrics(nil)
			b.metrics = prom
		} else {
			b.metrics = metrics.NewNullMetrics()
		}
	}

	ctrl, err := NewController(cfg, b.transport, b.clock, b.metrics, b.log)
	if err != nil {
		return nil, err
	}

	app := &Application{
		config:     cfg,
		controller: ctrl,
		resolver:   b.resolver,
		metrics:    b.metrics,
		closers:    closers,
		log:        b.log,
	}

	app.monitor = health.NewDeviceHealthMonitor(config.NewHealthSettings(cfg).GracePeriod, nil, b.log)
	app.errors = ctlerrors.NewErrorHandler(nil, b.log)

	if cfg.MQTT.Enabled {
		mqttSettings := config.NewMQTTSettings(cfg)
		haSettings := config.NewHomeAssistantSettings(cfg)
		if b.mqttClient != nil {
			app.bridge = mqtt.NewBridgeWithClient(b.mqttClient, mqttSettings, haSettings, ctrl.SendCommand, b.metrics, b.log)
		} else {
			app.bridge = mqtt.NewBridge(mqttSettings, haSettings, ctrl.SendCommand, b.metrics, b.log)
		}
		app.errors.SetPublisher(app.bridge)
		if mqttSettings.HeartbeatInterval > 0 {
			app.heartbeat = services.NewHeartbeatService(app.bridge, ctrl, app.monitor,
				b.clock, mqttSettings.HeartbeatInterval, b.log)
		}
	}

	if cfg.NATS.Enabled {
		if b.eventConn != nil {
			app.events = events.NewPublisher(b.eventConn, cfg.NATS.Subject, b.metrics, b.log)
		} else {
			pub, err := events.Connect(cfg.NATS.URL, cfg.NATS.Subject, b.metrics, b.log)
			if err != nil {
				// events are an optional feed; the controller runs without them
				app.errors.Handle(context.Background(), err)
			} else {
				app.events = pub
			}
		}
	}

	if cfg.Web.Enabled {
		app.hub = web.NewHub(b.log)
		opts := web.Options{
			Listen: cfg.Web.Listen,
			Port:   cfg.Web.Port,
			Health: health.NewHealthHandler(app.monitor, func() actuator.State {
				return ctrl.Snapshot().State
			}, Version),
			Logger: b.log,
		}
		if prom != nil {
			opts.Metrics = prom.Handler()
			opts.MetricsPath = cfg.Metrics.Path
		}
		server, err := web.NewServer(ctrl, app.hub, opts)
		if err != nil {
			return nil, err
		}
		app.server = server
	}

	app.wire()
	return app, nil
}

// NewClock returns the clock named by polling.scheduler and, for gocron, a
// function that shuts the scheduler down
func NewClock(scheduler string) (clock.Clock, func() error, error) {
	switch scheduler {
	case config.SchedulerTicker:
		return clock.NewTickerClock(), nil, nil
	case config.SchedulerGocron, "":
		s, err := clock.NewSchedulerClock("poll")
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, ctlerrors.NewConfigError("new_clock",
			fmt.Errorf("unknown scheduler %q", scheduler), "polling.scheduler")
	}
}

// NewResolver returns the configured address first and, when discovery is
// enabled, mDNS as the fallback
func NewResolver(cfg *config.Config) resolver.Resolver {
	chain := resolver.Chain{resolver.NewStatic(cfg.Device.Address)}
	if cfg.Discovery.Enabled {
		d := config.NewDiscoverySettings(cfg)
		chain = append(chain, resolver.NewMDNS(d.Service, d.Domain, d.Instance, d.Timeout))
	}
	return chain
}

// NewController builds a SyncController from the polling and device settings
func NewController(cfg *config.Config, t transport.Transport, clk clock.Clock,
	m metrics.MetricsCollector, log logger.ILogger) (*controller.SyncController, error) {
	polling := config.NewPollingSettings(cfg)
	suppression, ok := controller.ParseErrorSuppression(polling.ErrorSuppression)
	if !ok {
		return nil, ctlerrors.NewConfigError("new_controller",
			fmt.Errorf("unknown error suppression policy %q", polling.ErrorSuppression), "polling.error_suppression")
	}
	return controller.New(controller.Options{
		Transport:    t,
		Clock:        clk,
		PollInterval: polling.Interval,
		DeviceName:   polling.DeviceName,
		SingleFlight: polling.SingleFlight,
		Suppression:  suppression,
		Metrics:      m,
		Logger:       log,
	})
}
