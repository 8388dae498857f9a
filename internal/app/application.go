package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

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
	"led-state-controller/internal/web"
)

// Application is the running controller process. Optional peripherals are
// nil when disabled in the config.
type Application struct {
	config     *config.Config
	controller *controller.SyncController
	resolver   resolver.Resolver
	metrics    metrics.MetricsCollector
	monitor    *health.DeviceHealthMonitor
	errors     *ctlerrors.ErrorHandler
	bridge     *mqtt.Bridge
	heartbeat  *services.HeartbeatService
	events     *events.Publisher
	hub        *web.Hub
	server     *web.Server
	closers    []func() error
	log        logger.ILogger
}

// Controller returns the SyncController
func (app *Application) Controller() *controller.SyncController { return app.controller }

// Monitor returns the device health monitor
func (app *Application) Monitor() *health.DeviceHealthMonitor { return app.monitor }

// Bridge returns the MQTT bridge, nil when MQTT is disabled
func (app *Application) Bridge() *mqtt.Bridge { return app.bridge }

// Server returns the web server, nil when the UI is disabled
func (app *Application) Server() *web.Server { return app.server }

// wire subscribes every peripheral to controller events
func (app *Application) wire() {
	app.controller.Subscribe(app.monitor.Observe)
	app.controller.Subscribe(app.reportErrors)

	app.monitor.OnStatusChange(func(online bool) {
		app.metrics.SetDeviceOnline(online)
		if app.bridge != nil {
			// listeners run on the polling goroutine
			go func() {
				if err := app.bridge.PublishDeviceAvailability(context.Background(), online); err != nil {
					app.log.LogDebug("device availability publish failed: %v", err)
				}
			}()
		}
	})

	if app.hub != nil {
		app.controller.Subscribe(app.hub.Observe)
	}
	if app.bridge != nil {
		app.controller.Subscribe(app.bridge.Observe)
	}
	if app.events != nil {
		app.controller.Subscribe(app.events.Observe)
	}
}

// reportErrors hands command failures and state-losing read failures to the
// error handler. Repeated failures while Unknown are left to the log.
func (app *Application) reportErrors(ev controller.Event) {
	if ev.Err == nil {
		return
	}
	switch ev.Kind {
	case controller.EventCommandCompleted:
	case controller.EventReadCompleted:
		if !ev.StateChanged() {
			return
		}
	default:
		return
	}
	go app.errors.Handle(context.Background(), ev.Err)
}

// Run starts every enabled component and blocks until ctx is done or a
// component fails. Only a bad device address is fatal; device errors are
// reported through the session.
func (app *Application) Run(ctx context.Context) error {
	logger.LogStartup("🚀 LED state controller %s starting (session %s)", Version, app.controller.SessionID())
	defer app.shutdown()

	g, ctx := errgroup.WithContext(ctx)

	if app.hub != nil {
		g.Go(func() error {
			app.hub.Run(ctx)
			return nil
		})
		g.Go(func() error { return app.server.ListenAndServe(ctx) })
	}

	if app.bridge != nil {
		g.Go(func() error {
			if err := app.bridge.Connect(ctx); err != nil {
				if ctx.Err() == nil {
					app.errors.Handle(ctx, err)
				}
				return nil
			}
			if app.heartbeat != nil {
				return app.heartbeat.Start(ctx)
			}
			return nil
		})
	}

	g.Go(func() error {
		retry := config.NewDiscoverySettings(app.config).RetryInterval
		if err := app.controller.Run(ctx, app.resolver, retry); err != nil {
			app.errors.Handle(ctx, err)
			return fmt.Errorf("controller: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (app *Application) shutdown() {
	logger.LogInfo("🛑 Shutting down...")
	if app.bridge != nil {
		app.bridge.Disconnect()
	}
	if app.events != nil {
		app.events.Close()
	}
	for _, closer := range app.closers {
		if err := closer(); err != nil {
			app.log.LogDebug("shutdown: %v", err)
		}
	}
	logger.LogInfo("👋 Application stopped")
}
