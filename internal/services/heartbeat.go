// Package services holds the periodic background jobs around the controller.
package services

import (
	"context"
	"fmt"
	"time"

	"led-state-controller/internal/clock"
	"led-state-controller/internal/controller"
	"led-state-controller/internal/logger"
)

// Publisher is the part of the MQTT bridge the heartbeat refreshes
type Publisher interface {
	IsConnected() bool
	PublishStatusOnline(ctx context.Context) error
	PublishSnapshot(ctx context.Context, snap controller.Snapshot) error
	PublishDeviceAvailability(ctx context.Context, online bool) error
	PublishDiagnostic(ctx context.Context, code int, message string) error
}

// SnapshotSource provides the current session view
type SnapshotSource interface {
	Snapshot() controller.Snapshot
}

// OnlineChecker reports device reachability
type OnlineChecker interface {
	IsOnline() bool
}

// HeartbeatService republishes the retained availability and state topics on
// a fixed interval so that subscribers joining late, or a broker that lost
// its retained store, catch up without waiting for a state change
type HeartbeatService struct {
	publisher Publisher
	source    SnapshotSource
	device    OnlineChecker
	clock     clock.Clock
	interval  time.Duration
	log       logger.ILogger
}

// NewHeartbeatService creates a new heartbeat service
func NewHeartbeatService(publisher Publisher, source SnapshotSource, device OnlineChecker,
	clk clock.Clock, interval time.Duration, log logger.ILogger) *HeartbeatService {
	if log == nil {
		log = logger.NewStandardLogger()
	}
	return &HeartbeatService{
		publisher: publisher,
		source:    source,
		device:    device,
		clock:     clk,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the heartbeat and blocks until ctx is done
func (s *HeartbeatService) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %v", s.interval)
	}
	task, err := s.clock.Every(s.interval, func() { s.SendHeartbeat(context.WithoutCancel(ctx)) })
	if err != nil {
		return fmt.Errorf("schedule heartbeat: %w", err)
	}
	s.log.LogInfo("💓 Heartbeat service started with interval: %v", s.interval)

	<-ctx.Done()
	if err := task.Stop(); err != nil {
		s.log.LogDebug("stop heartbeat: %v", err)
	}
	s.log.LogDebug("🔇 Heartbeat service stopped")
	return nil
}

// SendHeartbeat publishes one round. It does nothing while the broker is
// unreachable.
func (s *HeartbeatService) SendHeartbeat(ctx context.Context) {
	if !s.publisher.IsConnected() {
		s.log.LogDebug("💔 Skipping heartbeat - broker not connected")
		return
	}

	if err := s.publisher.PublishStatusOnline(ctx); err != nil {
		s.log.LogError("⚠️ Heartbeat failed: %v", err)
		return
	}

	online := s.device != nil && s.device.IsOnline()
	if err := s.publisher.PublishDeviceAvailability(ctx, online); err != nil {
		s.log.LogDebug("⚠️ Device availability heartbeat failed: %v", err)
	}
	if s.source != nil {
		if err := s.publisher.PublishSnapshot(ctx, s.source.Snapshot()); err != nil {
			s.log.LogDebug("⚠️ State heartbeat failed: %v", err)
		}
	}
	if err := s.publisher.PublishDiagnostic(ctx, 0, "LED controller running"); err != nil {
		s.log.LogDebug("⚠️ Diagnostic heartbeat failed: %v", err)
	}
	s.log.LogDebug("💓 Heartbeat sent (device online: %v)", online)
}
