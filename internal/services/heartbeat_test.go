package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"led-state-controller/internal/actuator"
	"led-state-controller/internal/clock"
	"led-state-controller/internal/controller"
	"led-state-controller/internal/logger"
)

type recordingPublisher struct {
	mu        sync.Mutex
	connected bool
	onlineErr error
	calls     []string
	device    []bool
	snapshots []controller.Snapshot
}

func (p *recordingPublisher) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *recordingPublisher) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *recordingPublisher) IsConnected() bool { return p.connected }

func (p *recordingPublisher) PublishStatusOnline(ctx context.Context) error {
	p.record("online")
	return p.onlineErr
}

func (p *recordingPublisher) PublishSnapshot(ctx context.Context, snap controller.Snapshot) error {
	p.record("state")
	p.mu.Lock()
	p.snapshots = append(p.snapshots, snap)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) PublishDeviceAvailability(ctx context.Context, online bool) error {
	p.record("device")
	p.mu.Lock()
	p.device = append(p.device, online)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) PublishDiagnostic(ctx context.Context, code int, message string) error {
	p.record("diagnostic")
	return nil
}

type staticSource controller.Snapshot

func (s staticSource) Snapshot() controller.Snapshot { return controller.Snapshot(s) }

type onlineFlag bool

func (f onlineFlag) IsOnline() bool { return bool(f) }

func TestSendHeartbeat(t *testing.T) {
	pub := &recordingPublisher{connected: true}
	src := staticSource{State: actuator.On}
	svc := NewHeartbeatService(pub, src, onlineFlag(true), clock.NewManual(time.Now()), time.Second, logger.NewMockLogger())

	svc.SendHeartbeat(context.Background())

	assert.Equal(t, []string{"online", "device", "state", "diagnostic"}, pub.Calls())
	assert.Equal(t, []bool{true}, pub.device)
	require.Len(t, pub.snapshots, 1)
	assert.Equal(t, actuator.On, pub.snapshots[0].State)
}

func TestSendHeartbeatSkipsWhileDisconnected(t *testing.T) {
	pub := &recordingPublisher{connected: false}
	svc := NewHeartbeatService(pub, staticSource{}, onlineFlag(true), clock.NewManual(time.Now()), time.Second, logger.NewMockLogger())

	svc.SendHeartbeat(context.Background())

	assert.Empty(t, pub.Calls())
}

func TestSendHeartbeatStopsWhenOnlineFails(t *testing.T) {
	pub := &recordingPublisher{connected: true, onlineErr: errors.New("broker gone")}
	log := logger.NewMockLogger()
	svc := NewHeartbeatService(pub, staticSource{}, onlineFlag(false), clock.NewManual(time.Now()), time.Second, log)

	svc.SendHeartbeat(context.Background())

	assert.Equal(t, []string{"online"}, pub.Calls())
	assert.True(t, log.HasErrorMessage())
}

func TestHeartbeatRunsOnInterval(t *testing.T) {
	pub := &recordingPublisher{connected: true}
	m := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := NewHeartbeatService(pub, staticSource{}, onlineFlag(false), m, 30*time.Second, logger.NewMockLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	require.Eventually(t, func() bool { return m.Active() == 1 }, time.Second, 5*time.Millisecond)
	m.Advance(29 * time.Second)
	assert.Empty(t, pub.Calls())
	m.Advance(time.Second)
	assert.Len(t, pub.Calls(), 4)
	m.Advance(60 * time.Second)
	assert.Len(t, pub.Calls(), 12)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, m.Active())
}

func TestHeartbeatRejectsInvalidInterval(t *testing.T) {
	svc := NewHeartbeatService(&recordingPublisher{}, nil, nil, clock.NewManual(time.Now()), 0, logger.NewMockLogger())
	assert.Error(t, svc.Start(context.Background()))
}
