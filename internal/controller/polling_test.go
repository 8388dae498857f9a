package controller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"led-state-controller/internal/actuator"
	ctlerrors "led-state-controller/internal/errors"
	"led-state-controller/internal/metrics"
	"led-state-controller/internal/resolver"
	"led-state-controller/internal/transport"
)

type skipCounter struct {
	metrics.NullMetrics
	skipped atomic.Int32
}

func (s *skipCounter) IncrementSkippedPolls() { s.skipped.Add(1) }

func TestStartPollingRequiresAddress(t *testing.T) {
	f := newFixture(t, newFakeDevice("1"))

	_, err := f.c.StartPolling(context.Background())

	assert.Equal(t, ctlerrors.KindConfigurationMissing, ctlerrors.KindOf(err))
	assert.Zero(t, f.clock.Active())
	assert.Empty(t, f.device.Requests())
}

func TestPollingReadsImmediatelyThenEveryInterval(t *testing.T) {
	f := newFixture(t, newFakeDevice("1"))
	f.resolve(t)

	task, err := f.c.StartPolling(context.Background())
	require.NoError(t, err)
	defer task.Stop()

	assert.Equal(t, 1, f.device.count("GET", "/STATUS"), "immediate read")
	assert.Equal(t, actuator.On, f.c.Snapshot().State)

	f.clock.Advance(1999 * time.Millisecond)
	assert.Equal(t, 1, f.device.count("GET", "/STATUS"))

	f.clock.Advance(time.Millisecond)
	assert.Equal(t, 2, f.device.count("GET", "/STATUS"))

	f.clock.Advance(4 * time.Second)
	assert.Equal(t, 4, f.device.count("GET", "/STATUS"))
	assert.Equal(t, actuator.On, f.c.Snapshot().State)
}

func TestPollingRecoversAfterOutage(t *testing.T) {
	f := newFixture(t, newFakeDevice("1"))
	f.resolve(t)
	task, err := f.c.StartPolling(context.Background())
	require.NoError(t, err)
	defer task.Stop()
	require.Equal(t, actuator.On, f.c.Snapshot().State)

	f.device.set(func(d *fakeDevice) { d.down = true })
	f.clock.Advance(DefaultPollInterval)
	snap := f.c.Snapshot()
	assert.Equal(t, actuator.Unknown, snap.State)
	assert.NotEmpty(t, snap.LastError)

	f.device.set(func(d *fakeDevice) { d.down = false })
	f.clock.Advance(DefaultPollInterval)
	snap = f.c.Snapshot()
	assert.Equal(t, actuator.On, snap.State)
	assert.Empty(t, snap.LastError)
}

func TestStartPollingTwice(t *testing.T) {
	f := newFixture(t, newFakeDevice("0"))
	f.resolve(t)

	task, err := f.c.StartPolling(context.Background())
	require.NoError(t, err)

	_, err = f.c.StartPolling(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyPolling)

	require.NoError(t, task.Stop())
	require.NoError(t, task.Stop(), "stop is idempotent")

	again, err := f.c.StartPolling(context.Background())
	require.NoError(t, err)
	require.NoError(t, again.Stop())
}

func TestStopCancelsScheduleOnly(t *testing.T) {
	f := newFixture(t, newFakeDevice("0"))
	f.resolve(t)

	ctx, cancel := context.WithCancel(context.Background())
	task, err := f.c.StartPolling(ctx)
	require.NoError(t, err)

	release := make(chan struct{})
	f.device.set(func(d *fakeDevice) {
		d.block = release
		d.entered = make(chan transport.Request, 1)
		d.status = "2"
	})

	done := make(chan struct{})
	go func() {
		f.clock.Advance(DefaultPollInterval)
		close(done)
	}()
	<-f.device.entered

	require.NoError(t, task.Stop())
	cancel()
	assert.Zero(t, f.clock.Active())

	close(release)
	<-done

	// the in-flight read completed on a live context and was applied
	assert.Equal(t, actuator.Blinking, f.c.Snapshot().State)
	f.device.mu.Lock()
	last := f.device.ctxErrs[len(f.device.ctxErrs)-1]
	f.device.mu.Unlock()
	assert.NoError(t, last)

	f.clock.Advance(10 * DefaultPollInterval)
	assert.Equal(t, 2, f.device.count("GET", "/STATUS"))
}

func TestSingleFlightSkipsOverlappingTicks(t *testing.T) {
	m := &skipCounter{}
	f := newFixture(t, newFakeDevice("1"), func(o *Options) {
		o.SingleFlight = true
		o.Metrics = m
	})
	f.resolve(t)
	task, err := f.c.StartPolling(context.Background())
	require.NoError(t, err)
	defer task.Stop()

	release := make(chan struct{})
	f.device.set(func(d *fakeDevice) {
		d.block = release
		d.entered = make(chan transport.Request, 1)
	})
	done := make(chan struct{})
	go func() {
		_ = f.c.ReadStatus(context.Background())
		close(done)
	}()
	<-f.device.entered

	f.clock.Advance(DefaultPollInterval)
	assert.Equal(t, 2, f.device.count("GET", "/STATUS"), "tick skipped while a read is outstanding")
	assert.Equal(t, int32(1), m.skipped.Load())

	close(release)
	<-done
	f.device.set(func(d *fakeDevice) { d.block = nil; d.entered = nil })

	f.clock.Advance(DefaultPollInterval)
	assert.Equal(t, 3, f.device.count("GET", "/STATUS"))
}

func TestRunResolvesThenPolls(t *testing.T) {
	f := newFixture(t, newFakeDevice("1"))

	var attempts atomic.Int32
	r := resolverFunc(func(ctx context.Context) (string, error) {
		if attempts.Add(1) < 3 {
			return "", resolver.ErrNotFound
		}
		return testBase, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.c.Run(ctx, r, time.Millisecond) }()

	require.Eventually(t, func() bool { return f.c.Snapshot().State == actuator.On }, 2*time.Second, time.Millisecond)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, 1, f.clock.Active())

	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, f.clock.Active())
}

func TestRunCancelledWhileResolving(t *testing.T) {
	f := newFixture(t, newFakeDevice("1"))
	r := resolverFunc(func(ctx context.Context) (string, error) { return "", resolver.ErrNotFound })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.c.Run(ctx, r, time.Hour) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, f.c.Snapshot().Resolved)
	assert.Empty(t, f.device.Requests())
}

func TestRunWithPresetAddressSkipsResolver(t *testing.T) {
	f := newFixture(t, newFakeDevice("0"))
	f.resolve(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.c.Run(ctx, nil, 0) }()

	require.Eventually(t, func() bool { return f.c.Snapshot().State == actuator.Off }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

type resolverFunc func(ctx context.Context) (string, error)

func (f resolverFunc) Resolve(ctx context.Context) (string, error) { return f(ctx) }
func (f resolverFunc) Name() string                                { return "func" }
