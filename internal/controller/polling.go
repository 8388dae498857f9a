package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"led-state-controller/internal/clock"
	ctlerrors "led-state-controller/internal/errors"
	"led-state-controller/internal/resolver"
)

// DefaultResolveRetry is the wait between failed address resolutions
const DefaultResolveRetry = 5 * time.Second

// PollTask is the handle of a running poll schedule
type PollTask struct {
	c    *SyncController
	task clock.Task
	once sync.Once
	err  error
}

// Stop cancels future scheduled reads. Reads already in flight finish on their own.
func (p *PollTask) Stop() error {
	p.once.Do(func() {
		p.err = p.task.Stop()
		p.c.mu.Lock()
		if p.c.poller == p {
			p.c.poller = nil
		}
		p.c.mu.Unlock()
		p.c.log.LogDebug("⏹️ [%s] Polling stopped", p.c.session.id)
	})
	return p.err
}

// StartPolling schedules ReadStatus every poll interval and performs one
// read immediately before returning. Requests run on a context detached from
// ctx so that stopping the schedule never aborts a read mid-flight.
func (c *SyncController) StartPolling(ctx context.Context) (*PollTask, error) {
	c.mu.Lock()
	if !c.session.resolved {
		c.mu.Unlock()
		return nil, ctlerrors.NewConfigurationMissingError("start_polling")
	}
	if c.poller != nil {
		c.mu.Unlock()
		return nil, ErrAlreadyPolling
	}
	p := &PollTask{c: c}
	c.poller = p
	c.mu.Unlock()

	reqCtx := context.WithoutCancel(ctx)
	task, err := c.clock.Every(c.interval, func() { c.pollTick(reqCtx) })
	if err != nil {
		c.mu.Lock()
		c.poller = nil
		c.mu.Unlock()
		return nil, err
	}
	p.task = task

	c.log.LogInfo("🔄 [%s] Polling %s every %v", c.session.id, c.Snapshot().BaseAddress, c.interval)
	_ = c.ReadStatus(reqCtx)
	return p, nil
}

// pollTick is one scheduled read. With single-flight enabled a tick is
// skipped while another read is outstanding.
func (c *SyncController) pollTick(ctx context.Context) {
	if c.singleFlight {
		c.mu.Lock()
		inFlight := c.session.readsInFlight
		c.mu.Unlock()
		if inFlight > 0 {
			c.metrics.IncrementSkippedPolls()
			c.log.LogTrace("⏭️ [%s] Poll skipped, %d read(s) outstanding", c.session.id, inFlight)
			return
		}
	}
	_ = c.ReadStatus(ctx)
}

// Run is the controller lifecycle: resolve the address if needed, poll until
// ctx is done, then stop the schedule. It returns nil on normal shutdown.
func (c *SyncController) Run(ctx context.Context, r resolver.Resolver, retry time.Duration) error {
	if !c.Snapshot().Resolved {
		addr, err := c.resolve(ctx, r, retry)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.SetBaseAddress(addr); err != nil && !errors.Is(err, ErrAddressAlreadySet) {
			return err
		}
	}

	task, err := c.StartPolling(ctx)
	if err != nil {
		return err
	}
	defer task.Stop()

	<-ctx.Done()
	return nil
}

// resolve retries r until it yields an address or ctx is done. Polling and
// commands stay inert meanwhile.
func (c *SyncController) resolve(ctx context.Context, r resolver.Resolver, retry time.Duration) (string, error) {
	if r == nil {
		return "", ctlerrors.NewConfigurationMissingError("resolve_address")
	}
	if retry <= 0 {
		retry = DefaultResolveRetry
	}

	attempt := 1
	for {
		c.log.LogDebug("🔎 [%s] Resolving device address via %s (attempt %d)", c.session.id, r.Name(), attempt)
		addr, err := r.Resolve(ctx)
		if err == nil {
			return addr, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, resolver.ErrInvalidAddress) {
			return "", ctlerrors.NewConfigError("resolve_address", err, "device.address")
		}
		c.log.LogInfo("⏳ [%s] Device address not available yet (%v), retrying in %v", c.session.id, err, retry)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(retry):
			attempt++
		}
	}
}
