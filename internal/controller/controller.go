// Package controller keeps a local model of the LED in sync with the device.
//
// The SyncController polls GET /STATUS on a fixed interval, dispatches
// commands as POST requests and forces one status read after every accepted
// command. Requests from the poll schedule and from commands may overlap;
// whichever response completes last determines the state.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"led-state-controller/internal/actuator"
	"led-state-controller/internal/clock"
	ctlerrors "led-state-controller/internal/errors"
	"led-state-controller/internal/logger"
	"led-state-controller/internal/metrics"
	"led-state-controller/internal/resolver"
	"led-state-controller/internal/transport"
)

// DefaultPollInterval is the status polling period
const DefaultPollInterval = 2000 * time.Millisecond

// DefaultDeviceName appears in connection error messages
const DefaultDeviceName = "ESP32"

// User-facing error texts
const (
	MsgNotInitialized = "App not initialized. Base URL missing."
	msgConnectionFmt  = "Connection error: Could not connect to %s server."
	msgCommandFmt     = "Failed to set LED state: Failed to send command to %s: %s"
)

var (
	// ErrAddressAlreadySet is returned by a second SetBaseAddress
	ErrAddressAlreadySet = errors.New("base address already set")
	// ErrAlreadyPolling is returned when StartPolling is called twice without Stop
	ErrAlreadyPolling = errors.New("polling already started")
)

// Options configures a SyncController. Transport and Clock are required.
type Options struct {
	Transport    transport.Transport
	Clock        clock.Clock
	PollInterval time.Duration
	DeviceName   string
	SingleFlight bool
	Suppression  ErrorSuppression
	Metrics      metrics.MetricsCollector
	Logger       logger.ILogger
	SessionID    string
	Now          func() time.Time
}

// SyncController owns the session and is its only mutator
type SyncController struct {
	transport    transport.Transport
	clock        clock.Clock
	interval     time.Duration
	deviceName   string
	singleFlight bool
	suppression  ErrorSuppression
	metrics      metrics.MetricsCollector
	log          logger.ILogger
	now          func() time.Time

	mu      sync.Mutex
	session session
	poller  *PollTask

	subMu       sync.RWMutex
	subscribers map[int]Subscriber
	nextSubID   int
}

// New creates a controller with an unresolved address and Unknown state
func New(opts Options) (*SyncController, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("controller: transport is required")
	}
	if opts.Clock == nil {
		return nil, fmt.Errorf("controller: clock is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.DeviceName == "" {
		opts.DeviceName = DefaultDeviceName
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNullMetrics()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewStandardLogger()
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &SyncController{
		transport:    opts.Transport,
		clock:        opts.Clock,
		interval:     opts.PollInterval,
		deviceName:   opts.DeviceName,
		singleFlight: opts.SingleFlight,
		suppression:  opts.Suppression,
		metrics:      opts.Metrics,
		log:          opts.Logger,
		now:          opts.Now,
		session:      newSession(opts.SessionID),
		subscribers:  make(map[int]Subscriber),
	}, nil
}

// SessionID identifies this controller run in logs and published events
func (c *SyncController) SessionID() string {
	return c.session.id
}

// PollInterval returns the configured polling period
func (c *SyncController) PollInterval() time.Duration {
	return c.interval
}

// Snapshot returns a consistent copy of the session
func (c *SyncController) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.snapshot()
}

// Subscribe registers fn for every subsequent event. The returned function unsubscribes.
func (c *SyncController) Subscribe(fn Subscriber) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subscribers, id)
		c.subMu.Unlock()
	}
}

// emit runs after c.mu is released, so two operations finishing together
// may reach subscribers in either order. The next poll corrects any stale
// state a subscriber saw.
func (c *SyncController) emit(ev Event) {
	c.subMu.RLock()
	subs := make([]Subscriber, 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.subMu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// SetBaseAddress records the device origin. It succeeds once; later calls
// return ErrAddressAlreadySet and change nothing.
func (c *SyncController) SetBaseAddress(addr string) error {
	normalized, err := resolver.Normalize(addr)
	if err != nil {
		return ctlerrors.NewConfigError("set_base_address", err, "device.address")
	}

	c.mu.Lock()
	if c.session.resolved {
		c.mu.Unlock()
		return ErrAddressAlreadySet
	}
	c.session.baseAddress = normalized
	c.session.resolved = true
	snap := c.session.snapshot()
	c.mu.Unlock()

	c.log.LogInfo("🔗 [%s] Device base address: %s", c.session.id, normalized)
	c.emit(Event{Kind: EventAddressResolved, Snapshot: snap, Previous: snap.State})
	return nil
}

// ReadStatus issues one GET /STATUS and stores the decoded state.
// Before the address is known it does nothing and returns nil.
// A failure sets the state to Unknown and returns a TransportError; whether
// lastError is set depends on the suppression policy.
func (c *SyncController) ReadStatus(ctx context.Context) error {
	c.mu.Lock()
	if !c.session.resolved {
		c.mu.Unlock()
		return nil
	}
	url := c.session.baseAddress + actuator.PathStatus
	prev := c.session.state
	c.session.lastError = ""
	c.session.readsInFlight++
	started := c.session.snapshot()
	c.mu.Unlock()
	c.emit(Event{Kind: EventReadStarted, Snapshot: started, Previous: prev})

	begin := time.Now()
	resp, err := c.transport.Do(ctx, transport.Request{Method: "GET", URL: url})
	elapsed := time.Since(begin)

	var readErr error
	switch {
	case err != nil:
		readErr = ctlerrors.NewTransportError("read_status", err, url, 0)
	case !resp.OK():
		readErr = ctlerrors.NewTransportError("read_status",
			fmt.Errorf("unexpected status %d", resp.StatusCode), url, resp.StatusCode)
	}

	c.mu.Lock()
	c.session.readsInFlight--
	c.session.lastPoll = c.now()
	prev = c.session.state
	suppressed := false
	if readErr != nil {
		c.session.state = actuator.Unknown
		suppressed = c.session.suppressReadError(prev, c.suppression)
		if !suppressed {
			c.session.lastError = fmt.Sprintf(msgConnectionFmt, c.deviceName)
		}
	} else {
		c.session.state = decodeReply(resp)
		c.session.everConnected = true
	}
	snap := c.session.snapshot()
	c.mu.Unlock()

	c.metrics.ObserveStatusReadDuration(elapsed)
	c.metrics.SetActuatorState(snap.State)
	if readErr != nil {
		c.metrics.IncrementStatusReadErrors()
		if suppressed {
			c.log.LogDebug("🔌 [%s] Status read failed (suppressed): %v", c.session.id, readErr)
		} else {
			c.log.LogWarn("🔌 [%s] Status read failed, state %s -> UNKNOWN: %v", c.session.id, prev, readErr)
		}
	} else {
		c.metrics.IncrementStatusReads()
		if prev != snap.State {
			c.log.LogInfo("💡 [%s] State %s -> %s", c.session.id, prev, snap.State)
		} else {
			c.log.LogTrace("💡 [%s] State unchanged: %s", c.session.id, snap.State)
		}
	}

	c.emit(Event{Kind: EventReadCompleted, Snapshot: snap, Previous: prev, Err: readErr, Duration: elapsed})
	return readErr
}

// decodeReply maps a status reply to a state. A truncated body is not a
// single token, whatever its prefix says.
func decodeReply(resp *transport.Response) actuator.State {
	if resp.Truncated {
		return actuator.Unknown
	}
	return actuator.Decode(string(resp.Body))
}

// SendCommand POSTs cmd to the device. On success it performs exactly one
// forced ReadStatus and returns nil whatever that read's outcome. On failure
// it records the failure in lastError, leaves the state as it was and
// returns a CommandError. Without an address it returns a
// ConfigurationMissingError and makes no request.
func (c *SyncController) SendCommand(ctx context.Context, cmd actuator.Command) error {
	if !cmd.Valid() {
		return ctlerrors.NewValidationError("command", "on, off or blink", int(cmd))
	}

	c.mu.Lock()
	if !c.session.resolved {
		c.session.lastError = MsgNotInitialized
		snap := c.session.snapshot()
		c.mu.Unlock()

		err := ctlerrors.NewConfigurationMissingError("send_command")
		c.log.LogWarn("⛔ [%s] %s rejected: %s", c.session.id, cmd, MsgNotInitialized)
		c.emit(Event{Kind: EventCommandCompleted, Snapshot: snap, Previous: snap.State, Command: cmd, Err: err})
		return err
	}
	url := c.session.baseAddress + cmd.Path()
	c.session.lastError = ""
	c.session.pending[cmd]++
	started := c.session.snapshot()
	c.mu.Unlock()
	c.emit(Event{Kind: EventCommandStarted, Snapshot: started, Previous: started.State, Command: cmd})

	c.log.LogDebug("📤 [%s] POST %s", c.session.id, url)
	begin := time.Now()
	resp, err := c.transport.Do(ctx, transport.Request{Method: "POST", URL: url})
	elapsed := time.Since(begin)

	var cmdErr *ctlerrors.CommandError
	switch {
	case err != nil:
		cmdErr = ctlerrors.NewCommandError(cmd.Endpoint(), err, 0)
	case !resp.OK():
		cmdErr = ctlerrors.NewCommandError(cmd.Endpoint(),
			fmt.Errorf("unexpected status %d", resp.StatusCode), resp.StatusCode)
	}

	if cmdErr != nil {
		c.mu.Lock()
		c.session.pending[cmd]--
		c.session.lastError = fmt.Sprintf(msgCommandFmt, cmd.Endpoint(), cmdErr.Reason())
		snap := c.session.snapshot()
		c.mu.Unlock()

		c.metrics.IncrementCommandErrors(cmd.Endpoint())
		c.log.LogError("[%s] Command %s failed: %s", c.session.id, cmd, cmdErr.Reason())
		c.emit(Event{Kind: EventCommandCompleted, Snapshot: snap, Previous: snap.State, Command: cmd, Err: cmdErr, Duration: elapsed})
		return cmdErr
	}

	c.metrics.IncrementCommands(cmd.Endpoint())
	c.log.LogInfo("✅ [%s] Command %s accepted in %v", c.session.id, cmd, elapsed)
	accepted := c.Snapshot()
	c.emit(Event{Kind: EventCommandCompleted, Snapshot: accepted, Previous: accepted.State, Command: cmd, Duration: elapsed})

	// forced re-read; its outcome is reported through state and lastError
	_ = c.ReadStatus(ctx)

	c.mu.Lock()
	c.session.pending[cmd]--
	settled := c.session.snapshot()
	c.mu.Unlock()
	c.emit(Event{Kind: EventCommandSettled, Snapshot: settled, Previous: settled.State, Command: cmd})
	return nil
}
