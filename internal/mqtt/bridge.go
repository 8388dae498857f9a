// Package mqtt mirrors the controller onto an MQTT broker: availability with a
// last will, a retained JSON state, a command topic and Home Assistant discovery.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"led-state-controller/internal/actuator"
	"led-state-controller/internal/config"
	"led-state-controller/internal/controller"
	ctlerrors "led-state-controller/internal/errors"
	"led-state-controller/internal/logger"
	"led-state-controller/internal/metrics"
)

const publishTimeout = 5 * time.Second

// CommandHandler executes a command received on the set topic
type CommandHandler func(ctx context.Context, cmd actuator.Command) error

// StatePayload is the retained document on the state topic
type StatePayload struct {
	State       string     `json:"state"`
	Mode        string     `json:"mode"`
	StatusText  string     `json:"status_text"`
	LastError   string     `json:"last_error,omitempty"`
	Busy        bool       `json:"busy"`
	BaseAddress string     `json:"base_address,omitempty"`
	LastPoll    *time.Time `json:"last_poll,omitempty"`
	SessionID   string     `json:"session_id"`
}

// NewStatePayload converts a controller snapshot
func NewStatePayload(snap controller.Snapshot) StatePayload {
	mode := "unknown"
	if cmd, ok := actuator.CommandFor(snap.State); ok {
		mode = cmd.Name()
	}
	return StatePayload{
		State:       snap.State.String(),
		Mode:        mode,
		StatusText:  snap.StatusText,
		LastError:   snap.LastError,
		Busy:        snap.Busy,
		BaseAddress: snap.BaseAddress,
		LastPoll:    snap.LastPoll,
		SessionID:   snap.SessionID,
	}
}

// Bridge publishes controller state and accepts commands over MQTT
type Bridge struct {
	client   paho.Client
	settings config.MQTTSettings
	ha       config.HomeAssistantSettings
	topics   *TopicFactory
	handler  CommandHandler
	metrics  metrics.MetricsCollector
	log      logger.ILogger

	mu        sync.Mutex
	lastState string

	// pending holds the newest snapshot not yet handed to the broker
	pending  chan controller.Snapshot
	loopOnce sync.Once
	stopOnce sync.Once
	stop     context.CancelFunc
	loopCtx  context.Context
}

// NewBridge creates a bridge with a paho client configured from settings.
// The client id gets a random suffix so that restarts never collide.
func NewBridge(settings config.MQTTSettings, ha config.HomeAssistantSettings, handler CommandHandler,
	m metrics.MetricsCollector, log logger.ILogger) *Bridge {
	b := newBridge(settings, ha, handler, m, log)

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", settings.Broker, settings.Port))
	opts.SetClientID(fmt.Sprintf("%s_%s", settings.ClientID, uuid.NewString()[:8]))
	opts.SetUsername(settings.Username)
	opts.SetPassword(settings.Password)
	opts.SetAutoReconnect(true)

	keepAlive := settings.KeepAlive
	if keepAlive == 0 {
		keepAlive = 60 * time.Second
	}
	opts.SetKeepAlive(keepAlive)
	opts.SetPingTimeout(10 * time.Second)

	// The broker marks the controller offline when the connection drops
	opts.SetWill(b.topics.Availability(), PayloadOffline, 1, true)

	opts.SetOnConnectHandler(b.onConnect)
	opts.SetConnectionLostHandler(func(client paho.Client, err error) {
		b.log.LogError("MQTT connection lost: %v", err)
	})

	b.client = paho.NewClient(opts)
	return b
}

// NewBridgeWithClient wires a bridge around an existing client
func NewBridgeWithClient(client paho.Client, settings config.MQTTSettings, ha config.HomeAssistantSettings,
	handler CommandHandler, m metrics.MetricsCollector, log logger.ILogger) *Bridge {
	b := newBridge(settings, ha, handler, m, log)
	b.client = client
	return b
}

func newBridge(settings config.MQTTSettings, ha config.HomeAssistantSettings, handler CommandHandler,
	m metrics.MetricsCollector, log logger.ILogger) *Bridge {
	if m == nil {
		m = metrics.NewNullMetrics()
	}
	if log == nil {
		log = logger.NewStandardLogger()
	}
	deviceID := ha.DeviceID
	if deviceID == "" {
		deviceID = settings.ClientID
	}
	loopCtx, stop := context.WithCancel(context.Background())
	return &Bridge{
		settings: settings,
		ha:       ha,
		topics:   NewTopicFactory(settings.BaseTopic, ha.DiscoveryPrefix, deviceID),
		handler:  handler,
		metrics:  m,
		log:      log,
		pending:  make(chan controller.Snapshot, 1),
		loopCtx:  loopCtx,
		stop:     stop,
	}
}

// Topics exposes the topic layout
func (b *Bridge) Topics() *TopicFactory {
	return b.topics
}

// onConnect runs after every (re)connection: announce availability,
// resubscribe and republish discovery
func (b *Bridge) onConnect(client paho.Client) {
	b.log.LogInfo("📡 Connected to MQTT broker %s:%d", b.settings.Broker, b.settings.Port)

	if token := client.Publish(b.topics.Availability(), 1, true, PayloadOnline); token.WaitTimeout(publishTimeout) && token.Error() != nil {
		b.log.LogWarn("Error publishing online status on connect: %v", token.Error())
	}

	if b.handler != nil {
		if token := client.Subscribe(b.topics.Set(), 1, b.onSetMessage); token.WaitTimeout(publishTimeout) && token.Error() != nil {
			b.log.LogError("❌ Subscribe to %s failed: %v", b.topics.Set(), token.Error())
		} else {
			b.log.LogDebug("📥 Listening for commands on %s", b.topics.Set())
		}
	}

	if b.ha.Enabled {
		if err := b.PublishDiscovery(context.Background()); err != nil {
			b.log.LogError("❌ Error publishing Home Assistant discovery: %v", err)
		}
	}

	// a reconnect must republish the retained state even if it did not change
	b.mu.Lock()
	b.lastState = ""
	b.mu.Unlock()
}

func (b *Bridge) onSetMessage(client paho.Client, msg paho.Message) {
	payload := strings.TrimSpace(string(msg.Payload()))
	cmd, err := actuator.ParseCommand(payload)
	if err != nil {
		b.log.LogWarn("⚠️  Ignoring command %q on %s: %v", payload, msg.Topic(), err)
		return
	}
	b.log.LogInfo("📥 MQTT command %s", cmd.Endpoint())

	// paho delivers messages on its own goroutine, which must not block
	go func() {
		if err := b.handler(context.Background(), cmd); err != nil {
			b.log.LogDebug("MQTT command %s finished with error: %v", cmd.Endpoint(), err)
		}
	}()
}

// Connect connects to the broker, retrying until success or ctx is done
func (b *Bridge) Connect(ctx context.Context) error {
	retryDelay := b.settings.RetryDelay
	if retryDelay == 0 {
		retryDelay = 5 * time.Second
	}

	attempt := 1
	for {
		b.log.LogDebug("🔄 Attempting to connect to MQTT broker (attempt %d)...", attempt)

		token := b.client.Connect()
		if token.Wait() && token.Error() == nil && b.waitConnected(ctx) {
			b.log.LogInfo("✅ Connected to MQTT broker after %d attempt(s)", attempt)
			return nil
		}
		if ctx.Err() != nil {
			return ctlerrors.NewMQTTError("connect", ctx.Err(), b.settings.Broker)
		}
		if token.Error() != nil {
			b.log.LogError("❌ MQTT connection failed (attempt %d): %v", attempt, token.Error())
		} else {
			b.log.LogWarn("⏰ MQTT connection establishment timeout (attempt %d)", attempt)
		}
		b.log.LogInfo("⏳ Retrying in %.0f seconds...", retryDelay.Seconds())

		select {
		case <-ctx.Done():
			return ctlerrors.NewMQTTError("connect", ctx.Err(), b.settings.Broker)
		case <-time.After(retryDelay):
			attempt++
		}
	}
}

func (b *Bridge) waitConnected(ctx context.Context) bool {
	for i := 0; i < 50; i++ {
		if b.client.IsConnected() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(100 * time.Millisecond):
		}
	}
	return false
}

// Disconnect announces offline and closes the connection
func (b *Bridge) Disconnect() {
	b.stopOnce.Do(b.stop)
	if !b.client.IsConnected() {
		return
	}
	token := b.client.Publish(b.topics.Availability(), 1, true, PayloadOffline)
	token.WaitTimeout(time.Second)
	b.client.Disconnect(250)
	b.log.LogInfo("🔌 Disconnected from MQTT broker")
}

// IsConnected reports the client connection state
func (b *Bridge) IsConnected() bool {
	return b.client.IsConnected()
}

func (b *Bridge) publish(ctx context.Context, topic string, retained bool, payload interface{}) error {
	if !b.client.IsConnected() {
		b.metrics.IncrementMQTTErrors()
		return ctlerrors.NewMQTTError("publish", fmt.Errorf("client is not connected"), b.settings.Broker)
	}

	token := b.client.Publish(topic, 1, retained, payload)
	select {
	case <-ctx.Done():
		b.metrics.IncrementMQTTErrors()
		return ctx.Err()
	case <-token.Done():
	case <-time.After(publishTimeout):
		b.metrics.IncrementMQTTErrors()
		return ctlerrors.NewMQTTError("publish", fmt.Errorf("timeout publishing to %s", topic), b.settings.Broker)
	}
	if err := token.Error(); err != nil {
		b.metrics.IncrementMQTTErrors()
		return ctlerrors.NewMQTTError("publish", err, b.settings.Broker)
	}
	b.metrics.IncrementMQTTPublishes()
	return nil
}

func (b *Bridge) publishJSON(ctx context.Context, topic string, retained bool, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error serializing payload for %s: %w", topic, err)
	}
	return b.publish(ctx, topic, retained, payload)
}

// PublishSnapshot publishes the retained state document
func (b *Bridge) PublishSnapshot(ctx context.Context, snap controller.Snapshot) error {
	if err := b.publishJSON(ctx, b.topics.State(), true, NewStatePayload(snap)); err != nil {
		return err
	}
	b.mu.Lock()
	b.lastState = stateKey(snap)
	b.mu.Unlock()
	return nil
}

// stateKey identifies a snapshot for change detection, ignoring poll time and busy
func stateKey(snap controller.Snapshot) string {
	return snap.State.String() + "|" + snap.LastError + "|" + snap.BaseAddress
}

// PublishDeviceAvailability publishes whether the LED device answers status reads
func (b *Bridge) PublishDeviceAvailability(ctx context.Context, online bool) error {
	payload := PayloadOffline
	if online {
		payload = PayloadOnline
	}
	return b.publish(ctx, b.topics.Device(), true, payload)
}

// PublishStatusOnline publishes "online" for the controller itself
func (b *Bridge) PublishStatusOnline(ctx context.Context) error {
	return b.publish(ctx, b.topics.Availability(), true, PayloadOnline)
}

// PublishDiagnostic publishes diagnostic information with code and message
func (b *Bridge) PublishDiagnostic(ctx context.Context, code int, message string) error {
	diagnostic := map[string]interface{}{
		"code":      code,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	b.log.LogDebug("🔧 📤 Publishing diagnostic to '%s': %s", b.topics.Diagnostic(), message)
	return b.publishJSON(ctx, b.topics.Diagnostic(), false, diagnostic)
}

// PublishDiscovery publishes the Home Assistant entity configurations
func (b *Bridge) PublishDiscovery(ctx context.Context) error {
	configs := []struct {
		topic string
		cfg   interface{}
	}{
		{b.topics.SelectDiscovery(), BuildSelectConfig(b.topics, b.ha)},
		{b.topics.ConnectivityDiscovery(), BuildConnectivityConfig(b.topics, b.ha)},
		{b.topics.DiagnosticDiscovery(), BuildDiagnosticConfig(b.topics, b.ha)},
	}
	for _, c := range configs {
		b.log.LogDebug("📡 Publishing discovery: %s", c.topic)
		if err := b.publishJSON(ctx, c.topic, true, c.cfg); err != nil {
			return err
		}
	}
	return nil
}

// Observe is a controller subscriber. It queues the state document for
// publishing when state, error or address differ from the last one queued.
// Only the newest snapshot waits; publishing happens on the bridge's own
// goroutine so a slow broker never holds up the controller.
func (b *Bridge) Observe(ev controller.Event) {
	switch ev.Kind {
	case controller.EventReadCompleted, controller.EventCommandCompleted, controller.EventCommandSettled, controller.EventAddressResolved:
	default:
		return
	}
	if !b.client.IsConnected() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	key := stateKey(ev.Snapshot)
	if key == b.lastState {
		return
	}
	b.lastState = key

	select {
	case <-b.pending:
	default:
	}
	b.pending <- ev.Snapshot
	b.loopOnce.Do(func() { go b.publishLoop() })
}

func (b *Bridge) publishLoop() {
	for {
		select {
		case <-b.loopCtx.Done():
			return
		case snap := <-b.pending:
			if err := b.publishJSON(b.loopCtx, b.topics.State(), true, NewStatePayload(snap)); err != nil {
				b.log.LogWarn("⚠️  State publish failed: %v", err)
				// let the next identical snapshot try again
				b.mu.Lock()
				if b.lastState == stateKey(snap) {
					b.lastState = ""
				}
				b.mu.Unlock()
			}
		}
	}
}
