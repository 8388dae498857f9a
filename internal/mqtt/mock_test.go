package mqtt

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type mockToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *mockToken {
	t := &mockToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *mockToken) Wait() bool                     { return true }
func (t *mockToken) WaitTimeout(time.Duration) bool { return true }
func (t *mockToken) Done() <-chan struct{}          { return t.done }
func (t *mockToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type mockClient struct {
	mu            sync.Mutex
	connected     bool
	connectErrs   []error // consumed one per Connect call
	connectCalls  int
	publishErr    error
	hang          bool // Publish tokens never complete
	published     []published
	subscriptions map[string]paho.MessageHandler
	disconnected  bool
}

func newMockClient(connected bool) *mockClient {
	return &mockClient{connected: connected, subscriptions: map[string]paho.MessageHandler{}}
}

func (c *mockClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *mockClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *mockClient) Connect() paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectCalls++
	if len(c.connectErrs) > 0 {
		err := c.connectErrs[0]
		c.connectErrs = c.connectErrs[1:]
		if err != nil {
			return newToken(err)
		}
	}
	c.connected = true
	return newToken(nil)
}

func (c *mockClient) Disconnect(quiesce uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnected = true
}

func (c *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var body []byte
	switch p := payload.(type) {
	case string:
		body = []byte(p)
	case []byte:
		body = p
	}
	c.published = append(c.published, published{topic: topic, qos: qos, retained: retained, payload: body})
	if c.hang {
		return &mockToken{done: make(chan struct{})}
	}
	return newToken(c.publishErr)
}

func (c *mockClient) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[topic] = callback
	return newToken(nil)
}

func (c *mockClient) SubscribeMultiple(filters map[string]byte, callback paho.MessageHandler) paho.Token {
	for topic, qos := range filters {
		c.Subscribe(topic, qos, callback)
	}
	return newToken(nil)
}

func (c *mockClient) Unsubscribe(topics ...string) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range topics {
		delete(c.subscriptions, topic)
	}
	return newToken(nil)
}

func (c *mockClient) AddRoute(topic string, callback paho.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[topic] = callback
}

func (c *mockClient) OptionsReader() paho.ClientOptionsReader {
	return paho.ClientOptionsReader{}
}

func (c *mockClient) messages(topic string) []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []published
	for _, p := range c.published {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func (c *mockClient) deliver(topic, payload string) {
	c.mu.Lock()
	handler := c.subscriptions[topic]
	c.mu.Unlock()
	handler(c, &mockMessage{topic: topic, payload: []byte(payload)})
}

type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 1 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 1 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}

var _ paho.Client = (*mockClient)(nil)
var _ paho.Message = (*mockMessage)(nil)
