// Package events publishes controller state changes to NATS.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"led-state-controller/internal/controller"
	ctlerrors "led-state-controller/internal/errors"
	"led-state-controller/internal/logger"
	"led-state-controller/internal/metrics"
)

// Subject suffixes appended to the configured subject
const (
	SuffixState    = "changed"
	SuffixCommand  = "command"
	SuffixResolved = "resolved"
)

// Conn is the part of *nats.Conn the publisher uses
type Conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// StateEvent is the JSON document published for each notable controller event
type StateEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	SessionID   string    `json:"session_id"`
	State       string    `json:"state"`
	Previous    string    `json:"previous,omitempty"`
	Command     string    `json:"command,omitempty"`
	Error       string    `json:"error,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	BaseAddress string    `json:"base_address,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher forwards state changes, command outcomes and address resolution
type Publisher struct {
	conn    Conn
	subject string
	metrics metrics.MetricsCollector
	log     logger.ILogger
	now     func() time.Time
}

// Connect dials url and returns a publisher on subject. The connection
// reconnects forever in the background.
func Connect(url, subject string, m metrics.MetricsCollector, log logger.ILogger) (*Publisher, error) {
	if log == nil {
		log = logger.NewStandardLogger()
	}
	conn, err := nats.Connect(url,
		nats.Name("ledctl"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.LogWarn("⚠️  NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.LogInfo("🔁 NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, ctlerrors.NewEventError("connect", fmt.Errorf("%s: %w", url, err), subject)
	}
	log.LogInfo("📨 Publishing state events to NATS %s on %s.*", url, subject)
	return NewPublisher(conn, subject, m, log), nil
}

// NewPublisher wraps an established connection
func NewPublisher(conn Conn, subject string, m metrics.MetricsCollector, log logger.ILogger) *Publisher {
	if m == nil {
		m = metrics.NewNullMetrics()
	}
	if log == nil {
		log = logger.NewStandardLogger()
	}
	return &Publisher{conn: conn, subject: subject, metrics: m, log: log, now: time.Now}
}

// Observe is a controller subscriber
func (p *Publisher) Observe(ev controller.Event) {
	var suffix string
	switch {
	case ev.Kind == controller.EventReadCompleted && ev.StateChanged():
		suffix = SuffixState
	case ev.Kind == controller.EventCommandCompleted:
		suffix = SuffixCommand
	case ev.Kind == controller.EventAddressResolved:
		suffix = SuffixResolved
	default:
		return
	}

	if err := p.Publish(suffix, ev); err != nil {
		p.log.LogWarn("⚠️  %v", err)
	}
}

// Publish sends ev on <subject>.<suffix>
func (p *Publisher) Publish(suffix string, ev controller.Event) error {
	subject := p.subject + "." + suffix
	doc := StateEvent{
		ID:          uuid.NewString(),
		Type:        ev.Kind.String(),
		SessionID:   ev.Snapshot.SessionID,
		State:       ev.Snapshot.State.String(),
		LastError:   ev.Snapshot.LastError,
		BaseAddress: ev.Snapshot.BaseAddress,
		Timestamp:   p.now().UTC(),
	}
	if ev.Previous != ev.Snapshot.State {
		doc.Previous = ev.Previous.String()
	}
	if ev.Command.Valid() {
		doc.Command = ev.Command.Endpoint()
	}
	if ev.Err != nil {
		doc.Error = ev.Err.Error()
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return ctlerrors.NewEventError("marshal", err, subject)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.metrics.IncrementEventErrors()
		return ctlerrors.NewEventError("publish", err, subject)
	}
	p.metrics.IncrementEventPublishes()
	p.log.LogTrace("📨 %s %s", subject, doc.State)
	return nil
}

// Close flushes pending messages and closes the connection
func (p *Publisher) Close() {
	if err := p.conn.FlushTimeout(2 * time.Second); err != nil {
		p.log.LogDebug("NATS flush on close: %v", err)
	}
	p.conn.Close()
}
