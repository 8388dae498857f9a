package controller

import (
	"time"

	"led-state-controller/internal/actuator"
)

// ErrorSuppression decides when a failed status read stays silent
type ErrorSuppression int

const (
	// SuppressWhileUnknown hides read errors whenever the state before the
	// read was already Unknown
	SuppressWhileUnknown ErrorSuppression = iota
	// SuppressUntilConnected hides read errors only until the first
	// successful read of the session
	SuppressUntilConnected
)

// ParseErrorSuppression maps config names to policies
func ParseErrorSuppression(name string) (ErrorSuppression, bool) {
	switch name {
	case "", "unknown_state":
		return SuppressWhileUnknown, true
	case "never_connected":
		return SuppressUntilConnected, true
	default:
		return SuppressWhileUnknown, false
	}
}

func (p ErrorSuppression) String() string {
	if p == SuppressUntilConnected {
		return "never_connected"
	}
	return "unknown_state"
}

// session is the in-memory state of one controller run. Guarded by SyncController.mu.
type session struct {
	id            string
	baseAddress   string
	resolved      bool
	state         actuator.State
	lastError     string
	readsInFlight int
	pending       map[actuator.Command]int
	everConnected bool
	lastPoll      time.Time
}

func newSession(id string) session {
	return session{
		id:      id,
		state:   actuator.Unknown,
		pending: make(map[actuator.Command]int),
	}
}

func (s *session) busy() bool {
	if s.readsInFlight > 0 {
		return true
	}
	for _, n := range s.pending {
		if n > 0 {
			return true
		}
	}
	return false
}

func (s *session) suppressReadError(prev actuator.State, policy ErrorSuppression) bool {
	if policy == SuppressUntilConnected {
		return !s.everConnected
	}
	return prev == actuator.Unknown
}
