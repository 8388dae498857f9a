package controller

import (
	"time"

	"led-state-controller/internal/actuator"
)

// EventKind identifies what changed the session
type EventKind int

const (
	EventAddressResolved EventKind = iota + 1
	EventReadStarted
	EventReadCompleted
	EventCommandStarted
	EventCommandCompleted
	EventCommandSettled
)

func (k EventKind) String() string {
	switch k {
	case EventAddressResolved:
		return "address_resolved"
	case EventReadStarted:
		return "read_started"
	case EventReadCompleted:
		return "read_completed"
	case EventCommandStarted:
		return "command_started"
	case EventCommandCompleted:
		return "command_completed"
	case EventCommandSettled:
		return "command_settled"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after every session mutation.
// Err is set on failed reads and commands. Previous is the state before the mutation.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
	Previous actuator.State
	Command  actuator.Command
	Err      error
	Duration time.Duration
}

// StateChanged reports whether the event moved the actuator state
func (e Event) StateChanged() bool {
	return e.Previous != e.Snapshot.State
}

// Subscriber receives events synchronously on the goroutine that caused them.
// It must not block and must not call back into the controller's mutating methods.
type Subscriber func(Event)
