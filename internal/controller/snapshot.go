package controller

import (
	"time"

	"led-state-controller/internal/actuator"
)

// Control is one command button of the view
type Control struct {
	Command  actuator.Command `json:"-"`
	Name     string           `json:"name"`
	Label    string           `json:"label"`
	Target   actuator.State   `json:"target"`
	Pending  bool             `json:"pending"`
	Disabled bool             `json:"disabled"`
}

// Snapshot is a consistent copy of the session plus everything a view needs
type Snapshot struct {
	SessionID   string         `json:"session_id"`
	BaseAddress string         `json:"base_address,omitempty"`
	Resolved    bool           `json:"resolved"`
	State       actuator.State `json:"state"`
	StatusText  string         `json:"status_text"`
	Busy        bool           `json:"busy"`
	LastError   string         `json:"last_error,omitempty"`
	LastPoll    *time.Time     `json:"last_poll,omitempty"`
	Controls    []Control      `json:"controls"`
}

// Control returns the control for cmd
func (s Snapshot) Control(cmd actuator.Command) (Control, bool) {
	for _, c := range s.Controls {
		if c.Command == cmd {
			return c, true
		}
	}
	return Control{}, false
}

// StatusText is the headline shown for a state
func StatusText(state actuator.State, resolved bool) string {
	switch state {
	case actuator.On:
		return "Status: ON (Steady)"
	case actuator.Off:
		return "Status: OFF"
	case actuator.Blinking:
		return "Status: BLINKING"
	default:
		if !resolved {
			return "Initializing..."
		}
		return "Connecting..."
	}
}

func (s *session) snapshot() Snapshot {
	snap := Snapshot{
		SessionID:   s.id,
		BaseAddress: s.baseAddress,
		Resolved:    s.resolved,
		State:       s.state,
		StatusText:  StatusText(s.state, s.resolved),
		Busy:        s.busy(),
		LastError:   s.lastError,
		Controls:    make([]Control, 0, len(actuator.Commands)),
	}
	if !s.lastPoll.IsZero() {
		t := s.lastPoll
		snap.LastPoll = &t
	}
	for _, cmd := range actuator.Commands {
		pending := s.pending[cmd] > 0
		snap.Controls = append(snap.Controls, Control{
			Command:  cmd,
			Name:     cmd.Name(),
			Label:    cmd.Label(),
			Target:   cmd.Target(),
			Pending:  pending,
			Disabled: !s.resolved || pending || s.state == cmd.Target(),
		})
	}
	return snap
}
