// Package actuator models the remote LED: its observable state and the commands it accepts.
package actuator

import "strings"

// State is the actuator state as last reported by the device.
// The zero value is Unknown.
type State int

const (
	Unknown State = iota
	Off
	On
	Blinking
)

// States lists every state in display order
var States = []State{On, Off, Blinking, Unknown}

// Raw status tokens returned by GET /STATUS
const (
	TokenOff      = "0"
	TokenOn       = "1"
	TokenBlinking = "2"
)

// Decode maps a raw status body to a State. Surrounding whitespace is ignored
// and every unrecognized token maps to Unknown.
func Decode(raw string) State {
	switch strings.TrimSpace(raw) {
	case TokenOff:
		return Off
	case TokenOn:
		return On
	case TokenBlinking:
		return Blinking
	default:
		return Unknown
	}
}

// String returns the upper-case wire name used in MQTT payloads and JSON
func (s State) String() string {
	switch s {
	case On:
		return "ON"
	case Off:
		return "OFF"
	case Blinking:
		return "BLINKING"
	default:
		return "UNKNOWN"
	}
}

// Known reports whether the state reflects a successful device read
func (s State) Known() bool {
	return s == On || s == Off || s == Blinking
}

// ParseState is the inverse of String. Unrecognized names yield Unknown and false.
func ParseState(name string) (State, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ON":
		return On, true
	case "OFF":
		return Off, true
	case "BLINKING":
		return Blinking, true
	case "UNKNOWN":
		return Unknown, true
	default:
		return Unknown, false
	}
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name; unrecognized names become Unknown
func (s *State) UnmarshalText(text []byte) error {
	*s, _ = ParseState(string(text))
	return nil
}
