package actuator

import (
	"fmt"
	"strings"
)

// Command is a state-change request sent to the device
type Command int

const (
	TurnOn Command = iota + 1
	TurnOff
	StartBlinking
)

// Commands lists every command in the order the controls are shown
var Commands = []Command{TurnOn, StartBlinking, TurnOff}

// Device endpoints
const (
	PathStatus = "/STATUS"
	PathOn     = "/LED_ON"
	PathOff    = "/LED_OFF"
	PathBlink  = "/LED_BLINK"
)

// Path returns the device endpoint the command is POSTed to
func (c Command) Path() string {
	switch c {
	case TurnOn:
		return PathOn
	case TurnOff:
		return PathOff
	case StartBlinking:
		return PathBlink
	default:
		return ""
	}
}

// Endpoint is the path without its leading slash, as shown in error messages
func (c Command) Endpoint() string {
	return strings.TrimPrefix(c.Path(), "/")
}

// Target is the state the device is expected to report after the command
func (c Command) Target() State {
	switch c {
	case TurnOn:
		return On
	case TurnOff:
		return Off
	case StartBlinking:
		return Blinking
	default:
		return Unknown
	}
}

// Label is the button caption
func (c Command) Label() string {
	switch c {
	case TurnOn:
		return "Turn ON"
	case TurnOff:
		return "Turn OFF"
	case StartBlinking:
		return "Blink"
	default:
		return "Unknown"
	}
}

// Name is the short lower-case command name used by the CLI and HTTP routes
func (c Command) Name() string {
	switch c {
	case TurnOn:
		return "on"
	case TurnOff:
		return "off"
	case StartBlinking:
		return "blink"
	default:
		return ""
	}
}

func (c Command) String() string {
	if e := c.Endpoint(); e != "" {
		return e
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Valid reports whether c is one of the three known commands
func (c Command) Valid() bool {
	return c.Path() != ""
}

// ParseCommand accepts the short names (on, off, blink), the endpoint names
// (LED_ON, LED_OFF, LED_BLINK) and the target state names (ON, OFF, BLINKING).
// Matching is case-insensitive.
func ParseCommand(s string) (Command, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON", "LED_ON", "TURN_ON":
		return TurnOn, nil
	case "OFF", "LED_OFF", "TURN_OFF":
		return TurnOff, nil
	case "BLINK", "BLINKING", "LED_BLINK", "START_BLINKING":
		return StartBlinking, nil
	default:
		return 0, fmt.Errorf("unknown command %q", s)
	}
}

// CommandFor returns the command whose target is s. Unknown has none.
func CommandFor(s State) (Command, bool) {
	for _, cmd := range Commands {
		if cmd.Target() == s {
			return cmd, true
		}
	}
	return 0, false
}
