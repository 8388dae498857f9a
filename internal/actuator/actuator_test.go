package actuator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		raw  string
		want State
	}{
		{"0", Off},
		{"1", On},
		{"2", Blinking},
		{" 1 ", On},
		{"1\n", On},
		{"\t2\r\n", Blinking},
		{"", Unknown},
		{"3", Unknown},
		{"-1", Unknown},
		{"10", Unknown},
		{"ON", Unknown},
		{"1 1", Unknown},
		{"<html>error</html>", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.raw))
		})
	}
}

// Every byte string decodes to exactly one of the four variants
func TestDecodeIsTotal(t *testing.T) {
	for b := 0; b < 256; b++ {
		for _, raw := range []string{string(rune(b)), string([]byte{byte(b)}), "1" + string([]byte{byte(b)})} {
			got := Decode(raw)
			assert.Contains(t, States, got, "decode(%q)", raw)
		}
	}
}

func TestZeroStateIsUnknown(t *testing.T) {
	var s State
	assert.Equal(t, Unknown, s)
	assert.False(t, s.Known())
}

func TestStateNamesRoundTrip(t *testing.T) {
	for _, s := range States {
		parsed, ok := ParseState(s.String())
		require.True(t, ok)
		assert.Equal(t, s, parsed)
	}

	_, ok := ParseState("dimmed")
	assert.False(t, ok)
}

func TestStateJSON(t *testing.T) {
	data, err := json.Marshal(map[string]State{"state": Blinking})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"BLINKING"}`, string(data))

	var decoded struct {
		State State `json:"state"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"state":"garbage"}`), &decoded))
	assert.Equal(t, Unknown, decoded.State)
}

func TestCommandEndpoints(t *testing.T) {
	tests := []struct {
		cmd    Command
		path   string
		target State
		name   string
	}{
		{TurnOn, "/LED_ON", On, "on"},
		{TurnOff, "/LED_OFF", Off, "off"},
		{StartBlinking, "/LED_BLINK", Blinking, "blink"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.path, tt.cmd.Path())
			assert.Equal(t, tt.target, tt.cmd.Target())
			assert.Equal(t, tt.name, tt.cmd.Name())
			assert.Equal(t, tt.path[1:], tt.cmd.String())
			assert.True(t, tt.cmd.Valid())
		})
	}

	assert.False(t, Command(0).Valid())
	assert.Equal(t, "Command(0)", Command(0).String())
}

func TestParseCommand(t *testing.T) {
	accepted := map[string]Command{
		"on":        TurnOn,
		"LED_ON":    TurnOn,
		" Off ":     TurnOff,
		"led_off":   TurnOff,
		"blink":     StartBlinking,
		"BLINKING":  StartBlinking,
		"LED_BLINK": StartBlinking,
	}
	for in, want := range accepted {
		got, err := ParseCommand(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseCommand("toggle")
	assert.Error(t, err)
}

func TestCommandFor(t *testing.T) {
	for _, cmd := range Commands {
		got, ok := CommandFor(cmd.Target())
		require.True(t, ok)
		assert.Equal(t, cmd, got)
	}
	_, ok := CommandFor(Unknown)
	assert.False(t, ok)
}
