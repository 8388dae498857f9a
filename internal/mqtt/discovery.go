package mqtt

import (
	"led-state-controller/internal/actuator"
	"led-state-controller/internal/config"
)

// DeviceInfo information about the device
type DeviceInfo struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

// Availability is one entry of an entity's availability list
type Availability struct {
	Topic               string `json:"topic"`
	PayloadAvailable    string `json:"payload_available"`
	PayloadNotAvailable string `json:"payload_not_available"`
}

// SelectConfig configuration for the LED mode select entity
type SelectConfig struct {
	Name             string         `json:"name"`
	UniqueID         string         `json:"unique_id"`
	StateTopic       string         `json:"state_topic"`
	CommandTopic     string         `json:"command_topic"`
	Options          []string       `json:"options"`
	ValueTemplate    string         `json:"value_template"`
	CommandTemplate  string         `json:"command_template,omitempty"`
	Device           DeviceInfo     `json:"device"`
	Availability     []Availability `json:"availability"`
	AvailabilityMode string         `json:"availability_mode"`
	Icon             string         `json:"icon,omitempty"`
}

// BinarySensorConfig configuration for the connectivity sensor
type BinarySensorConfig struct {
	Name              string     `json:"name"`
	UniqueID          string     `json:"unique_id"`
	StateTopic        string     `json:"state_topic"`
	DeviceClass       string     `json:"device_class"`
	PayloadOn         string     `json:"payload_on"`
	PayloadOff        string     `json:"payload_off"`
	Device            DeviceInfo `json:"device"`
	AvailabilityTopic string     `json:"availability_topic"`
	EntityCategory    string     `json:"entity_category,omitempty"`
}

// SensorConfig configuration for a Home Assistant sensor
type SensorConfig struct {
	Name                   string     `json:"name"`
	UniqueID               string     `json:"unique_id"`
	StateTopic             string     `json:"state_topic"`
	DeviceClass            string     `json:"device_class,omitempty"`
	Device                 DeviceInfo `json:"device"`
	ValueTemplate          string     `json:"value_template"`
	AvailabilityTopic      string     `json:"availability_topic"`
	PayloadAvailable       string     `json:"payload_available"`
	PayloadNotAvailable    string     `json:"payload_not_available"`
	JSONAttributesTopic    string     `json:"json_attributes_topic,omitempty"`
	JSONAttributesTemplate string     `json:"json_attributes_template,omitempty"`
	EntityCategory         string     `json:"entity_category,omitempty"`
}

func deviceInfo(ha config.HomeAssistantSettings) DeviceInfo {
	return DeviceInfo{
		Name:         ha.DeviceName,
		Identifiers:  []string{ha.DeviceID},
		Manufacturer: ha.Manufacturer,
		Model:        ha.Model,
	}
}

// selectOptions are the command names in the order the UI shows them
func selectOptions() []string {
	options := make([]string, 0, len(actuator.Commands))
	for _, cmd := range actuator.Commands {
		options = append(options, cmd.Name())
	}
	return options
}

// BuildSelectConfig describes the LED as a select with one option per command.
// The entity is available only while both the controller and the device are online.
func BuildSelectConfig(tf *TopicFactory, ha config.HomeAssistantSettings) SelectConfig {
	return SelectConfig{
		Name:          "Mode",
		UniqueID:      tf.UniqueID("mode"),
		StateTopic:    tf.State(),
		CommandTopic:  tf.Set(),
		Options:       selectOptions(),
		ValueTemplate: "{{ value_json.mode }}",
		Device:        deviceInfo(ha),
		Availability: []Availability{
			{Topic: tf.Availability(), PayloadAvailable: PayloadOnline, PayloadNotAvailable: PayloadOffline},
			{Topic: tf.Device(), PayloadAvailable: PayloadOnline, PayloadNotAvailable: PayloadOffline},
		},
		AvailabilityMode: "all",
		Icon:             "mdi:led-on",
	}
}

// BuildConnectivityConfig describes device reachability as a binary sensor
func BuildConnectivityConfig(tf *TopicFactory, ha config.HomeAssistantSettings) BinarySensorConfig {
	return BinarySensorConfig{
		Name:              "Connectivity",
		UniqueID:          tf.UniqueID("connectivity"),
		StateTopic:        tf.Device(),
		DeviceClass:       "connectivity",
		PayloadOn:         PayloadOnline,
		PayloadOff:        PayloadOffline,
		Device:            deviceInfo(ha),
		AvailabilityTopic: tf.Availability(),
		EntityCategory:    "diagnostic",
	}
}

// BuildDiagnosticConfig describes the diagnostic stream as an enum sensor
func BuildDiagnosticConfig(tf *TopicFactory, ha config.HomeAssistantSettings) SensorConfig {
	return SensorConfig{
		Name:                   "Diagnostic",
		UniqueID:               tf.UniqueID("diagnostic"),
		StateTopic:             tf.Diagnostic(),
		DeviceClass:            "enum",
		Device:                 deviceInfo(ha),
		ValueTemplate:          "{{ value_json.message }}",
		AvailabilityTopic:      tf.Availability(),
		PayloadAvailable:       PayloadOnline,
		PayloadNotAvailable:    PayloadOffline,
		JSONAttributesTemplate: "{{ value_json | tojson }}",
		EntityCategory:         "diagnostic",
	}
}
