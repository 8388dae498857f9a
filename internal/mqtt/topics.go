package mqtt

import "strings"

// Payloads for availability topics
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// TopicFactory provides centralized topic construction for the controller and
// Home Assistant MQTT discovery
type TopicFactory struct {
	base            string
	discoveryPrefix string
	deviceID        string
}

// NewTopicFactory creates a new topic factory
func NewTopicFactory(baseTopic, discoveryPrefix, deviceID string) *TopicFactory {
	return &TopicFactory{
		base:            strings.TrimSuffix(baseTopic, "/"),
		discoveryPrefix: strings.TrimSuffix(discoveryPrefix, "/"),
		deviceID:        deviceID,
	}
}

// Availability is the controller's own online/offline topic, also its last will
func (tf *TopicFactory) Availability() string { return tf.base + "/availability" }

// Device carries online/offline for the LED device as seen by polling
func (tf *TopicFactory) Device() string { return tf.base + "/device" }

// State carries the retained JSON snapshot
func (tf *TopicFactory) State() string { return tf.base + "/state" }

// Set receives commands: on, off or blink
func (tf *TopicFactory) Set() string { return tf.base + "/set" }

// Diagnostic carries {code,message,timestamp} reports
func (tf *TopicFactory) Diagnostic() string { return tf.base + "/diagnostic" }

// SelectDiscovery is the config topic of the LED mode select entity
func (tf *TopicFactory) SelectDiscovery() string {
	return tf.discoveryPrefix + "/select/" + tf.deviceID + "/mode/config"
}

// ConnectivityDiscovery is the config topic of the device connectivity binary sensor
func (tf *TopicFactory) ConnectivityDiscovery() string {
	return tf.discoveryPrefix + "/binary_sensor/" + tf.deviceID + "/connectivity/config"
}

// DiagnosticDiscovery is the config topic of the diagnostic sensor
func (tf *TopicFactory) DiagnosticDiscovery() string {
	return tf.discoveryPrefix + "/sensor/" + tf.deviceID + "/diagnostic/config"
}

// UniqueID builds a Home Assistant unique id for an entity of this device
func (tf *TopicFactory) UniqueID(entity string) string {
	return tf.deviceID + "_" + entity
}
