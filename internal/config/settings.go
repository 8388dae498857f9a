package config

import "time"

func ms(v int) time.Duration  { return time.Duration(v) * time.Millisecond }
func sec(v int) time.Duration { return time.Duration(v) * time.Second }

// PollingSettings contains everything the controller needs
// Used for dependency injection to avoid coupling to full Config
type PollingSettings struct {
	Interval         time.Duration
	RequestTimeout   time.Duration
	Scheduler        string
	SingleFlight     bool
	ErrorSuppression string
	DeviceName       string
}

// NewPollingSettings extracts polling settings from full config
func NewPollingSettings(cfg *Config) PollingSettings {
	return PollingSettings{
		Interval:         ms(cfg.Polling.Interval),
		RequestTimeout:   ms(cfg.Device.RequestTimeout),
		Scheduler:        cfg.Polling.Scheduler,
		SingleFlight:     cfg.Polling.SingleFlight,
		ErrorSuppression: cfg.Polling.ErrorSuppression,
		DeviceName:       cfg.Device.Name,
	}
}

// DiscoverySettings contains mDNS lookup configuration
type DiscoverySettings struct {
	Enabled       bool
	Service       string
	Domain        string
	Instance      string
	Timeout       time.Duration
	RetryInterval time.Duration
}

// NewDiscoverySettings extracts discovery settings from full config
func NewDiscoverySettings(cfg *Config) DiscoverySettings {
	return DiscoverySettings{
		Enabled:       cfg.Discovery.Enabled,
		Service:       cfg.Discovery.Service,
		Domain:        cfg.Discovery.Domain,
		Instance:      cfg.Discovery.Instance,
		Timeout:       ms(cfg.Discovery.Timeout),
		RetryInterval: ms(cfg.Discovery.RetryInterval),
	}
}

// MQTTSettings contains only MQTT-specific configuration
// Used for dependency injection to avoid coupling to full Config
type MQTTSettings struct {
	Broker            string
	Port              int
	Username          string
	Password          string
	ClientID          string
	KeepAlive         time.Duration
	RetryDelay        time.Duration
	BaseTopic         string
	HeartbeatInterval time.Duration
}

// NewMQTTSettings extracts MQTT settings from full config
func NewMQTTSettings(cfg *Config) MQTTSettings {
	return MQTTSettings{
		Broker:            cfg.MQTT.Broker,
		Port:              cfg.MQTT.Port,
		Username:          cfg.MQTT.Username,
		Password:          cfg.MQTT.Password,
		ClientID:          cfg.MQTT.ClientID,
		KeepAlive:         sec(cfg.MQTT.KeepAlive),
		RetryDelay:        ms(cfg.MQTT.RetryDelay),
		BaseTopic:         cfg.MQTT.BaseTopic,
		HeartbeatInterval: sec(cfg.MQTT.HeartbeatInterval),
	}
}

// HomeAssistantSettings contains Home Assistant discovery configuration
type HomeAssistantSettings struct {
	Enabled         bool
	DiscoveryPrefix string
	DeviceID        string
	DeviceName      string
	Manufacturer    string
	Model           string
}

// NewHomeAssistantSettings extracts Home Assistant settings from full config
func NewHomeAssistantSettings(cfg *Config) HomeAssistantSettings {
	return HomeAssistantSettings{
		Enabled:         cfg.HomeAssistant.Enabled,
		DiscoveryPrefix: cfg.HomeAssistant.DiscoveryPrefix,
		DeviceID:        cfg.HomeAssistant.DeviceID,
		DeviceName:      cfg.HomeAssistant.DeviceName,
		Manufacturer:    cfg.HomeAssistant.Manufacturer,
		Model:           cfg.HomeAssistant.Model,
	}
}

// HealthSettings contains device health tracking configuration
type HealthSettings struct {
	GracePeriod time.Duration
}

// NewHealthSettings extracts health settings from full config
func NewHealthSettings(cfg *Config) HealthSettings {
	return HealthSettings{GracePeriod: sec(cfg.Health.GracePeriod)}
}
