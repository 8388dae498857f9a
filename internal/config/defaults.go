package config

import "led-state-controller/internal/logger"

// Scheduler names accepted by polling.scheduler
const (
	SchedulerGocron = "gocron"
	SchedulerTicker = "ticker"
)

// Error suppression policies accepted by polling.error_suppression
const (
	SuppressUnknownState   = "unknown_state"
	SuppressNeverConnected = "never_connected"
)

// Default returns the configuration used for every key a file or the
// environment leaves unset
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Device: DeviceConfig{
			Name:           "ESP32",
			RequestTimeout: 3000,
		},
		Discovery: DiscoveryConfig{
			Service:       "_http._tcp",
			Domain:        "local",
			Timeout:       3000,
			RetryInterval: 5000,
		},
		Polling: PollingConfig{
			Interval:         2000,
			Scheduler:        SchedulerGocron,
			ErrorSuppression: SuppressUnknownState,
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8080,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		MQTT: MQTTConfig{
			Port:              1883,
			ClientID:          "ledctl",
			KeepAlive:         60,
			RetryDelay:        5000,
			BaseTopic:         "ledctl",
			HeartbeatInterval: 30,
		},
		HomeAssistant: HAConfig{
			DiscoveryPrefix: "homeassistant",
			DeviceID:        "ledctl",
			DeviceName:      "LED Controller",
			Manufacturer:    "Espressif",
			Model:           "ESP32 LED",
		},
		NATS: NATSConfig{
			URL:     "nats://127.0.0.1:4222",
			Subject: "ledctl.state",
		},
		Health: HealthConfig{
			GracePeriod: 15,
		},
		Logging: logger.LoggingConfig{
			Level: logger.LogLevelInfo,
		},
	}
}
