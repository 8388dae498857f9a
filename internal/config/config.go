package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	ctlerrors "led-state-controller/internal/errors"
	"led-state-controller/internal/logger"
	"led-state-controller/internal/resolver"
)

// CurrentVersion is the file format written by defaults. Any 1.x file loads.
const CurrentVersion = "1.0"

// Config represents the complete application configuration
type Config struct {
	Version       string               `yaml:"version,omitempty"`
	Device        DeviceConfig         `yaml:"device"`
	Discovery     DiscoveryConfig      `yaml:"discovery"`
	Polling       PollingConfig        `yaml:"polling"`
	Web           WebConfig            `yaml:"web"`
	Metrics       MetricsConfig        `yaml:"metrics"`
	MQTT          MQTTConfig           `yaml:"mqtt"`
	HomeAssistant HAConfig             `yaml:"homeassistant"`
	NATS          NATSConfig           `yaml:"nats"`
	Health        HealthConfig         `yaml:"health"`
	Logging       logger.LoggingConfig `yaml:"logging"`
}

// DeviceConfig describes the LED controller board
type DeviceConfig struct {
	Address        string `yaml:"address"`         // Base address, e.g. http://192.168.4.1
	Name           string `yaml:"name"`            // Shown in connection error messages
	RequestTimeout int    `yaml:"request_timeout"` // Milliseconds
}

// DiscoveryConfig controls mDNS lookup of the device when no address is configured
type DiscoveryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Service       string `yaml:"service"`
	Domain        string `yaml:"domain"`
	Instance      string `yaml:"instance"`       // Instance name prefix, empty matches any
	Timeout       int    `yaml:"timeout"`        // Milliseconds per browse
	RetryInterval int    `yaml:"retry_interval"` // Milliseconds between failed lookups
}

// PollingConfig contains status polling settings
type PollingConfig struct {
	Interval         int    `yaml:"interval"`          // Milliseconds
	Scheduler        string `yaml:"scheduler"`         // gocron or ticker
	SingleFlight     bool   `yaml:"single_flight"`     // Skip ticks while a read is outstanding
	ErrorSuppression string `yaml:"error_suppression"` // unknown_state or never_connected
}

// WebConfig contains the built-in UI server settings
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Port    int    `yaml:"port"`
}

// MetricsConfig controls the Prometheus endpoint on the web server
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MQTTConfig contains MQTT broker settings
type MQTTConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Broker            string `yaml:"broker"`
	Port              int    `yaml:"port"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	ClientID          string `yaml:"client_id"`
	KeepAlive         int    `yaml:"keep_alive"`         // Seconds
	RetryDelay        int    `yaml:"retry_delay"`        // Delay between connection retries in milliseconds
	BaseTopic         string `yaml:"base_topic"`         // Prefix for state, availability and set topics
	HeartbeatInterval int    `yaml:"heartbeat_interval"` // Seconds, 0 disables the heartbeat
}

// HAConfig contains Home Assistant MQTT Discovery settings
type HAConfig struct {
	Enabled         bool   `yaml:"enabled"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
	DeviceID        string `yaml:"device_id"`
	DeviceName      string `yaml:"device_name"`
	Manufacturer    string `yaml:"manufacturer"`
	Model           string `yaml:"model"`
}

// NATSConfig contains the state-change event publisher settings
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// HealthConfig contains device health tracking settings
type HealthConfig struct {
	GracePeriod int `yaml:"grace_period"` // Seconds of failed reads before the device is reported offline
}

// SearchPaths lists the locations tried after an explicit path
var SearchPaths = []string{
	"/etc/ledctl/config.yaml",
	"/etc/ledctl.yaml",
	"./config.yaml",
}

// LoadConfig loads configuration from the first readable file among
// configPath and SearchPaths, then applies LEDCTL_* environment overrides.
// An explicit configPath must exist. Without one, a missing file means
// defaults plus environment.
func LoadConfig(configPath string) (*Config, error) {
	paths := append([]string{configPath}, SearchPaths...)

	var data []byte
	var err error
	var usedPath string

	for _, path := range paths {
		if path == "" {
			continue
		}
		// #nosec G304 - explicit path from the operator or a fixed search location
		data, err = os.ReadFile(path)
		if err == nil {
			usedPath = path
			break
		}
		if path == configPath {
			return nil, ctlerrors.NewConfigError("load_config", fmt.Errorf("cannot read %s: %w", path, err), "config")
		}
	}

	cfg := Default()
	if usedPath == "" {
		logger.LogInfo("📄 No configuration file found in %v, using defaults and environment", SearchPaths)
	} else if err := parse(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing configuration from %s: %w", usedPath, err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		if usedPath == "" {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return nil, fmt.Errorf("invalid configuration in %s: %w", usedPath, err)
	}

	if usedPath != "" {
		logger.LogInfo("✅ Configuration loaded successfully from %s (version: %s)", usedPath, cfg.Version)
	}
	return cfg, nil
}

// LoadConfigFromString loads configuration from a YAML string (for testing).
// The environment is not consulted.
func LoadConfigFromString(yamlContent string) (*Config, error) {
	cfg := Default()
	if err := parse([]byte(yamlContent), cfg); err != nil {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parse checks the version field first, then decodes the document over cfg
// so that omitted keys keep their defaults
func parse(data []byte, cfg *Config) error {
	var header struct {
		Version string `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return err
	}
	if header.Version == "" {
		logger.LogWarn("⚠️  No 'version' field in configuration, assuming %s", CurrentVersion)
	} else if !sameMajor(header.Version, CurrentVersion) {
		return fmt.Errorf("incompatible configuration version: %s (this build reads %s.x)",
			header.Version, majorOf(CurrentVersion))
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	return nil
}

func majorOf(version string) string {
	major, _, _ := strings.Cut(strings.TrimSpace(version), ".")
	return major
}

func sameMajor(a, b string) bool {
	return majorOf(a) != "" && majorOf(a) == majorOf(b)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Device.Address != "" {
		if _, err := resolver.Normalize(c.Device.Address); err != nil {
			return ctlerrors.NewConfigError("validate", err, "device.address")
		}
	}
	if c.Device.RequestTimeout <= 0 {
		return invalid("device.request_timeout", "must be positive")
	}

	if c.Discovery.Enabled {
		if c.Discovery.Service == "" {
			return invalid("discovery.service", "is not specified")
		}
		if c.Discovery.Timeout <= 0 {
			return invalid("discovery.timeout", "must be positive")
		}
		if c.Discovery.RetryInterval <= 0 {
			return invalid("discovery.retry_interval", "must be positive")
		}
	}

	if c.Polling.Interval <= 0 {
		return invalid("polling.interval", "must be positive")
	}
	switch c.Polling.Scheduler {
	case SchedulerGocron, SchedulerTicker:
	default:
		return invalid("polling.scheduler", fmt.Sprintf("must be %q or %q, got %q", SchedulerGocron, SchedulerTicker, c.Polling.Scheduler))
	}
	switch c.Polling.ErrorSuppression {
	case "", SuppressUnknownState, SuppressNeverConnected:
	default:
		return invalid("polling.error_suppression", fmt.Sprintf("must be %q or %q, got %q",
			SuppressUnknownState, SuppressNeverConnected, c.Polling.ErrorSuppression))
	}

	if c.Web.Enabled && (c.Web.Port <= 0 || c.Web.Port > 65535) {
		return invalid("web.port", "must be between 1 and 65535")
	}
	if c.Metrics.Enabled && !c.Web.Enabled {
		logger.LogWarn("⚠️  metrics.enabled has no effect while web.enabled is false")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return invalid("mqtt.broker", "is not specified")
		}
		if c.MQTT.Port <= 0 {
			return invalid("mqtt.port", "must be positive")
		}
		if c.MQTT.BaseTopic == "" {
			return invalid("mqtt.base_topic", "is not specified")
		}
		if c.MQTT.RetryDelay < 0 || c.MQTT.KeepAlive < 0 || c.MQTT.HeartbeatInterval < 0 {
			return invalid("mqtt", "retry_delay, keep_alive and heartbeat_interval must be non-negative")
		}
	}
	if c.HomeAssistant.Enabled {
		if !c.MQTT.Enabled {
			return invalid("homeassistant.enabled", "requires mqtt.enabled")
		}
		if c.HomeAssistant.DiscoveryPrefix == "" {
			return invalid("homeassistant.discovery_prefix", "is not specified")
		}
		if c.HomeAssistant.DeviceID == "" {
			return invalid("homeassistant.device_id", "is not specified")
		}
	}

	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			return invalid("nats.url", "is not specified")
		}
		if c.NATS.Subject == "" {
			return invalid("nats.subject", "is not specified")
		}
	}

	if c.Health.GracePeriod < 0 {
		return invalid("health.grace_period", "must be non-negative")
	}
	if c.Logging.Level != "" && !logger.IsValidLevel(c.Logging.Level) {
		return invalid("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}

	if c.Device.Address == "" && !c.Discovery.Enabled {
		logger.LogWarn("⚠️  No device.address and discovery disabled: the controller stays uninitialized until an address is supplied")
	}
	return nil
}

// HasDeviceSource reports whether an address can be obtained without flags
func (c *Config) HasDeviceSource() bool {
	return c.Device.Address != "" || c.Discovery.Enabled
}

func invalid(field, msg string) error {
	return ctlerrors.NewConfigError("validate", errors.New(field+" "+msg), field)
}
