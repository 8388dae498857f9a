package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	ctlerrors "led-state-controller/internal/errors"
	"led-state-controller/internal/logger"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "LEDCTL_"

// DefaultEnvFiles are loaded by LoadEnvFiles when called without arguments
var DefaultEnvFiles = []string{".env", ".env.local"}

// LoadEnvFiles loads KEY=VALUE files into the process environment. Files that
// do not exist are skipped; variables already set are never overwritten.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return ctlerrors.NewConfigError("load_env", fmt.Errorf("%s: %w", file, err), "env")
		}
		logger.LogDebug("📄 Loaded environment variables from %s", file)
	}
	return nil
}

type envBinding struct {
	key   string
	apply func(cfg *Config, value string) error
}

func str(target func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		*target(cfg) = v
		return nil
	}
}

func num(target func(*Config) *int) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*target(cfg) = n
		return nil
	}
}

func toggle(target func(*Config) *bool) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*target(cfg) = b
		return nil
	}
}

var envBindings = []envBinding{
	{"DEVICE_ADDRESS", str(func(c *Config) *string { return &c.Device.Address })},
	{"DEVICE_NAME", str(func(c *Config) *string { return &c.Device.Name })},
	{"DEVICE_REQUEST_TIMEOUT", num(func(c *Config) *int { return &c.Device.RequestTimeout })},
	{"DISCOVERY_ENABLED", toggle(func(c *Config) *bool { return &c.Discovery.Enabled })},
	{"DISCOVERY_INSTANCE", str(func(c *Config) *string { return &c.Discovery.Instance })},
	{"POLL_INTERVAL", num(func(c *Config) *int { return &c.Polling.Interval })},
	{"POLL_SCHEDULER", str(func(c *Config) *string { return &c.Polling.Scheduler })},
	{"POLL_SINGLE_FLIGHT", toggle(func(c *Config) *bool { return &c.Polling.SingleFlight })},
	{"ERROR_SUPPRESSION", str(func(c *Config) *string { return &c.Polling.ErrorSuppression })},
	{"WEB_ENABLED", toggle(func(c *Config) *bool { return &c.Web.Enabled })},
	{"WEB_PORT", num(func(c *Config) *int { return &c.Web.Port })},
	{"METRICS_ENABLED", toggle(func(c *Config) *bool { return &c.Metrics.Enabled })},
	{"MQTT_ENABLED", toggle(func(c *Config) *bool { return &c.MQTT.Enabled })},
	{"MQTT_BROKER", str(func(c *Config) *string { return &c.MQTT.Broker })},
	{"MQTT_PORT", num(func(c *Config) *int { return &c.MQTT.Port })},
	{"MQTT_USERNAME", str(func(c *Config) *string { return &c.MQTT.Username })},
	{"MQTT_PASSWORD", str(func(c *Config) *string { return &c.MQTT.Password })},
	{"MQTT_BASE_TOPIC", str(func(c *Config) *string { return &c.MQTT.BaseTopic })},
	{"HA_ENABLED", toggle(func(c *Config) *bool { return &c.HomeAssistant.Enabled })},
	{"NATS_ENABLED", toggle(func(c *Config) *bool { return &c.NATS.Enabled })},
	{"NATS_URL", str(func(c *Config) *string { return &c.NATS.URL })},
	{"NATS_SUBJECT", str(func(c *Config) *string { return &c.NATS.Subject })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.Logging.Level })},
	{"LOG_FILE", str(func(c *Config) *string { return &c.Logging.File })},
}

// ApplyEnv overrides cfg with every LEDCTL_* variable that is set
func ApplyEnv(cfg *Config) error {
	for _, b := range envBindings {
		value, ok := os.LookupEnv(EnvPrefix + b.key)
		if !ok {
			continue
		}
		if err := b.apply(cfg, value); err != nil {
			return ctlerrors.NewConfigError("apply_env", fmt.Errorf("%s%s=%q: %w", EnvPrefix, b.key, value, err), EnvPrefix+b.key)
		}
		logger.LogTrace("🔧 %s%s overrides configuration", EnvPrefix, b.key)
	}
	return nil
}
