package main

import (
	"fmt"
	"os"

	"led-state-controller/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/validate_config <config-file>")
		os.Exit(1)
	}

	configPath := os.Args[1]
	fmt.Printf("📄 Loading config from: %s\n", configPath)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Config loaded successfully!\n")
	fmt.Printf("   Version: %s\n", cfg.Version)

	if cfg.Device.Address != "" {
		fmt.Printf("   Device: %s (%s)\n", cfg.Device.Address, cfg.Device.Name)
	} else if cfg.Discovery.Enabled {
		fmt.Printf("   Device: discovered via mDNS %s.%s", cfg.Discovery.Service, cfg.Discovery.Domain)
		if cfg.Discovery.Instance != "" {
			fmt.Printf(" (instance %q)", cfg.Discovery.Instance)
		}
		fmt.Println()
	} else {
		fmt.Printf("   Device: ⚠️  no address and discovery disabled\n")
	}
	fmt.Printf("   Request timeout: %d ms\n", cfg.Device.RequestTimeout)

	polling := config.NewPollingSettings(cfg)
	fmt.Printf("   Polling: every %v via %s", polling.Interval, polling.Scheduler)
	if polling.SingleFlight {
		fmt.Printf(", single-flight")
	}
	fmt.Printf(", error suppression %s\n", cfg.Polling.ErrorSuppression)

	if cfg.Web.Enabled {
		fmt.Printf("   Web UI: %s:%d\n", cfg.Web.Listen, cfg.Web.Port)
		if cfg.Metrics.Enabled {
			fmt.Printf("   Metrics: %s\n", cfg.Metrics.Path)
		}
	}
	if cfg.MQTT.Enabled {
		fmt.Printf("   MQTT Broker: %s:%d (base topic %s)\n", cfg.MQTT.Broker, cfg.MQTT.Port, cfg.MQTT.BaseTopic)
		if cfg.HomeAssistant.Enabled {
			fmt.Printf("   Home Assistant discovery: %s/%s\n", cfg.HomeAssistant.DiscoveryPrefix, cfg.HomeAssistant.DeviceID)
		}
	}
	if cfg.NATS.Enabled {
		fmt.Printf("   NATS: %s subject %s.*\n", cfg.NATS.URL, cfg.NATS.Subject)
	}

	fmt.Println("\n✅ Configuration is valid!")
}
