package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"led-state-controller/internal/actuator"
	"led-state-controller/internal/app"
	"led-state-controller/internal/clock"
	"led-state-controller/internal/config"
	"led-state-controller/internal/controller"
	"led-state-controller/internal/logger"
	"led-state-controller/internal/resolver"
	"led-state-controller/internal/transport"
)

// Globals are the flags shared by every command
type Globals struct {
	Config   string           `short:"c" help:"Configuration file path (default: search /etc/ledctl/config.yaml, /etc/ledctl.yaml, ./config.yaml)"`
	Address  string           `short:"a" help:"Device base address, e.g. http://192.168.4.1 (overrides device.address)"`
	EnvFile  []string         `name:"env-file" help:"Environment files to load before LEDCTL_* overrides" default:".env,.env.local"`
	LogLevel string           `name:"log-level" help:"Log level override (error, warn, info, debug, trace)"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`
}

// CLI is the command tree
type CLI struct {
	Globals

	Run      RunCmd      `cmd:"" default:"1" help:"Run the controller with the web UI and enabled integrations"`
	Status   StatusCmd   `cmd:"" help:"Read the device status once and print it"`
	On       OnCmd       `cmd:"" help:"Turn the LED on"`
	Off      OffCmd      `cmd:"" help:"Turn the LED off"`
	Blink    BlinkCmd    `cmd:"" help:"Start blinking"`
	Discover DiscoverCmd `cmd:"" help:"Browse the network for devices via mDNS"`
	Ver      VersionCmd  `cmd:"" name:"version" help:"Print the version"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("ledctl"),
		kong.Description("Keeps an LED controller board in sync and serves its control UI."),
		kong.UsageOnError(),
		kong.Vars{"version": app.Version},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	err := kctx.Run(&cli.Globals)
	stop()
	kctx.FatalIfErrorf(err)
}

// loadConfig reads env files and the config file, then applies flag overrides
func (g *Globals) loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFiles(g.EnvFile...); err != nil {
		return nil, err
	}
	if g.Address != "" {
		// flags win over both the file and LEDCTL_* variables
		if err := os.Setenv(config.EnvPrefix+"DEVICE_ADDRESS", g.Address); err != nil {
			return nil, err
		}
	}
	if g.LogLevel != "" {
		if err := os.Setenv(config.EnvPrefix+"LOG_LEVEL", g.LogLevel); err != nil {
			return nil, err
		}
	}

	cfg, err := config.LoadConfig(g.Config)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	if err := logger.Configure(cfg.Logging); err != nil {
		return nil, err
	}
	logger.LogStartup("🔧 Logging initialized with level: %s", logger.Level())
	return cfg, nil
}

// RunCmd runs the long-lived controller
type RunCmd struct{}

func (c *RunCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	application, err := app.NewApplicationBuilder(cfg).Build()
	if err != nil {
		return fmt.Errorf("error creating application: %w", err)
	}
	return application.Run(ctx)
}

// StatusCmd performs one status read
type StatusCmd struct {
	JSON bool `help:"Print the snapshot as JSON"`
}

func (c *StatusCmd) Run(ctx context.Context, g *Globals) error {
	ctrl, err := oneShot(ctx, g)
	if err != nil {
		return err
	}
	readErr := ctrl.ReadStatus(ctx)
	if err := printSnapshot(os.Stdout, ctrl.Snapshot(), c.JSON); err != nil {
		return err
	}
	return readErr
}

// OnCmd sends LED_ON
type OnCmd struct {
	JSON bool `help:"Print the resulting snapshot as JSON"`
}

func (c *OnCmd) Run(ctx context.Context, g *Globals) error {
	return sendOnce(ctx, g, actuator.TurnOn, c.JSON)
}

// OffCmd sends LED_OFF
type OffCmd struct {
	JSON bool `help:"Print the resulting snapshot as JSON"`
}

func (c *OffCmd) Run(ctx context.Context, g *Globals) error {
	return sendOnce(ctx, g, actuator.TurnOff, c.JSON)
}

// BlinkCmd sends LED_BLINK
type BlinkCmd struct {
	JSON bool `help:"Print the resulting snapshot as JSON"`
}

func (c *BlinkCmd) Run(ctx context.Context, g *Globals) error {
	return sendOnce(ctx, g, actuator.StartBlinking, c.JSON)
}

// DiscoverCmd lists mDNS service entries
type DiscoverCmd struct {
	Service string        `help:"Service type to browse" default:"_http._tcp"`
	Domain  string        `help:"Domain to browse" default:"local"`
	Timeout time.Duration `help:"How long to listen for answers" default:"3s"`
}

func (c *DiscoverCmd) Run(ctx context.Context) error {
	m := resolver.NewMDNS(c.Service, c.Domain, "", c.Timeout)
	entries, err := m.Browse(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("No %s.%s services found\n", c.Service, c.Domain)
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-40s %v:%d\n", e.Name, e.AddrV4, e.Port)
	}
	return nil
}

// VersionCmd prints the build version
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(app.Version)
	return nil
}

// oneShot builds a controller with the resolved address and no schedule
func oneShot(ctx context.Context, g *Globals) (*controller.SyncController, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	polling := config.NewPollingSettings(cfg)
	ctrl, err := app.NewController(cfg, transport.NewHTTPTransport(polling.RequestTimeout),
		clock.NewTickerClock(), nil, logger.NewStandardLogger())
	if err != nil {
		return nil, err
	}

	if !cfg.HasDeviceSource() {
		return ctrl, nil
	}
	addr, err := app.NewResolver(cfg).Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve device address: %w", err)
	}
	if err := ctrl.SetBaseAddress(addr); err != nil {
		return nil, err
	}
	return ctrl, nil
}

func sendOnce(ctx context.Context, g *Globals, cmd actuator.Command, asJSON bool) error {
	ctrl, err := oneShot(ctx, g)
	if err != nil {
		return err
	}
	sendErr := ctrl.SendCommand(ctx, cmd)
	if err := printSnapshot(os.Stdout, ctrl.Snapshot(), asJSON); err != nil {
		return err
	}
	return sendErr
}

func printSnapshot(w io.Writer, snap controller.Snapshot, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Fprintln(w, snap.StatusText)
	if snap.LastError != "" {
		fmt.Fprintf(w, "Error: %s\n", snap.LastError)
	}
	base := snap.BaseAddress
	if base == "" {
		base = "Awaiting initialization..."
	}
	poll := "-"
	if snap.LastPoll != nil {
		poll = snap.LastPoll.Format("15:04:05")
	}
	fmt.Fprintf(w, "Base URL: %s | Last Poll: %s\n", base, poll)

	var controls []string
	for _, c := range snap.Controls {
		mark := "enabled"
		if c.Disabled {
			mark = "disabled"
		}
		controls = append(controls, fmt.Sprintf("%s (%s)", c.Label, mark))
	}
	fmt.Fprintln(w, strings.Join(controls, ", "))
	return nil
}
