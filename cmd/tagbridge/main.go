// Command tagbridge bridges southbound tags to a northbound node space.
//
// It subscribes the configured tags at a southbound source (the built-in
// simulator or NATS subjects), keeps their last values in a store and
// copies them into the exposed nodes on every sync tick. Nodes are served
// over HTTP and websocket subscriptions.
//
// Usage:
//
//	tagbridge [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-listen string      Northbound listen address (overrides config)
//	-event-log string   Event log file (overrides config)
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-log-format string  Log format: text, json (default "text")
//	-interactive        Start the interactive console
//	-discover           List bridges on the local network and exit
//	-version            Print the version and exit
//
// Examples:
//
//	# Run the default simulator bridge
//	tagbridge
//
//	# Bridge NATS subjects with a config file and capture events
//	tagbridge -config /etc/tagbridge/plant.yaml -event-log /var/log/tagbridge.tlog
//
//	# Find bridges on the network
//	tagbridge -discover
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chzyer/readline"

	"github.com/gridlink/tagbridge/cmd/tagbridge/interactive"
	"github.com/gridlink/tagbridge/pkg/bridge"
	"github.com/gridlink/tagbridge/pkg/config"
	"github.com/gridlink/tagbridge/pkg/discovery"
	"github.com/gridlink/tagbridge/pkg/log"
	"github.com/gridlink/tagbridge/pkg/version"
)

// Flags holds the command line flags.
type Flags struct {
	ConfigFile      string
	Listen          string
	EventLog        string
	LogLevel        string
	LogFormat       string
	Interactive     bool
	Discover        bool
	DiscoverTimeout time.Duration
	ShowVersion     bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flags.Listen, "listen", "", "Northbound listen address (overrides config)")
	flag.StringVar(&flags.EventLog, "event-log", "", "Event log file (overrides config)")
	flag.StringVar(&flags.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.LogFormat, "log-format", "text", "Log format: text, json")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Start the interactive console")
	flag.BoolVar(&flags.Discover, "discover", false, "List bridges on the local network and exit")
	flag.DurationVar(&flags.DiscoverTimeout, "discover-timeout", 3*time.Second, "How long -discover browses")
	flag.BoolVar(&flags.ShowVersion, "version", false, "Print the version and exit")
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tagbridge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if flags.ShowVersion {
		fmt.Println("tagbridge", version.Full())
		return nil
	}
	if flags.Discover {
		return runDiscover(os.Stdout, flags.DiscoverTimeout)
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	var rl *readline.Instance
	if flags.Interactive {
		if rl, err = interactive.NewReadline(); err != nil {
			return err
		}
		defer rl.Close()
		out = rl.Stdout()
	}

	logger := setupLogger(out, flags.LogLevel, flags.LogFormat)
	b, err := newBridge(cfg, logger)
	if err != nil {
		return err
	}

	var console *interactive.Console
	if rl != nil {
		console = interactive.New(rl, b)
	}
	return serve(b, cfg, logger, console)
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(f Flags) (*config.Config, error) {
	cfg := config.Default()
	if f.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(f.ConfigFile); err != nil {
			return nil, err
		}
	}
	if f.Listen != "" {
		cfg.Northbound.Listen = f.Listen
	}
	if f.EventLog != "" {
		cfg.EventLog = f.EventLog
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newBridge(cfg *config.Config, logger *slog.Logger) (*bridge.Bridge, error) {
	adapter, err := bridge.NewAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	opts := []bridge.Option{bridge.WithLogger(logger)}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		opts = append(opts, bridge.WithEventLogger(log.NewSlogAdapter(logger)))
	}
	return bridge.New(cfg, adapter, opts...)
}

// serve runs the bridge until a signal arrives or the console quits.
func serve(b *bridge.Bridge, cfg *config.Config, logger *slog.Logger, console *interactive.Console) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := b.Start(ctx); err != nil {
		return err
	}
	if console != nil {
		go console.Run(ctx, cancel)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	// The southbound has its own bound; leave room for it after northbound and sync.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*cfg.ShutdownTimeout)
	defer stopCancel()
	if err := b.Stop(stopCtx); err != nil && !errors.Is(err, bridge.ErrNotStarted) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runDiscover(w io.Writer, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	found, err := discovery.NewMDNSBrowser(discovery.BrowserConfig{}).Collect(ctx)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Fprintln(w, "No bridges found.")
		return nil
	}
	for _, svc := range found {
		compat := ""
		if !version.CompatibleWith(svc.Version) {
			compat = " (incompatible)"
		}
		fmt.Fprintf(w, "%-24s %-28s ver=%s ns=%d tags=%d folders=%v%s\n",
			svc.Instance, svc.URL(), svc.Version, svc.Namespace, svc.Tags, svc.Folders, compat)
	}
	return nil
}
