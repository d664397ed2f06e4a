// Package config loads the bridge configuration from YAML.
//
// A configuration file is overlaid on the built-in defaults, so a file
// only needs the keys it changes. Unknown keys are rejected.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gridlink/tagbridge/pkg/model"
	"github.com/gridlink/tagbridge/pkg/scheduler"
	"github.com/gridlink/tagbridge/pkg/supervisor"
	"github.com/gridlink/tagbridge/pkg/wire"
)

//go:embed default.yaml
var defaultYAML []byte

// Southbound kinds.
const (
	KindSimulator = "simulator"
	KindNATS      = "nats"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the bridge configuration.
type Config struct {
	Tags            []Tag         `yaml:"tags"`
	AddressSpace    AddressSpace  `yaml:"address_space"`
	Sync            Sync          `yaml:"sync"`
	Southbound      Southbound    `yaml:"southbound"`
	Northbound      Northbound    `yaml:"northbound"`
	EventLog        string        `yaml:"event_log"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Tag declares one bridged tag.
type Tag struct {
	ID          string `yaml:"id"`
	Type        string `yaml:"type"`
	Folder      string `yaml:"folder,omitempty"`
	DisplayName string `yaml:"display_name,omitempty"`
	Access      string `yaml:"access,omitempty"`
}

// AddressSpace configures the exposed node tree.
type AddressSpace struct {
	Namespace uint16 `yaml:"namespace"`
	Folder    string `yaml:"folder"`
}

// Sync configures the northbound sync scheduler.
type Sync struct {
	Period       time.Duration `yaml:"period"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	Mode         string        `yaml:"mode"`
}

// Southbound selects and configures the data source.
type Southbound struct {
	Kind           string        `yaml:"kind"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Backoff        Backoff       `yaml:"backoff"`
	Simulator      Simulator     `yaml:"simulator"`
	NATS           NATS          `yaml:"nats"`
}

// Backoff configures reconnect delays.
type Backoff struct {
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	Multiplier float64       `yaml:"multiplier"`
	Jitter     float64       `yaml:"jitter"`
}

// Simulator configures the simulator source.
type Simulator struct {
	UpdateRate   time.Duration `yaml:"update_rate"`
	FailConnects int           `yaml:"fail_connects"`
	DropAfter    time.Duration `yaml:"drop_after"`
	Seed         int64         `yaml:"seed"`
}

// NATS configures the NATS source.
type NATS struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Encoding      string `yaml:"encoding"`
	Name          string `yaml:"name"`
}

// Northbound configures the HTTP/websocket server.
type Northbound struct {
	Listen       string       `yaml:"listen"`
	Advertise    bool         `yaml:"advertise"`
	Instance     string       `yaml:"instance,omitempty"`
	Subscription Subscription `yaml:"subscription"`
}

// Subscription configures websocket subscriptions.
type Subscription struct {
	MinInterval      time.Duration `yaml:"min_interval"`
	MaxInterval      time.Duration `yaml:"max_interval"`
	MaxSubscriptions int           `yaml:"max_subscriptions"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	if err := decode(bytes.NewReader(defaultYAML), cfg); err != nil {
		panic(fmt.Sprintf("config: bad embedded defaults: %v", err))
	}
	return cfg
}

// Load reads path and overlays it on the defaults. The result is validated.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads YAML from r and overlays it on the defaults. The result is
// validated.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decode(r, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// Validate checks the configuration. Duplicate tag IDs are left to the
// address space synthesizer.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if len(c.Tags) == 0 {
		fail("no tags configured")
	}
	for i, t := range c.Tags {
		if t.ID == "" {
			fail("tags[%d]: empty id", i)
		}
		if _, err := model.ParseDataType(t.Type); err != nil {
			fail("tags[%d] %s: unknown type %q", i, t.ID, t.Type)
		}
		if _, err := model.ParseAccess(t.Access); err != nil {
			fail("tags[%d] %s: %v", i, t.ID, err)
		}
	}

	if c.Sync.Period <= 0 {
		fail("sync.period must be positive")
	}
	if c.Sync.InitialDelay < 0 {
		fail("sync.initial_delay must not be negative")
	}
	if _, err := scheduler.ParseMode(c.Sync.Mode); err != nil {
		fail("sync.mode: %v", err)
	}

	sb := c.Southbound
	switch sb.Kind {
	case KindSimulator:
		if sb.Simulator.UpdateRate <= 0 {
			fail("southbound.simulator.update_rate must be positive")
		}
		if sb.Simulator.FailConnects < 0 {
			fail("southbound.simulator.fail_connects must not be negative")
		}
	case KindNATS:
		if sb.NATS.URL == "" {
			fail("southbound.nats.url is required")
		}
		if _, err := wire.ParseEncoding(sb.NATS.Encoding); err != nil {
			fail("southbound.nats.encoding: %v", err)
		}
	default:
		fail("unknown southbound.kind %q", sb.Kind)
	}
	if sb.ConnectTimeout <= 0 {
		fail("southbound.connect_timeout must be positive")
	}
	if b := sb.Backoff; b.Initial <= 0 || b.Max < b.Initial {
		fail("southbound.backoff: need 0 < initial <= max")
	}
	if sb.Backoff.Multiplier < 1 {
		fail("southbound.backoff.multiplier must be at least 1")
	}
	if sb.Backoff.Jitter < 0 || sb.Backoff.Jitter >= 1 {
		fail("southbound.backoff.jitter must be in [0, 1)")
	}

	nb := c.Northbound.Subscription
	if nb.MinInterval < 0 || nb.MaxInterval <= 0 {
		fail("northbound.subscription intervals must be positive")
	}
	if nb.MaxInterval > 0 && nb.MinInterval > nb.MaxInterval {
		fail("northbound.subscription.min_interval exceeds max_interval")
	}
	if nb.MaxSubscriptions <= 0 {
		fail("northbound.subscription.max_subscriptions must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		fail("shutdown_timeout must be positive")
	}

	return errors.Join(errs...)
}

// Decls converts the tag list to synthesizer declarations. Tags without
// a folder go into the address space folder.
func (c *Config) Decls() ([]model.TagDecl, error) {
	decls := make([]model.TagDecl, 0, len(c.Tags))
	for _, t := range c.Tags {
		dt, err := model.ParseDataType(t.Type)
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", t.ID, err)
		}
		access, err := model.ParseAccess(t.Access)
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", t.ID, err)
		}
		folder := t.Folder
		if folder == "" {
			folder = c.AddressSpace.Folder
		}
		decls = append(decls, model.TagDecl{
			ID:          t.ID,
			Type:        dt,
			Folder:      folder,
			DisplayName: t.DisplayName,
			Access:      access,
		})
	}
	return decls, nil
}

// TagIDs returns the configured tag IDs in order.
func (c *Config) TagIDs() []string {
	ids := make([]string, len(c.Tags))
	for i, t := range c.Tags {
		ids[i] = t.ID
	}
	return ids
}

// SyncMode returns the parsed sync mode.
func (c *Config) SyncMode() scheduler.Mode {
	m, _ := scheduler.ParseMode(c.Sync.Mode)
	return m
}

// BackoffConfig returns the supervisor backoff settings.
func (c *Config) BackoffConfig() supervisor.BackoffConfig {
	b := c.Southbound.Backoff
	jitter := b.Jitter
	if jitter == 0 {
		// supervisor treats zero as "use the default"
		jitter = -1
	}
	return supervisor.BackoffConfig{
		Initial:    b.Initial,
		Max:        b.Max,
		Multiplier: b.Multiplier,
		Jitter:     jitter,
	}
}

// NATSEncoding returns the parsed NATS payload encoding.
func (c *Config) NATSEncoding() wire.Encoding {
	enc, _ := wire.ParseEncoding(c.Southbound.NATS.Encoding)
	return enc
}

// Marshal returns the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
