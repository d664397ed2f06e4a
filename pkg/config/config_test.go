package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlink/tagbridge/pkg/model"
	"github.com/gridlink/tagbridge/pkg/scheduler"
	"github.com/gridlink/tagbridge/pkg/supervisor"
	"github.com/gridlink/tagbridge/pkg/wire"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"numeric.random.double", "numeric.random.int32"}, cfg.TagIDs())
	assert.Equal(t, uint16(2), cfg.AddressSpace.Namespace)
	assert.Equal(t, "DA_Data", cfg.AddressSpace.Folder)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.Period)
	assert.Equal(t, time.Second, cfg.Sync.InitialDelay)
	assert.Equal(t, scheduler.ModeAlways, cfg.SyncMode())
	assert.Equal(t, KindSimulator, cfg.Southbound.Kind)
	assert.Equal(t, time.Second, cfg.Southbound.Simulator.UpdateRate)
	assert.Equal(t, ":4840", cfg.Northbound.Listen)
	assert.False(t, cfg.Northbound.Advertise)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestDefaultDecls(t *testing.T) {
	decls, err := Default().Decls()
	require.NoError(t, err)
	require.Len(t, decls, 2)

	assert.Equal(t, model.DataTypeFloat64, decls[0].Type)
	assert.Equal(t, model.DataTypeInt32, decls[1].Type)
	for _, d := range decls {
		assert.Equal(t, "DA_Data", d.Folder)
		assert.Equal(t, model.AccessReadOnly, d.Access)
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
tags:
  - id: line1.temp
    type: float
    folder: Line1
    display_name: Temperature
  - id: line1.on
    type: bool
    access: read-write
sync:
  mode: on-change
southbound:
  kind: nats
  nats:
    encoding: cbor
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"line1.temp", "line1.on"}, cfg.TagIDs())
	assert.Equal(t, scheduler.ModeOnChange, cfg.SyncMode())
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.Period, "untouched keys keep defaults")
	assert.Equal(t, KindNATS, cfg.Southbound.Kind)
	assert.Equal(t, wire.EncodingCBOR, cfg.NATSEncoding())
	assert.Equal(t, "tags", cfg.Southbound.NATS.SubjectPrefix)

	decls, err := cfg.Decls()
	require.NoError(t, err)
	assert.Equal(t, "Line1", decls[0].Folder)
	assert.Equal(t, "Temperature", decls[0].DisplayName)
	assert.Equal(t, "DA_Data", decls[1].Folder)
	assert.Equal(t, model.AccessReadWrite, decls[1].Access)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("sync:\n  perod: 1s\n"))
	assert.Error(t, err)
}

func TestParseKeepsDuplicateTags(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
tags:
  - {id: a, type: int32}
  - {id: a, type: int32}
`))
	require.NoError(t, err)
	assert.Len(t, cfg.Tags, 2)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no tags", func(c *Config) { c.Tags = nil }},
		{"empty tag id", func(c *Config) { c.Tags[0].ID = "" }},
		{"unknown type", func(c *Config) { c.Tags[0].Type = "decimal" }},
		{"unknown access", func(c *Config) { c.Tags[0].Access = "write-only" }},
		{"zero period", func(c *Config) { c.Sync.Period = 0 }},
		{"negative delay", func(c *Config) { c.Sync.InitialDelay = -time.Second }},
		{"bad mode", func(c *Config) { c.Sync.Mode = "sometimes" }},
		{"unknown kind", func(c *Config) { c.Southbound.Kind = "opc" }},
		{"zero update rate", func(c *Config) { c.Southbound.Simulator.UpdateRate = 0 }},
		{"negative fail connects", func(c *Config) { c.Southbound.Simulator.FailConnects = -1 }},
		{"nats without url", func(c *Config) {
			c.Southbound.Kind = KindNATS
			c.Southbound.NATS.URL = ""
		}},
		{"nats bad encoding", func(c *Config) {
			c.Southbound.Kind = KindNATS
			c.Southbound.NATS.Encoding = "xml"
		}},
		{"zero connect timeout", func(c *Config) { c.Southbound.ConnectTimeout = 0 }},
		{"max below initial", func(c *Config) { c.Southbound.Backoff.Max = time.Millisecond }},
		{"multiplier below one", func(c *Config) { c.Southbound.Backoff.Multiplier = 0.5 }},
		{"jitter too large", func(c *Config) { c.Southbound.Backoff.Jitter = 1 }},
		{"min above max", func(c *Config) { c.Northbound.Subscription.MinInterval = 2 * time.Minute }},
		{"no subscriptions", func(c *Config) { c.Northbound.Subscription.MaxSubscriptions = 0 }},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("event_log: events.tlog\nnorthbound:\n  listen: \"127.0.0.1:9000\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "events.tlog", cfg.EventLog)
	assert.Equal(t, "127.0.0.1:9000", cfg.Northbound.Listen)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("sync:\n  period: 0s\n"), 0o600))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestBackoffConfig(t *testing.T) {
	cfg := Default()
	b := cfg.BackoffConfig()
	assert.Equal(t, time.Second, b.Initial)
	assert.Equal(t, 60*time.Second, b.Max)
	assert.Equal(t, 2.0, b.Multiplier)
	assert.Equal(t, 0.25, b.Jitter)

	cfg.Southbound.Backoff.Jitter = 0
	assert.Negative(t, cfg.BackoffConfig().Jitter)
}

func TestBackoffConfigFixedInterval(t *testing.T) {
	cfg, err := Parse(strings.NewReader("southbound:\n  backoff:\n    multiplier: 1\n    jitter: 0\n"))
	require.NoError(t, err)

	b := supervisor.NewBackoff(cfg.BackoffConfig())
	var delays []time.Duration
	for i := 0; i < 4; i++ {
		delays = append(delays, b.Next())
	}
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second, time.Second}, delays)
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	require.NoError(t, err)

	cfg, err := Parse(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
