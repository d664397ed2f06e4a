package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(Flags{})
	require.NoError(t, err)
	assert.Equal(t, ":4840", cfg.Northbound.Listen)
	assert.Empty(t, cfg.EventLog)
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("northbound:\n  listen: \":9000\"\nevent_log: file.tlog\n"), 0o600))

	cfg, err := loadConfig(Flags{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Northbound.Listen)
	assert.Equal(t, "file.tlog", cfg.EventLog)

	cfg, err = loadConfig(Flags{ConfigFile: path, Listen: "127.0.0.1:9100", EventLog: "flag.tlog"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", cfg.Northbound.Listen)
	assert.Equal(t, "flag.tlog", cfg.EventLog)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(Flags{ConfigFile: filepath.Join(t.TempDir(), "none.yaml")})
	assert.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, "warn", "json")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	logger.Warn("careful", "tag", "a")
	assert.Contains(t, buf.String(), `"msg":"careful"`)
	assert.Contains(t, buf.String(), `"version":"1.0"`)

	buf.Reset()
	logger = setupLogger(&buf, "bogus", "text")
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNewBridgeDebugAddsEventLogger(t *testing.T) {
	cfg, err := loadConfig(Flags{})
	require.NoError(t, err)

	b, err := newBridge(cfg, setupLogger(&bytes.Buffer{}, "debug", "text"))
	require.NoError(t, err)
	assert.Len(t, b.Nodes(), 2)
}
