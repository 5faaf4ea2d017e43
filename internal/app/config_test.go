package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/shadowzap/internal/cli"
	"github.com/raysh454/shadowzap/internal/store"
	"github.com/raysh454/shadowzap/internal/tracker"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, StoreSQLite, cfg.StoreCfg.Kind)
	assert.Equal(t, tracker.DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, store.DefaultHistoryCap, cfg.HistoryCap)
	assert.Equal(t, store.DefaultSessionTTL, cfg.SessionTTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shadowzap.yaml")
	data := `
server:
  listen_addr: ":9090"
backend:
  base_url: "http://zap.internal:8000"
  timeout: 2s
store:
  kind: memory
poll_interval: 1500ms
history_cap: 10
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerCfg.ListenAddr)
	assert.Equal(t, "http://zap.internal:8000", cfg.BackendCfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.BackendCfg.Timeout)
	assert.Equal(t, StoreMemory, cfg.StoreCfg.Kind)
	assert.Equal(t, 1500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 10, cfg.HistoryCap)
	// Untouched keys keep their defaults.
	assert.Equal(t, store.DefaultSessionTTL, cfg.SessionTTL)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("store:\n  kind: redis\n"), 0o644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "unknown store kind")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("poll_interval: [\n"), 0o644))
	_, err = LoadConfig(broken)
	assert.Error(t, err)
}

func TestApplyArgs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyArgs(&cli.CLIArgs{
		ListenAddr: ":7000",
		BackendURL: "http://backend:8000",
		Store:      StoreMemory,
		Interval:   time.Second,
		LogLevel:   "debug",
	})

	assert.Equal(t, ":7000", cfg.ServerCfg.ListenAddr)
	assert.Equal(t, "http://backend:8000", cfg.BackendCfg.BaseURL)
	assert.Equal(t, StoreMemory, cfg.StoreCfg.Kind)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, "debug", cfg.LogLevel)

	before := *cfg
	cfg.ApplyArgs(&cli.CLIArgs{})
	assert.Equal(t, before, *cfg)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/x/y.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x/y.db"), got)

	got, err = expandPath("/tmp/z.db")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/z.db", got)
}
