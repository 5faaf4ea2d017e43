package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/shadowzap/internal/backend"
	"github.com/raysh454/shadowzap/internal/cli"
	"github.com/raysh454/shadowzap/internal/server"
	"github.com/raysh454/shadowzap/internal/store"
	"github.com/raysh454/shadowzap/internal/tracker"
	"github.com/raysh454/shadowzap/internal/webclient"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// StoreConfig selects where the session id and scan history live.
type StoreConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
}

// Config contains the runtime configuration shared by the serve and scan
// commands. It is loaded from YAML and then overridden by CLI flags.
type Config struct {
	ServerCfg server.Config `yaml:"server"`

	BackendCfg backend.Config `yaml:"backend"`

	// WebClient configuration
	WebClientCfg webclient.Config `yaml:"webclient"`

	StoreCfg StoreConfig `yaml:"store"`

	// PollInterval is the auto-poll period for tracked scans.
	PollInterval time.Duration `yaml:"poll_interval"`

	// HistoryCap bounds the local scan history.
	HistoryCap int `yaml:"history_cap"`

	// SessionTTL is how long a backend session id is remembered.
	SessionTTL time.Duration `yaml:"session_ttl"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config populated with sensible development defaults.
func DefaultConfig() *Config {
	return &Config{
		ServerCfg: server.Config{
			ListenAddr: ":8080",
		},
		BackendCfg: backend.Config{
			BaseURL: backend.DefaultBaseURL,
			Timeout: backend.DefaultTimeout,
		},
		WebClientCfg: webclient.Config{
			Client:  webclient.ClientNetHTTP,
			Timeout: 30 * time.Second,
		},
		StoreCfg: StoreConfig{
			Kind: StoreSQLite,
			Path: "~/.config/shadowzap/shadowzap.db",
		},
		PollInterval: tracker.DefaultPollInterval,
		HistoryCap:   store.DefaultHistoryCap,
		SessionTTL:   store.DefaultSessionTTL,
		LogLevel:     "info",
	}
}

// LoadConfig reads the YAML file at path on top of DefaultConfig. Keys absent
// from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyArgs overrides cfg with the flags that were set on the command line.
func (cfg *Config) ApplyArgs(args *cli.CLIArgs) {
	if args == nil {
		return
	}
	if args.ListenAddr != "" {
		cfg.ServerCfg.ListenAddr = args.ListenAddr
	}
	if args.BackendURL != "" {
		cfg.BackendCfg.BaseURL = args.BackendURL
	}
	if args.Store != "" {
		cfg.StoreCfg.Kind = args.Store
	}
	if args.DBPath != "" {
		cfg.StoreCfg.Path = args.DBPath
	}
	if args.Interval > 0 {
		cfg.PollInterval = args.Interval
	}
	if args.LogLevel != "" {
		cfg.LogLevel = args.LogLevel
	}
}

// Validate rejects settings the application cannot start with.
func (cfg *Config) Validate() error {
	switch cfg.StoreCfg.Kind {
	case StoreMemory:
	case StoreSQLite:
		if cfg.StoreCfg.Path == "" {
			return fmt.Errorf("store path is required for %s", StoreSQLite)
		}
	default:
		return fmt.Errorf("unknown store kind %q", cfg.StoreCfg.Kind)
	}
	if cfg.PollInterval < 0 || cfg.SessionTTL < 0 || cfg.HistoryCap < 0 {
		return fmt.Errorf("durations and history cap must not be negative")
	}
	return nil
}

func expandPath(p string) (string, error) {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}
