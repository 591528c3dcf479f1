// Package config loads the launchpop application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/roach88/launchpop/internal/engine"
	"github.com/roach88/launchpop/internal/viewport"
)

// Default configuration values.
const (
	DefaultFooterSelector = "footer"
	DefaultSessionTTL     = "24h"
	DefaultLogLevel       = "info"
	DefaultDBName         = "counters.db"
)

// Config represents the launchpop configuration.
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Store  StoreConfig  `toml:"store"`
	Log    LogConfig    `toml:"log"`
}

// EngineConfig holds the engine-wide popup defaults.
type EngineConfig struct {
	AutoAttachTriggers bool                 `toml:"auto_attach_triggers"`
	FooterSelector     string               `toml:"footer_selector"`
	Breakpoints        viewport.Breakpoints `toml:"breakpoints"`
}

// StoreConfig holds the counter database settings.
type StoreConfig struct {
	Path       string `toml:"path"`        // Empty = DataPath()/counters.db
	SessionTTL string `toml:"session_ttl"` // Sessions older than this are pruned
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			AutoAttachTriggers: false,
			FooterSelector:     DefaultFooterSelector,
			Breakpoints:        viewport.DefaultBreakpoints(),
		},
		Store: StoreConfig{
			Path:       "",
			SessionTTL: DefaultSessionTTL,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "launchpop", "config.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "launchpop")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	bp := c.Engine.Breakpoints
	if bp.SmallMax < 0 || bp.MediumMax < 0 {
		return fmt.Errorf("engine.breakpoints: thresholds must not be negative")
	}
	if bp.SmallMax > 0 && bp.MediumMax > 0 && bp.SmallMax >= bp.MediumMax {
		return fmt.Errorf("engine.breakpoints: small_max (%d) must be below medium_max (%d)", bp.SmallMax, bp.MediumMax)
	}
	if _, err := c.Store.TTL(); err != nil {
		return err
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Defaults converts the engine section into engine defaults.
func (c *Config) Defaults() engine.Defaults {
	return engine.Defaults{
		AutoAttachTriggers: c.Engine.AutoAttachTriggers,
		FooterSelector:     c.Engine.FooterSelector,
		Breakpoints:        c.Engine.Breakpoints,
	}
}

// DBPath returns the configured database path, or the default under DataPath.
func (c *Config) DBPath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(DataPath(), DefaultDBName)
}

// TTL parses the session TTL. Empty or zero disables pruning.
func (s StoreConfig) TTL() (time.Duration, error) {
	if s.SessionTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.SessionTTL)
	if err != nil {
		return 0, fmt.Errorf("store.session_ttl: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("store.session_ttl: must not be negative")
	}
	return d, nil
}

// SlogLevel maps the configured level name to a slog level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level: unknown level %q", l.Level)
	}
}
