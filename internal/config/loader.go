package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ConfigPathEnv names an explicit config file, overriding the default path.
const ConfigPathEnv = "SESSIONTAIL_CONFIG"

// ConfigPath returns the config file location.
func ConfigPath() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return ExpandPath(p)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "sessiontail", "config.json")
}

// Load reads the config from ConfigPath. A missing file yields the defaults,
// unless the path was set explicitly through ConfigPathEnv.
func Load() (*Config, error) {
	path := ConfigPath()
	cfg, err := LoadFrom(path)
	if errors.Is(err, fs.ErrNotExist) && os.Getenv(ConfigPathEnv) == "" {
		return Default(), nil
	}
	return cfg, err
}

// LoadFrom reads the config at path over the defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, err
	}

	var sc saveConfig
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg := Default()
	if err := sc.applyTo(cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// applyTo overlays the non-empty fields of sc onto cfg.
func (sc saveConfig) applyTo(cfg *Config) error {
	if sc.Journal.Dir != "" {
		cfg.Journal.Dir = sc.Journal.Dir
	}
	if sc.Journal.Prefix != "" {
		cfg.Journal.Prefix = sc.Journal.Prefix
	}
	if sc.Journal.Suffix != "" {
		cfg.Journal.Suffix = sc.Journal.Suffix
	}
	if sc.Overrides.Dir != "" {
		cfg.Overrides.Dir = sc.Overrides.Dir
	}
	if sc.Cursor.Store != "" {
		cfg.Cursor.Store = sc.Cursor.Store
	}
	if sc.Cursor.DBPath != "" {
		cfg.Cursor.DBPath = sc.Cursor.DBPath
	}
	cfg.Metrics.Addr = sc.Metrics.Addr
	if sc.FDs.Warning != 0 {
		cfg.FDs.Warning = sc.FDs.Warning
	}
	if sc.FDs.Critical != 0 {
		cfg.FDs.Critical = sc.FDs.Critical
	}

	var err error
	if cfg.Watch.RefreshInterval, err = parseDuration(sc.Watch.RefreshInterval, cfg.Watch.RefreshInterval); err != nil {
		return fmt.Errorf("watch.refreshInterval: %w", err)
	}
	if cfg.Watch.Debounce, err = parseDuration(sc.Watch.Debounce, cfg.Watch.Debounce); err != nil {
		return fmt.Errorf("watch.debounce: %w", err)
	}
	return nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
