package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// saveConfig is the JSON-marshaling intermediary that uses string durations.
type saveConfig struct {
	Journal   JournalConfig   `json:"journal"`
	Overrides OverridesConfig `json:"overrides"`
	Watch     saveWatchConfig `json:"watch"`
	Cursor    CursorConfig    `json:"cursor"`
	Metrics   MetricsConfig   `json:"metrics,omitempty"`
	FDs       FDConfig        `json:"fds"`
}

type saveWatchConfig struct {
	RefreshInterval string `json:"refreshInterval,omitempty"`
	Debounce        string `json:"debounce,omitempty"`
}

// toSaveConfig converts Config to the JSON-serializable format.
func toSaveConfig(cfg *Config) saveConfig {
	return saveConfig{
		Journal:   cfg.Journal,
		Overrides: cfg.Overrides,
		Watch: saveWatchConfig{
			RefreshInterval: cfg.Watch.RefreshInterval.String(),
			Debounce:        cfg.Watch.Debounce.String(),
		},
		Cursor:  cfg.Cursor,
		Metrics: cfg.Metrics,
		FDs:     cfg.FDs,
	}
}

// Save writes the config to ConfigPath.
func Save(cfg *Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to path.
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(toSaveConfig(cfg), "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
