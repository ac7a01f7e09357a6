package config

import (
	"errors"
	"time"

	"github.com/wilbur182/sessiontail/internal/fdmonitor"
)

// Config is the root configuration structure.
type Config struct {
	Journal   JournalConfig   `json:"journal"`
	Overrides OverridesConfig `json:"overrides"`
	Watch     WatchConfig     `json:"watch"`
	Cursor    CursorConfig    `json:"cursor"`
	Metrics   MetricsConfig   `json:"metrics"`
	FDs       FDConfig        `json:"fds"`
}

// JournalConfig locates the tailed journal files.
type JournalConfig struct {
	Dir    string `json:"dir"`    // watched directory (supports ~ expansion)
	Prefix string `json:"prefix"` // file name prefix, "Journal." default
	Suffix string `json:"suffix"` // file name suffix, ".log" default
}

// OverridesConfig locates externally authored override files.
type OverridesConfig struct {
	Dir string `json:"dir"`
}

// WatchConfig tunes the change notifier and freshness refresher.
type WatchConfig struct {
	RefreshInterval time.Duration `json:"refreshInterval"`
	Debounce        time.Duration `json:"debounce"`
}

// Cursor store kinds.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// CursorConfig selects where read positions are kept.
type CursorConfig struct {
	// Store is "memory" (positions reset on restart) or "sqlite".
	Store  string `json:"store"`
	DBPath string `json:"dbPath"`
}

// MetricsConfig configures the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `json:"addr"`
}

// FDConfig sets the open file descriptor counts that get logged.
type FDConfig struct {
	Warning  int `json:"warning"`
	Critical int `json:"critical"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Journal: JournalConfig{
			Prefix: "Journal.",
			Suffix: ".log",
		},
		Overrides: OverridesConfig{
			Dir: "~/.config/sessiontail/overrides",
		},
		Watch: WatchConfig{
			RefreshInterval: 2 * time.Second,
			Debounce:        100 * time.Millisecond,
		},
		Cursor: CursorConfig{
			Store:  StoreMemory,
			DBPath: "~/.config/sessiontail/cursors.db",
		},
		FDs: FDConfig{
			Warning:  fdmonitor.DefaultWarningThreshold,
			Critical: fdmonitor.DefaultCriticalThreshold,
		},
	}
}

// ErrNoJournalDir is returned by Validate when no journal directory is set.
var ErrNoJournalDir = errors.New("journal.dir is not set")

// Validate fills invalid values with defaults and reports fatal problems.
func (c *Config) Validate() error {
	def := Default()
	if c.Journal.Prefix == "" && c.Journal.Suffix == "" {
		c.Journal.Prefix = def.Journal.Prefix
		c.Journal.Suffix = def.Journal.Suffix
	}
	if c.Watch.RefreshInterval <= 0 {
		c.Watch.RefreshInterval = def.Watch.RefreshInterval
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = def.Watch.Debounce
	}
	switch c.Cursor.Store {
	case StoreMemory, StoreSQLite:
	default:
		c.Cursor.Store = StoreMemory
	}
	if c.FDs.Warning <= 0 {
		c.FDs.Warning = def.FDs.Warning
	}
	if c.FDs.Critical < c.FDs.Warning {
		c.FDs.Critical = max(def.FDs.Critical, c.FDs.Warning)
	}
	if c.Cursor.Store == StoreSQLite && c.Cursor.DBPath == "" {
		c.Cursor.DBPath = def.Cursor.DBPath
	}

	c.Journal.Dir = ExpandPath(c.Journal.Dir)
	c.Overrides.Dir = ExpandPath(c.Overrides.Dir)
	c.Cursor.DBPath = ExpandPath(c.Cursor.DBPath)

	if c.Journal.Dir == "" {
		return ErrNoJournalDir
	}
	return nil
}
