// Package fdmonitor watches the process's open file descriptor count so that
// journal handles leaked by a read path show up in the logs early.
package fdmonitor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultWarningThreshold is the FD count that triggers a warning.
	DefaultWarningThreshold = 200
	// DefaultCriticalThreshold is the FD count that triggers a critical warning.
	DefaultCriticalThreshold = 500
	// MinCheckInterval prevents checking too frequently.
	MinCheckInterval = 10 * time.Second
)

// Checker rate-limits FD counts and logs when thresholds are crossed.
type Checker struct {
	logger   *slog.Logger
	warning  int
	critical int
	interval time.Duration

	mu        sync.Mutex
	lastCheck time.Time
	lastCount int
}

// New creates a Checker with the default thresholds. A nil logger disables logging.
func New(logger *slog.Logger) *Checker {
	return &Checker{
		logger:   logger,
		warning:  DefaultWarningThreshold,
		critical: DefaultCriticalThreshold,
		interval: MinCheckInterval,
	}
}

// SetThresholds configures the warning and critical thresholds.
func (c *Checker) SetThresholds(warning, critical int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warning = warning
	c.critical = critical
}

// fdDir returns the directory listing this process's descriptors.
func fdDir() string {
	switch runtime.GOOS {
	case "darwin":
		return "/dev/fd"
	case "linux":
		return fmt.Sprintf("/proc/%d/fd", os.Getpid())
	}
	return ""
}

// Count returns the current number of open file descriptors for this process.
// On non-Linux/macOS platforms, returns -1.
func Count() int {
	dir := fdDir()
	if dir == "" {
		return -1
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return -1
	}
	return len(entries)
}

// Check counts descriptors at most once per interval and logs a warning when
// a threshold is crossed. trigger names the read path that prompted the check.
// Returns the count and whether a warning was logged.
func (c *Checker) Check(trigger string) (count int, warned bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.lastCheck) < c.interval {
		return c.lastCount, false
	}

	count = Count()
	if count < 0 {
		return count, false
	}
	c.lastCheck = time.Now()
	c.lastCount = count

	switch {
	case count >= c.critical:
		c.log("critical FD count", count, c.critical, trigger)
		return count, true
	case count >= c.warning:
		c.log("high FD count", count, c.warning, trigger)
		return count, true
	}
	return count, false
}

func (c *Checker) log(msg string, count, threshold int, trigger string) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, "count", count, "threshold", threshold, "trigger", trigger, "breakdown", Breakdown())
}

// Breakdown groups open descriptors by kind: journal logs, databases, pipes,
// sockets and other files. Empty on unsupported platforms.
func Breakdown() map[string]int {
	info := make(map[string]int)
	dir := fdDir()
	if dir == "" {
		return info
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return info
	}

	for _, e := range entries {
		target, err := os.Readlink(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var category string
		switch {
		case strings.HasPrefix(target, "pipe") || target == "anon_inode:[pipe]":
			category = "pipe"
		case strings.HasPrefix(target, "socket") || strings.HasPrefix(target, "["):
			category = "socket"
		case filepath.Ext(target) == ".log":
			category = "journal"
		case filepath.Ext(target) == ".db" || strings.HasSuffix(target, ".db-wal"):
			category = "database"
		default:
			category = "file"
		}
		info[category]++
	}
	return info
}
