// Package monitor wires the journal tailer, override merger and change
// watcher into a single object owned by the caller.
package monitor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wilbur182/sessiontail/internal/config"
	"github.com/wilbur182/sessiontail/internal/cursor"
	"github.com/wilbur182/sessiontail/internal/fdmonitor"
	"github.com/wilbur182/sessiontail/internal/journal"
	"github.com/wilbur182/sessiontail/internal/metrics"
	"github.com/wilbur182/sessiontail/internal/override"
	"github.com/wilbur182/sessiontail/internal/watcher"
)

var (
	// ErrClosed is returned by operations on a closed Monitor.
	ErrClosed = errors.New("monitor: closed")
	// ErrWatching is returned by Watch while a previous Watch is active.
	ErrWatching = errors.New("monitor: already watching")
)

// Handler receives lines appended to a session's journal.
type Handler = watcher.Handler

// Option customizes a Monitor.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	codec   override.NameCodec
	store   cursor.Store
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithCodec sets the session name codec used for override file names.
func WithCodec(c override.NameCodec) Option {
	return func(o *options) { o.codec = c }
}

// WithStore sets the cursor store, overriding cfg.Cursor. The Monitor takes
// ownership and closes it on Close.
func WithStore(s cursor.Store) Option {
	return func(o *options) { o.store = s }
}

// Monitor is the public face of the tailer.
type Monitor struct {
	cfg     *config.Config
	logger  *slog.Logger
	tailer  *journal.Tailer
	merger  *override.Merger
	store   cursor.Store
	fds     *fdmonitor.Checker
	metrics *metrics.Metrics

	mu      sync.Mutex
	watcher *watcher.Watcher
	closed  bool
}

// New validates cfg and builds a Monitor. Nothing is watched until Watch.
func New(cfg *config.Config, opts ...Option) (*Monitor, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	store := o.store
	if store == nil {
		var err error
		if store, err = openStore(cfg.Cursor); err != nil {
			return nil, err
		}
	}

	m := &Monitor{
		cfg:     cfg,
		logger:  o.logger,
		store:   store,
		fds:     fdmonitor.New(o.logger),
		metrics: o.metrics,
	}
	m.fds.SetThresholds(cfg.FDs.Warning, cfg.FDs.Critical)
	m.tailer = journal.New(journal.Config{
		Dir:     cfg.Journal.Dir,
		Pattern: journal.Pattern{Prefix: cfg.Journal.Prefix, Suffix: cfg.Journal.Suffix},
		Store:   store,
		Logger:  o.logger,
		Metrics: o.metrics,
	})
	m.merger = override.New(override.Config{
		Dir:     cfg.Overrides.Dir,
		Codec:   o.codec,
		Logger:  o.logger,
		Metrics: o.metrics,
	})
	return m, nil
}

func openStore(cfg config.CursorConfig) (cursor.Store, error) {
	if cfg.Store != config.StoreSQLite {
		return cursor.NewMemory(), nil
	}
	s, err := cursor.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open cursor store: %w", err)
	}
	return s, nil
}

// Dir returns the absolute journal directory.
func (m *Monitor) Dir() string { return m.tailer.Dir() }

// Watch starts delivering new lines to handler as journal files change. A
// missing journal directory is not an error; nothing is delivered.
func (m *Monitor) Watch(handler Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.watcher != nil {
		return ErrWatching
	}

	if err := m.tailer.Discover(); err != nil {
		m.logger.Warn("monitor: initial scan failed", "dir", m.tailer.Dir(), "err", err)
	}

	w := watcher.New(watcher.Config{
		Dir:             m.tailer.Dir(),
		Reader:          m.tailer,
		Handler:         handler,
		RefreshInterval: m.cfg.Watch.RefreshInterval,
		Debounce:        m.cfg.Watch.Debounce,
		AfterRead: func(trigger string) {
			m.fds.Check(trigger)
		},
		Logger: m.logger,
	})
	if err := w.Start(); err != nil {
		return err
	}
	m.watcher = w
	return nil
}

// Stop ends the active Watch. It is a no-op when not watching.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	w := m.watcher
	m.watcher = nil
	m.mu.Unlock()

	if w == nil {
		return nil
	}
	return w.Stop()
}

// Read returns the unread complete lines of path and their session.
func (m *Monitor) Read(path string) (journal.Batch, error) {
	if m.isClosed() {
		return journal.Batch{}, ErrClosed
	}
	return m.tailer.ReadFrom(path, metrics.TriggerRead)
}

// All reads every journal file and merges the override files, grouped by
// session. The Default session only appears through overrides. A legacy
// override file is migrated to its per-session name as a side effect.
func (m *Monitor) All() (journal.Collection, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	c, observed, err := m.tailer.All()
	if err != nil {
		return nil, err
	}
	if err := m.merger.Merge(c, observed); err != nil {
		return nil, fmt.Errorf("merge overrides: %w", err)
	}
	return c, nil
}

// Since reads the files written after t, plus always the newest file.
func (m *Monitor) Since(t time.Time) (journal.Collection, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	return m.tailer.Since(t)
}

// Close stops watching and releases the cursor store. Later calls return nil.
func (m *Monitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	w := m.watcher
	m.watcher = nil
	m.mu.Unlock()

	var errs []error
	if w != nil {
		errs = append(errs, w.Stop())
	}
	errs = append(errs, m.store.Close())
	return errors.Join(errs...)
}

func (m *Monitor) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
