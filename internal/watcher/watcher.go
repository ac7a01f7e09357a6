package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/wilbur182/sessiontail/internal/journal"
	"github.com/wilbur182/sessiontail/internal/metrics"
)

const (
	// DefaultRefreshInterval is how often the newest file is re-checked.
	DefaultRefreshInterval = 2 * time.Second
	// DefaultDebounce batches rapid writes to the same file.
	DefaultDebounce = 100 * time.Millisecond
)

// Reader is the incremental reader the watcher drives.
type Reader interface {
	ReadFrom(path, trigger string) (journal.Batch, error)
	Match(path string) bool
	Newest() (string, bool)
}

// Handler receives new lines for a session. Calls are serialized, and a
// Handler must not call Stop.
type Handler func(session string, lines []string)

// Config configures a Watcher.
type Config struct {
	Dir             string
	Reader          Reader
	Handler         Handler
	RefreshInterval time.Duration // <=0 means DefaultRefreshInterval
	Debounce        time.Duration // <=0 means DefaultDebounce
	// AfterRead runs after every triggered read, e.g. for FD leak checks.
	AfterRead func(trigger string)
	Logger    *slog.Logger
}

// Watcher owns the fsnotify watch and the refresh ticker.
type Watcher struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	started   bool
	stopped   bool
	fsWatcher *fsnotify.Watcher
	refresher *refresher
	stopChan  chan struct{}
	done      sync.WaitGroup

	timersMu sync.Mutex
	timers   map[string]*time.Timer

	// handlerMu serializes Handler calls across both triggers.
	handlerMu sync.Mutex
	halted    bool // guarded by handlerMu; no dispatch after Stop
}

// New creates a Watcher. Nothing runs until Start.
func New(cfg Config) *Watcher {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		cfg:    cfg,
		logger: logger,
		timers: make(map[string]*time.Timer),
	}
}

// Start begins watching. A missing directory is not an error: nothing is
// watched and Start returns nil. Start after Stop returns an error.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return errors.New("watcher: already stopped")
	}
	if w.started {
		return nil
	}

	info, err := os.Stat(w.cfg.Dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		w.logger.Debug("watcher: journal directory missing, not watching", "dir", w.cfg.Dir)
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", w.cfg.Dir, err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(w.cfg.Dir); err != nil {
		_ = fsWatcher.Close()
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}

	w.fsWatcher = fsWatcher
	w.stopChan = make(chan struct{})
	w.refresher = newRefresher(w.cfg.RefreshInterval, w.cfg.Reader, w.dispatch)
	w.started = true

	w.done.Add(1)
	go w.run()
	w.refresher.start()
	return nil
}

// Stop stops the refresh ticker and the fsnotify watch, then waits for the
// event loop to exit. Safe to call more than once and before Start.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	started := w.started
	w.mu.Unlock()

	if !started {
		return nil
	}

	w.refresher.stop()
	close(w.stopChan)
	err := w.fsWatcher.Close()
	w.done.Wait()

	w.handlerMu.Lock()
	w.halted = true
	w.handlerMu.Unlock()

	w.timersMu.Lock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.timersMu.Unlock()
	return err
}

// run is the fsnotify event loop.
func (w *Watcher) run() {
	defer w.done.Done()

	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.cfg.Reader.Match(filepath.Clean(event.Name)) {
				continue
			}
			w.logger.Debug("watcher: event", "op", event.Op, "name", event.Name)
			w.debounce(filepath.Clean(event.Name))

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Debug("watcher: fsnotify error", "err", err)
		}
	}
}

// debounce schedules a read of path, collapsing events that arrive within
// the debounce window. Each path has its own timer.
func (w *Watcher) debounce(path string) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.timersMu.Lock()
		delete(w.timers, path)
		w.timersMu.Unlock()

		select {
		case <-w.stopChan:
			return
		default:
		}
		w.dispatch(path, metrics.TriggerNotify)
	})
}

// dispatch reads path and forwards non-empty results to the handler.
func (w *Watcher) dispatch(path, trigger string) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	if w.halted {
		return
	}

	batch, err := w.cfg.Reader.ReadFrom(path, trigger)
	if w.cfg.AfterRead != nil {
		w.cfg.AfterRead(trigger)
	}
	if err != nil {
		w.logger.Warn("watcher: read failed", "path", path, "trigger", trigger, "err", err)
		return
	}
	if len(batch.Lines) == 0 || w.cfg.Handler == nil {
		return
	}
	w.cfg.Handler(batch.Session, batch.Lines)
}
