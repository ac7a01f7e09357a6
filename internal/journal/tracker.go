package journal

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wilbur182/sessiontail/internal/cache"
	"github.com/wilbur182/sessiontail/internal/cursor"
	"github.com/wilbur182/sessiontail/internal/metrics"
)

// trackedFile is the in-memory state of one journal file.
// All fields are guarded by mu.
type trackedFile struct {
	mu       sync.Mutex
	loaded   bool // cursor loaded from the store
	cur      cursor.Cursor
	excluded bool
	created  time.Time
}

// Config configures a Tailer.
type Config struct {
	// Dir is the watched journal directory.
	Dir string
	// Pattern selects journal files in Dir. Zero value means DefaultPattern.
	Pattern Pattern
	// Store persists cursors. Nil means an in-memory store.
	Store   cursor.Store
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Tailer reads journal files incrementally and attributes them to sessions.
type Tailer struct {
	dir     string
	pattern Pattern
	store   cursor.Store
	files   *cache.Cache[*trackedFile]
	logger  *slog.Logger
	metrics *metrics.Metrics

	newestMu      sync.Mutex
	newest        string
	newestCreated time.Time
	lastRead      string
}

// New creates a Tailer for cfg.Dir. The directory need not exist yet.
func New(cfg Config) *Tailer {
	t := &Tailer{
		dir:     cfg.Dir,
		pattern: cfg.Pattern,
		store:   cfg.Store,
		// Entries live until their file disappears; see prune.
		files:   cache.New[*trackedFile](0),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	if abs, err := filepath.Abs(cfg.Dir); err == nil {
		t.dir = abs
	}
	if t.pattern == (Pattern{}) {
		t.pattern = DefaultPattern
	}
	if t.store == nil {
		t.store = cursor.NewMemory()
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// Dir returns the absolute journal directory.
func (t *Tailer) Dir() string { return t.dir }

// Match reports whether path names a journal file inside the watched directory.
func (t *Tailer) Match(path string) bool {
	return filepath.Dir(path) == t.dir && t.pattern.Match(filepath.Base(path))
}

// Newest returns the most recently created tracked file.
func (t *Tailer) Newest() (string, bool) {
	t.newestMu.Lock()
	defer t.newestMu.Unlock()
	return t.newest, t.newest != ""
}

// Tracked returns the number of files with tracking state.
func (t *Tailer) Tracked() int {
	return t.files.Len()
}

// track returns the entry for path, creating it on first sight, and updates
// the newest-file reference when a different file than last time is read.
func (t *Tailer) track(path string, info fs.FileInfo) *trackedFile {
	tf, created := t.files.GetOrCreate(path, func() *trackedFile {
		return &trackedFile{created: createdAt(path, info)}
	})
	if created {
		t.metrics.FilesTracked(t.Tracked())
	}

	t.newestMu.Lock()
	if path != t.lastRead {
		t.lastRead = path
		if t.newest == "" || tf.created.After(t.newestCreated) {
			t.newest = path
			t.newestCreated = tf.created
		}
	}
	t.newestMu.Unlock()
	return tf
}

// setNewest replaces the newest-file reference after a directory scan.
func (t *Tailer) setNewest(files []fileEntry) {
	t.newestMu.Lock()
	defer t.newestMu.Unlock()

	t.newest, t.newestCreated = "", time.Time{}
	for _, f := range files {
		if t.newest == "" || f.created.After(t.newestCreated) {
			t.newest, t.newestCreated = f.path, f.created
		}
	}
}

// prune drops tracking state for files that no longer exist.
// present holds the paths seen by the scan that triggered the prune.
func (t *Tailer) prune(present map[string]struct{}) {
	var gone []string
	removed := t.files.DeleteIf(func(path string, _ cache.Entry[*trackedFile]) bool {
		if _, ok := present[path]; ok {
			return false
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			gone = append(gone, path)
			return true
		}
		return false
	})
	for _, path := range gone {
		if err := t.store.Delete(path); err != nil {
			t.logger.Warn("journal: forget cursor", "path", path, "err", err)
		}
	}
	if removed > 0 {
		t.logger.Debug("journal: pruned vanished files", "count", removed)
		t.metrics.FilesTracked(t.Tracked())
	}
}
