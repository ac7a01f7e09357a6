package journal

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wilbur182/sessiontail/internal/cache"
	"github.com/wilbur182/sessiontail/internal/metrics"
)

// Read returns the session for path and the complete lines appended since the
// previous read of the same file. A missing file or an excluded-channel file
// yields an empty batch for DefaultSession. Safe for concurrent use.
func (t *Tailer) Read(path string) (Batch, error) {
	return t.read(path, metrics.TriggerRead)
}

// ReadFrom is Read with the trigger recorded in metrics.
func (t *Tailer) ReadFrom(path, trigger string) (Batch, error) {
	return t.read(path, trigger)
}

func (t *Tailer) read(path, trigger string) (Batch, error) {
	empty := Batch{Session: DefaultSession}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return empty, nil
	}
	if err != nil {
		return empty, fmt.Errorf("stat %s: %w", path, err)
	}

	tf := t.track(path, info)
	tf.mu.Lock()
	defer tf.mu.Unlock()

	if err := t.loadLocked(path, tf); err != nil {
		return empty, err
	}

	excluded, err := t.excludedLocked(path, tf)
	if errors.Is(err, fs.ErrNotExist) {
		return empty, nil
	}
	if err != nil {
		return empty, fmt.Errorf("inspect %s: %w", path, err)
	}
	if excluded {
		if tf.cur.Session != "" {
			tf.cur.Session = ""
			t.saveLocked(path, tf)
		}
		return empty, nil
	}

	lines, offset, err := t.readLinesLocked(path, tf)
	if errors.Is(err, fs.ErrNotExist) {
		return empty, nil
	}
	if err != nil {
		return empty, fmt.Errorf("read %s: %w", path, err)
	}

	tf.cur.Offset = offset
	t.saveLocked(path, tf)
	t.metrics.LinesEmitted(trigger, len(lines))
	return Batch{Session: tf.session(), Lines: lines}, nil
}

// readLinesLocked reads complete lines from the stored offset, feeding each to
// the session resolver. The returned offset sits just past the last line read.
// Caller holds tf.mu.
func (t *Tailer) readLinesLocked(path string, tf *trackedFile) ([]string, int64, error) {
	r, err := cache.NewIncrementalReader(path, tf.cur.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = r.Close() }()

	var lines []string
	for {
		line, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		tf.observe(line)
		lines = append(lines, string(line))
	}
	return lines, r.Offset(), nil
}

// loadLocked pulls the stored cursor the first time a file is seen.
// Caller holds tf.mu.
func (t *Tailer) loadLocked(path string, tf *trackedFile) error {
	if tf.loaded {
		return nil
	}
	cur, ok, err := t.store.Load(path)
	if err != nil {
		return fmt.Errorf("load cursor: %w", err)
	}
	if ok {
		tf.cur = cur
	}
	tf.loaded = true
	return nil
}

// saveLocked writes the cursor back. Store failures are logged, not returned:
// the in-memory state stays authoritative for this process.
func (t *Tailer) saveLocked(path string, tf *trackedFile) {
	if err := t.store.Save(path, tf.cur); err != nil {
		t.logger.Warn("journal: save cursor", "path", path, "err", err)
	}
}
