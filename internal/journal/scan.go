package journal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/wilbur182/sessiontail/internal/metrics"
)

// fileEntry is one journal file found by a directory scan.
type fileEntry struct {
	path     string
	created  time.Time
	modified time.Time
}

// list returns the journal files in the watched directory.
// A missing directory yields no files and no error.
func (t *Tailer) list() ([]fileEntry, error) {
	entries, err := os.ReadDir(t.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.dir, err)
	}

	files := make([]fileEntry, 0, len(entries))
	present := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.IsDir() || !t.pattern.Match(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed between ReadDir and Info
		}
		path := filepath.Join(t.dir, e.Name())
		files = append(files, fileEntry{
			path:     path,
			created:  createdAt(path, info),
			modified: info.ModTime(),
		})
		present[path] = struct{}{}
	}

	t.prune(present)
	t.setNewest(files)
	return files, nil
}

// All reads every journal file from its cursor and groups the lines by
// session. Content still attributed to DefaultSession is left out. The second
// result lists the sessions seen, in the order they were first seen.
func (t *Tailer) All() (Collection, []string, error) {
	files, err := t.list()
	if err != nil {
		return Collection{}, nil, err
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].created.Equal(files[j].created) {
			return files[i].path < files[j].path
		}
		return files[i].created.Before(files[j].created)
	})

	out := Collection{}
	var observed []string
	for _, f := range files {
		batch, err := t.read(f.path, metrics.TriggerScan)
		if err != nil {
			return out, observed, err
		}
		if batch.Session == DefaultSession {
			continue
		}
		if _, seen := out[batch.Session]; !seen {
			observed = append(observed, batch.Session)
			out[batch.Session] = []string{}
		}
		out.Add(batch.Session, batch.Lines...)
	}
	return out, observed, nil
}

// Since reads the journal files written after since and groups their lines by
// session. The most recently written file is always read, so callers get
// content whenever any journal file exists.
func (t *Tailer) Since(since time.Time) (Collection, error) {
	files, err := t.list()
	if err != nil {
		return Collection{}, err
	}
	selected := selectRecent(files, since)

	out := Collection{}
	// Oldest first so each session's lines stay chronological.
	for i := len(selected) - 1; i >= 0; i-- {
		batch, err := t.read(selected[i].path, metrics.TriggerScan)
		if err != nil {
			return out, err
		}
		out.Add(batch.Session, batch.Lines...)
	}
	return out, nil
}

// selectRecent orders files newest-written first and keeps the prefix written
// after since. The newest file is kept even when it is older than since.
func selectRecent(files []fileEntry, since time.Time) []fileEntry {
	sorted := append([]fileEntry(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].modified.After(sorted[j].modified)
	})

	n := 0
	for n < len(sorted) && (n == 0 || sorted[n].modified.After(since)) {
		n++
	}
	return sorted[:n]
}

// Discover scans the directory without reading any file: it drops state for
// vanished files and recomputes the newest-file reference.
func (t *Tailer) Discover() error {
	_, err := t.list()
	return err
}
