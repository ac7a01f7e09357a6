// Package cursor stores per-file read positions for the journal tailer.
//
// The default store is in-memory: positions, resolved sessions and file
// fingerprints are lost when the process exits, so every file is read from its
// start again the first time it is seen by a new process. The SQLite store
// persists the same state across restarts.
package cursor

import "github.com/wilbur182/sessiontail/internal/cache"

// Cursor is the persisted read state of one journal file.
type Cursor struct {
	Offset      int64  // bytes already emitted
	Session     string // resolved session, empty if unresolved
	Fingerprint uint64 // hash of the file's first line, 0 if unknown
}

// Store persists cursors keyed by absolute file path.
type Store interface {
	Load(path string) (Cursor, bool, error)
	Save(path string, c Cursor) error
	Delete(path string) error
	Close() error
}

// Memory is an in-process Store.
type Memory struct {
	entries *cache.Cache[Cursor]
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: cache.New[Cursor](0)}
}

// Load returns the cursor stored for path.
func (m *Memory) Load(path string) (Cursor, bool, error) {
	c, ok := m.entries.Get(path)
	return c, ok, nil
}

// Save stores c for path.
func (m *Memory) Save(path string, c Cursor) error {
	m.entries.Set(path, c)
	return nil
}

// Delete forgets path.
func (m *Memory) Delete(path string) error {
	m.entries.Delete(path)
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
