package cursor

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a local SQLite database.
type SQLite struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// OpenSQLite opens (creating if needed) the cursor database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cursor db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cursor db: %w", err)
	}
	// One writer; sqlite serializes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS cursors (
		path        TEXT PRIMARY KEY,
		byte_offset INTEGER NOT NULL DEFAULT 0,
		session     TEXT NOT NULL DEFAULT '',
		fingerprint INTEGER NOT NULL DEFAULT 0
	);`)
	return err
}

// Load returns the cursor stored for path.
func (s *SQLite) Load(path string) (Cursor, bool, error) {
	var (
		c  Cursor
		fp int64
	)
	err := s.db.QueryRow(
		`SELECT byte_offset, session, fingerprint FROM cursors WHERE path = ?`, path,
	).Scan(&c.Offset, &c.Session, &fp)
	if errors.Is(err, sql.ErrNoRows) {
		return Cursor{}, false, nil
	}
	if err != nil {
		return Cursor{}, false, fmt.Errorf("load cursor %s: %w", path, err)
	}
	// SQLite integers are signed; the fingerprint round-trips through int64.
	c.Fingerprint = uint64(fp)
	return c, true, nil
}

// Save upserts the cursor for path.
func (s *SQLite) Save(path string, c Cursor) error {
	_, err := s.db.Exec(`
	INSERT INTO cursors (path, byte_offset, session, fingerprint) VALUES (?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		byte_offset = excluded.byte_offset,
		session = excluded.session,
		fingerprint = excluded.fingerprint`,
		path, c.Offset, c.Session, int64(c.Fingerprint))
	if err != nil {
		return fmt.Errorf("save cursor %s: %w", path, err)
	}
	return nil
}

// Delete removes the cursor for path.
func (s *SQLite) Delete(path string) error {
	if _, err := s.db.Exec(`DELETE FROM cursors WHERE path = ?`, path); err != nil {
		return fmt.Errorf("delete cursor %s: %w", path, err)
	}
	return nil
}

// Close closes the database. Safe to call more than once.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
