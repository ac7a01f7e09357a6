// Package override merges externally authored override files into the
// per-session line collections produced by a journal scan.
//
// Override files live in their own directory, either as the single legacy
// file Override.log or as one Override.<token>.log per session, where token
// is the session name encoded by a NameCodec. Override files are not tailed:
// their full content is merged on every scan.
package override

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/alexflint/go-filemutex"
	"github.com/wilbur182/sessiontail/internal/cache"
	"github.com/wilbur182/sessiontail/internal/journal"
	"github.com/wilbur182/sessiontail/internal/metrics"
)

const (
	// LegacyName is the pre-migration shared override file.
	LegacyName = "Override.log"
	filePrefix = "Override."
	fileSuffix = ".log"
	// lockName guards legacy migration across processes.
	lockName = ".override.lock"
)

// Config configures a Merger.
type Config struct {
	Dir     string
	Codec   NameCodec // nil means EscapeCodec
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Merger unions override files into session collections.
type Merger struct {
	dir     string
	codec   NameCodec
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// File is an override file with its resolved session.
type File struct {
	Path    string
	Session string
	Legacy  bool
}

// New creates a Merger for cfg.Dir. The directory need not exist.
func New(cfg Config) *Merger {
	m := &Merger{
		dir:     cfg.Dir,
		codec:   cfg.Codec,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	if m.codec == nil {
		m.codec = EscapeCodec{}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Path returns the per-session override path for session.
func (m *Merger) Path(session string) string {
	return filepath.Join(m.dir, filePrefix+m.codec.Encode(session)+fileSuffix)
}

// Files lists the override files and resolves each one's session. The legacy
// file belongs to the first observed session, or DefaultSession if none.
func (m *Merger) Files(observed []string) ([]File, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list overrides %s: %w", m.dir, err)
	}

	var files []File
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		path := filepath.Join(m.dir, name)
		if name == LegacyName {
			session := journal.DefaultSession
			if len(observed) > 0 {
				session = observed[0]
			}
			files = append(files, File{Path: path, Session: session, Legacy: true})
			continue
		}
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		token := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		session, ok := m.codec.Decode(token)
		if token == "" || !ok {
			m.logger.Debug("override: undecodable file name", "path", path)
			continue
		}
		files = append(files, File{Path: path, Session: session})
	}
	// Per-session files first so content migrated out of the legacy file is not merged twice.
	sort.SliceStable(files, func(i, j int) bool { return !files[i].Legacy && files[j].Legacy })
	return files, nil
}

// Merge appends the content of every applicable override file to c. When
// observed is non-empty, files for sessions not in observed are skipped. The
// legacy file is migrated to its per-session path once its session is known.
func (m *Merger) Merge(c journal.Collection, observed []string) error {
	files, err := m.Files(observed)
	if err != nil {
		return err
	}

	for _, f := range files {
		if len(observed) > 0 && !slices.Contains(observed, f.Session) {
			m.logger.Debug("override: session not in this run", "path", f.Path, "session", f.Session)
			continue
		}
		lines, err := readLines(f.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read override %s: %w", f.Path, err)
		}
		c.Add(f.Session, lines...)
		m.metrics.OverrideMerged()

		// A Default-attributed legacy file stays shared until a session is observed.
		if f.Legacy && f.Session != journal.DefaultSession {
			if err := m.migrate(f.Path, f.Session); err != nil {
				return err
			}
		}
	}
	return nil
}

// migrate moves the legacy file's content to session's override file and
// removes the legacy file. An existing per-session file is appended to.
func (m *Merger) migrate(legacy, session string) error {
	lock, err := filemutex.New(filepath.Join(m.dir, lockName))
	if err != nil {
		return fmt.Errorf("open migration lock: %w", err)
	}
	defer func() { _ = lock.Close() }()
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	// Another process may have migrated while we waited for the lock.
	data, err := os.ReadFile(legacy)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read legacy override: %w", err)
	}

	target := m.Path(session)
	if err := appendFile(target, data); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := os.Remove(legacy); err != nil {
		return fmt.Errorf("remove legacy override: %w", err)
	}
	m.metrics.LegacyMigrated()
	m.logger.Info("override: migrated legacy file", "session", session, "path", target)
	return nil
}

// appendFile appends data to path, creating it if needed and keeping the
// existing content line-terminated.
func appendFile(path string, data []byte) error {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		data = append([]byte{'\n'}, data...)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// readLines returns every line of path, including a final unterminated one.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	buf := cache.GetScannerBuffer()
	defer cache.PutScannerBuffer(buf)
	scanner.Buffer(buf, cache.MaxLineSize)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
