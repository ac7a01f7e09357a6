package monitor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wilbur182/sessiontail/internal/config"
	"github.com/wilbur182/sessiontail/internal/cursor"
	"github.com/wilbur182/sessiontail/internal/fdmonitor"
	"github.com/wilbur182/sessiontail/internal/journal"
)

const header = `{"timestamp":"2025-01-01T10:00:00Z","event":"Fileheader","part":1,"gameversion":"4.0.0.1904"}`

func loadGame(commander string) string {
	return fmt.Sprintf(`{"timestamp":"2025-01-01T10:00:05Z","event":"LoadGame","Commander":%q}`, commander)
}

func writeFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newMonitor(t *testing.T, opts ...Option) (*Monitor, string, string) {
	t.Helper()
	return newMonitorWithConfig(t, func(*config.Config) {}, opts...)
}

func newMonitorWithConfig(t *testing.T, edit func(*config.Config), opts ...Option) (*Monitor, string, string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Journal.Dir = filepath.Join(root, "journals")
	cfg.Overrides.Dir = filepath.Join(root, "overrides")
	cfg.Watch.RefreshInterval = 50 * time.Millisecond
	cfg.Watch.Debounce = 10 * time.Millisecond
	for _, d := range []string{cfg.Journal.Dir, cfg.Overrides.Dir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	edit(cfg)

	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	m, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, cfg.Journal.Dir, cfg.Overrides.Dir
}

func contains(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

func TestNew_RequiresJournalDir(t *testing.T) {
	if _, err := New(config.Default()); !errors.Is(err, config.ErrNoJournalDir) {
		t.Fatalf("New() error = %v, want ErrNoJournalDir", err)
	}
}

func TestAll_MergesOverridesAndMigratesLegacy(t *testing.T) {
	m, dir, overrides := newMonitor(t)
	writeFile(t, filepath.Join(dir, "Journal.2025-01-01T100000.01.log"), header, loadGame("Alice"), `{"event":"Docked"}`)
	writeFile(t, filepath.Join(overrides, "Override.log"), `{"event":"Manual","n":1}`)
	writeFile(t, filepath.Join(overrides, "Override.Bob.log"), `{"event":"Manual","n":2}`)

	c, err := m.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if !contains(c["Alice"], `{"event":"Docked"}`) {
		t.Errorf("All()[Alice] = %v, missing journal line", c["Alice"])
	}
	if !contains(c["Alice"], `{"event":"Manual","n":1}`) {
		t.Errorf("All()[Alice] = %v, missing legacy override line", c["Alice"])
	}
	if _, ok := c["Bob"]; ok {
		t.Errorf("All() has Bob = %v, want skipped (not observed)", c["Bob"])
	}
	if _, ok := c[journal.DefaultSession]; ok {
		t.Errorf("All() has Default = %v, want none", c[journal.DefaultSession])
	}

	if _, err := os.Stat(filepath.Join(overrides, "Override.log")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("legacy file still present: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(overrides, "Override.Alice.log"))
	if err != nil {
		t.Fatalf("read migrated file: %v", err)
	}
	if !strings.Contains(string(data), `"n":1`) {
		t.Fatalf("migrated file = %q", data)
	}

	// Second call: journal content already consumed, overrides re-read in full.
	c, err = m.All()
	if err != nil {
		t.Fatalf("All() second call error = %v", err)
	}
	if got := c["Alice"]; len(got) != 1 || got[0] != `{"event":"Manual","n":1}` {
		t.Fatalf("All()[Alice] second call = %v, want only override line", got)
	}
}

func TestRead_ReturnsSession(t *testing.T) {
	m, dir, _ := newMonitor(t)
	path := filepath.Join(dir, "Journal.2025-01-01T100000.01.log")
	writeFile(t, path, header, loadGame("Carol"))

	b, err := m.Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if b.Session != "Carol" || len(b.Lines) != 2 {
		t.Fatalf("Read() = %+v, want Carol with 2 lines", b)
	}
}

func TestSince_AlwaysIncludesNewest(t *testing.T) {
	m, dir, _ := newMonitor(t)
	path := filepath.Join(dir, "Journal.2025-01-01T100000.01.log")
	writeFile(t, path, header, loadGame("Dave"))
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	c, err := m.Since(time.Now())
	if err != nil {
		t.Fatalf("Since() error = %v", err)
	}
	if len(c["Dave"]) != 2 {
		t.Fatalf("Since()[Dave] = %v, want 2 lines", c["Dave"])
	}
}

func TestWatch_DeliversAppendedLines(t *testing.T) {
	m, dir, _ := newMonitor(t)
	path := filepath.Join(dir, "Journal.2025-01-01T100000.01.log")
	writeFile(t, path, header, loadGame("Erin"))
	if _, err := m.Read(path); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var got []string
	done := make(chan struct{}, 1)
	err := m.Watch(func(session string, lines []string) {
		mu.Lock()
		defer mu.Unlock()
		if session != "Erin" {
			t.Errorf("handler session = %q, want Erin", session)
		}
		got = append(got, lines...)
		select {
		case done <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if err := m.Watch(func(string, []string) {}); !errors.Is(err, ErrWatching) {
		t.Fatalf("second Watch() error = %v, want ErrWatching", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString(`{"event":"FSDJump"}` + "\n")
	_ = f.Close()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("handler not called")
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != `{"event":"FSDJump"}` {
		t.Fatalf("delivered = %v", got)
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	cfg := config.Default()
	cfg.Journal.Dir = filepath.Join(t.TempDir(), "absent")
	m, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = m.Close() }()

	if err := m.Watch(func(string, []string) {}); err != nil {
		t.Fatalf("Watch() error = %v, want nil", err)
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestClose(t *testing.T) {
	m, _, _ := newMonitor(t)
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if _, err := m.All(); !errors.Is(err, ErrClosed) {
		t.Fatalf("All() after Close = %v, want ErrClosed", err)
	}
	if err := m.Watch(func(string, []string) {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Watch() after Close = %v, want ErrClosed", err)
	}
}

// upperCodec names override files by the upper-cased session.
type upperCodec struct{}

func (upperCodec) Encode(name string) string { return strings.ToUpper(name) }

func (upperCodec) Decode(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	return token[:1] + strings.ToLower(token[1:]), true
}

func TestWithCodec_NamesOverrideFiles(t *testing.T) {
	m, dir, overrides := newMonitor(t, WithCodec(upperCodec{}))
	writeFile(t, filepath.Join(dir, "Journal.2025-01-01T100000.01.log"), header, loadGame("Alice"))
	writeFile(t, filepath.Join(overrides, "Override.ALICE.log"), "manual")

	c, err := m.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if !contains(c["Alice"], "manual") {
		t.Fatalf("All()[Alice] = %v, want override line via codec", c["Alice"])
	}
}

// closeCounter records Close calls on a cursor store.
type closeCounter struct {
	*cursor.Memory
	closes int
}

func (c *closeCounter) Close() error {
	c.closes++
	return c.Memory.Close()
}

func TestWithStore_KeepsCursorAndIsClosed(t *testing.T) {
	store := &closeCounter{Memory: cursor.NewMemory()}
	m, dir, _ := newMonitor(t, WithStore(store))
	path := filepath.Join(dir, "Journal.2025-01-01T100000.01.log")
	writeFile(t, path, header, loadGame("Frank"))

	if _, err := m.Read(path); err != nil {
		t.Fatal(err)
	}
	cur, ok, err := store.Load(path)
	if err != nil || !ok {
		t.Fatalf("store.Load() = %+v, %v, %v", cur, ok, err)
	}
	if cur.Session != "Frank" || cur.Offset == 0 {
		t.Fatalf("stored cursor = %+v, want Frank with offset", cur)
	}

	_ = m.Close()
	_ = m.Close()
	if store.closes != 1 {
		t.Fatalf("store closed %d times, want 1", store.closes)
	}
}

func TestNew_AppliesFDThresholds(t *testing.T) {
	if fdmonitor.Count() < 0 {
		t.Skip("FD counting unsupported here")
	}
	m, _, _ := newMonitorWithConfig(t, func(cfg *config.Config) {
		cfg.FDs.Warning = 1
		cfg.FDs.Critical = 1 << 30
	})
	if _, warned := m.fds.Check("test"); !warned {
		t.Fatal("Check() with configured warning threshold 1 did not warn")
	}
}
