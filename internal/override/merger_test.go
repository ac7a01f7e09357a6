package override

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/wilbur182/sessiontail/internal/journal"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestMerge_MissingDirectory(t *testing.T) {
	m := New(Config{Dir: filepath.Join(t.TempDir(), "absent")})
	c := journal.Collection{}
	if err := m.Merge(c, []string{"Alice"}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if len(c) != 0 {
		t.Fatalf("Merge() added %v", c)
	}
}

func TestMerge_SkipsSessionNotObserved(t *testing.T) {
	dir := t.TempDir()
	m := New(Config{Dir: dir})
	write(t, m.Path("Alice"), "alice-1\nalice-2\n")
	write(t, m.Path("Bob"), "bob-1\n")

	c := journal.Collection{"Alice": {"log-1"}}
	if err := m.Merge(c, []string{"Alice"}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if _, ok := c["Bob"]; ok {
		t.Fatalf("Merge() included Bob: %v", c)
	}
	want := []string{"log-1", "alice-1", "alice-2"}
	if !reflect.DeepEqual(c["Alice"], want) {
		t.Fatalf("Alice = %q, want %q", c["Alice"], want)
	}
}

func TestMerge_NoObservedSessionsTakesAll(t *testing.T) {
	dir := t.TempDir()
	m := New(Config{Dir: dir})
	write(t, m.Path("Bob"), "bob-1")

	c := journal.Collection{}
	if err := m.Merge(c, nil); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if !reflect.DeepEqual(c["Bob"], []string{"bob-1"}) {
		t.Fatalf("Bob = %q, want [bob-1]", c["Bob"])
	}
}

func TestMerge_ReReadsFullContentEachTime(t *testing.T) {
	dir := t.TempDir()
	m := New(Config{Dir: dir})
	write(t, m.Path("Alice"), "a\n")

	for i := range 2 {
		c := journal.Collection{}
		if err := m.Merge(c, []string{"Alice"}); err != nil {
			t.Fatal(err)
		}
		if len(c["Alice"]) != 1 {
			t.Fatalf("merge %d: Alice = %q, want one line", i, c["Alice"])
		}
	}
}

func TestMerge_LegacyMigration(t *testing.T) {
	dir := t.TempDir()
	m := New(Config{Dir: dir})
	legacy := filepath.Join(dir, LegacyName)
	write(t, legacy, "shared-1\nshared-2\n")

	c := journal.Collection{}
	if err := m.Merge(c, []string{"Alice"}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if !reflect.DeepEqual(c["Alice"], []string{"shared-1", "shared-2"}) {
		t.Fatalf("Alice = %q", c["Alice"])
	}
	if _, err := os.Stat(legacy); !os.IsNotExist(err) {
		t.Fatalf("legacy file still exists (err=%v)", err)
	}
	data, err := os.ReadFile(m.Path("Alice"))
	if err != nil {
		t.Fatalf("read migrated file: %v", err)
	}
	if string(data) != "shared-1\nshared-2\n" {
		t.Fatalf("migrated content = %q", data)
	}

	// Next merge reads the migrated file exactly once.
	c = journal.Collection{}
	if err := m.Merge(c, []string{"Alice"}); err != nil {
		t.Fatal(err)
	}
	if len(c["Alice"]) != 2 {
		t.Fatalf("Alice after migration = %q, want 2 lines", c["Alice"])
	}
}

func TestMerge_LegacyAppendsToExistingTarget(t *testing.T) {
	dir := t.TempDir()
	m := New(Config{Dir: dir})
	write(t, m.Path("Alice"), "own")
	write(t, filepath.Join(dir, LegacyName), "shared\n")

	c := journal.Collection{}
	if err := m.Merge(c, []string{"Alice", "Bob"}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c["Alice"], []string{"own", "shared"}) {
		t.Fatalf("Alice = %q, want [own shared]", c["Alice"])
	}
	data, _ := os.ReadFile(m.Path("Alice"))
	if string(data) != "own\nshared\n" {
		t.Fatalf("target content = %q", data)
	}
}

func TestMerge_LegacyWithoutSessionIsKept(t *testing.T) {
	dir := t.TempDir()
	m := New(Config{Dir: dir})
	legacy := filepath.Join(dir, LegacyName)
	write(t, legacy, "shared\n")

	c := journal.Collection{}
	if err := m.Merge(c, nil); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c[journal.DefaultSession], []string{"shared"}) {
		t.Fatalf("Default = %q", c[journal.DefaultSession])
	}
	if _, err := os.Stat(legacy); err != nil {
		t.Fatalf("legacy file removed without a known session: %v", err)
	}
}
