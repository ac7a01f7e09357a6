package fdmonitor

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	count := Count()
	// Sandboxed environments may hide /proc; -1 is acceptable there.
	t.Logf("Current FD count: %d", count)
}

func TestCheck_RateLimited(t *testing.T) {
	c := New(nil)
	first, _ := c.Check("test")
	second, warned := c.Check("test")
	if first > 0 && second != first {
		t.Fatalf("second Check() = %d, want cached %d", second, first)
	}
	if warned {
		t.Fatal("rate-limited Check() warned")
	}
}

func TestCheck_WarnsOverThreshold(t *testing.T) {
	if Count() < 0 {
		t.Skip("FD counting unsupported here")
	}
	c := New(nil)
	c.SetThresholds(1, 1<<30)
	if _, warned := c.Check("test"); !warned {
		t.Fatal("Check() with threshold 1 did not warn")
	}
}

func TestBreakdown_CountsJournalHandles(t *testing.T) {
	if runtime.GOOS != "linux" || Count() < 0 {
		t.Skip("categorization relies on /proc link targets")
	}
	path := filepath.Join(t.TempDir(), "Journal.1.log")
	if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	if Breakdown()["journal"] < 1 {
		t.Fatalf("Breakdown() = %v, want at least one journal handle", Breakdown())
	}
}
