package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/wilbur182/sessiontail/internal/journal"
)

func TestParseSince(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2h", now.Add(-2 * time.Hour), false},
		{"-30m", now.Add(-30 * time.Minute), false},
		{"2025-01-01T08:00:00Z", time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC), false},
		{"yesterday", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := parseSince(tt.in, now)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSince(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseSince(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEffectiveVersion(t *testing.T) {
	if got := effectiveVersion("v1.2.3"); got != "v1.2.3" {
		t.Errorf("effectiveVersion(v1.2.3) = %q", got)
	}
	if got := effectiveVersion(""); got == "" {
		t.Error("effectiveVersion(\"\") is empty")
	}
}

func TestPrinterPlain(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf}
	p.collection(journal.Collection{
		"Bob":   {"b1"},
		"Alice": {"a1", "a2"},
	})
	want := "Alice\ta1\nAlice\ta2\nBob  \tb1\n"
	if buf.String() != want {
		t.Fatalf("collection output = %q, want %q", buf.String(), want)
	}
}

func TestPrinterPadsWideNames(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf}
	p.collection(journal.Collection{
		"Al":  {"a"},
		"太郎": {"t"},
	})
	want := "Al  \ta\n太郎\tt\n"
	if buf.String() != want {
		t.Fatalf("collection output = %q, want %q", buf.String(), want)
	}
}

func TestHighlighterKeepsText(t *testing.T) {
	h := newHighlighter()
	if h == nil {
		t.Fatal("newHighlighter() = nil, want JSON lexer")
	}
	line := `{"event":"FSDJump","StarSystem":"Sol","JumpDist":8.5}`
	got := ansi.Strip(h.render(line))
	if got != line {
		t.Fatalf("render() text = %q, want %q", got, line)
	}
}

func TestHighlighterNilIsPlain(t *testing.T) {
	var h *highlighter
	if got := h.render("x"); got != "x" {
		t.Fatalf("nil render() = %q, want x", got)
	}
}
