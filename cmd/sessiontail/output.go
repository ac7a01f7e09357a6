package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/wilbur182/sessiontail/internal/journal"
	"golang.org/x/term"
)

var (
	sessionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	countStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// printer writes session lines, styled when the output is a terminal.
type printer struct {
	w      io.Writer
	styled bool
	hl     *highlighter
}

func newPrinter() *printer {
	p := &printer{
		w:      os.Stdout,
		styled: term.IsTerminal(int(os.Stdout.Fd())),
	}
	if p.styled {
		p.hl = newHighlighter()
	}
	return p
}

func (p *printer) session(name string) string {
	if !p.styled {
		return name
	}
	return sessionStyle.Render(name)
}

// lines prints one session's lines, each prefixed with the session name.
func (p *printer) lines(session string, lines []string) {
	p.padded(session, 0, lines)
}

// padded is lines with the session column filled to width display cells.
func (p *printer) padded(session string, width int, lines []string) {
	prefix := p.session(runewidth.FillRight(session, width))
	for _, l := range lines {
		if p.styled {
			l = p.hl.render(l)
		}
		fmt.Fprintf(p.w, "%s\t%s\n", prefix, l)
	}
}

// collection prints every session of c, sessions in name order.
func (p *printer) collection(c journal.Collection) {
	names := make([]string, 0, len(c))
	width := 0
	for name := range c {
		names = append(names, name)
		width = max(width, runewidth.StringWidth(name))
	}
	sort.Strings(names)

	for _, name := range names {
		p.padded(name, width, c[name])
	}
	if p.styled {
		total := 0
		for _, l := range c {
			total += len(l)
		}
		fmt.Fprintln(os.Stderr, countStyle.Render(fmt.Sprintf("%d lines, %d sessions", total, len(c))))
	}
}
