package main

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// syntaxTheme is the chroma style used for journal lines.
const syntaxTheme = "monokai"

// highlighter colors JSON journal lines for terminal output.
type highlighter struct {
	lexer chroma.Lexer
	style *chroma.Style
}

// newHighlighter returns nil if no JSON lexer is registered.
func newHighlighter() *highlighter {
	lexer := lexers.Get("json")
	if lexer == nil {
		return nil
	}
	style := styles.Get(syntaxTheme)
	if style == nil {
		style = styles.Fallback
	}
	return &highlighter{
		lexer: chroma.Coalesce(lexer),
		style: style,
	}
}

// render returns line with each token styled. Lines that fail to tokenise
// are returned unchanged.
func (h *highlighter) render(line string) string {
	if h == nil {
		return line
	}
	iterator, err := h.lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}

	var sb strings.Builder
	for _, token := range iterator.Tokens() {
		// Chroma appends a newline to the input; the caller adds its own.
		text := strings.TrimSuffix(token.Value, "\n")
		if text == "" {
			continue
		}
		sb.WriteString(h.tokenStyle(token.Type).Render(text))
	}
	return sb.String()
}

// tokenStyle converts a chroma token type to a lipgloss style.
func (h *highlighter) tokenStyle(tokenType chroma.TokenType) lipgloss.Style {
	entry := h.style.Get(tokenType)
	style := lipgloss.NewStyle()

	if entry.Colour.IsSet() {
		style = style.Foreground(lipgloss.Color(entry.Colour.String()))
	}
	if entry.Bold == chroma.Yes {
		style = style.Bold(true)
	}
	if entry.Underline == chroma.Yes {
		style = style.Underline(true)
	}
	return style
}
