package tui

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const highlightStyle = "monokai"

// Highlight colors already wrapped code lines for a 256-color terminal. The
// lexer is guessed from the source; lines come back unchanged when nothing
// matches or tokenizing fails.
func Highlight(lines []string) []string {
	source := strings.Join(lines, "\n")

	lexer := lexers.Analyse(source)
	if lexer == nil {
		return lines
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, source)
	if err != nil {
		return lines
	}

	var b strings.Builder
	if err := formatters.TTY256.Format(&b, styles.Get(highlightStyle), it); err != nil {
		return lines
	}

	// The lexer appends a final newline, which adds one empty line.
	out := strings.Split(b.String(), "\n")
	if len(out) < len(lines) {
		return lines
	}
	return out[:len(lines)]
}
