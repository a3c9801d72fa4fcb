package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// WrapText wraps text to fit within maxWidth columns, breaking on word
// boundaries when possible. Newlines in the input are kept and tabs become
// four spaces. Widths are counted in runes. Height truncation is left to the
// caller.
func WrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{}
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", "    ")

	var result []string
	for _, line := range strings.Split(text, "\n") {
		if utf8.RuneCountInString(line) <= maxWidth {
			result = append(result, line)
			continue
		}
		result = append(result, wrapLine(line, maxWidth)...)
	}
	return result
}

// wrapLine wraps a single line that is too long.
func wrapLine(line string, maxWidth int) []string {
	var result []string
	var current strings.Builder
	width := 0

	flush := func() {
		result = append(result, current.String())
		current.Reset()
		width = 0
	}

	for _, word := range splitWords(line) {
		runes := []rune(word)

		if len(runes) > maxWidth {
			if width > 0 {
				flush()
			}
			for len(runes) > maxWidth {
				result = append(result, string(runes[:maxWidth]))
				runes = runes[maxWidth:]
			}
			if len(runes) > 0 {
				current.WriteString(string(runes))
				width = len(runes)
			}
			continue
		}

		needed := len(runes)
		if width > 0 {
			needed++
		}
		if width+needed > maxWidth {
			flush()
			needed = len(runes)
		}
		if width > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
		width += needed
	}

	if width > 0 {
		flush()
	}
	return result
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, unicode.IsSpace)
}
