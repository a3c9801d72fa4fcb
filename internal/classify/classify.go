// Package classify assigns a content kind to a raw clipboard payload.
package classify

import (
	"strings"

	"github.com/yiblet/clipd/internal/clip"
)

// Hint is the clipboard format the payload arrived in.
type Hint int

const (
	HintText Hint = iota
	HintMarkup
	HintBitmap
	HintFiles
)

// CodeThreshold is the number of distinct indicators that marks text as code.
const CodeThreshold = 3

var codeIndicators = []string{
	"public ", "private ", "protected ",
	"class ", "interface ", "enum ",
	"void ", "int ", "string ",
	"function ", "const ", "let ", "var ",
	"def ", "import ", "from ",
	"using ", "namespace ",
	"{", "}", "(", ")",
	"=>", "->", "==", "!=",
	"if (", "for (", "while (",
}

// Classify returns the kind of payload. Files, bitmaps and explicit markup are
// decided by the hint alone; plain text is checked for code before markup so
// generics and comparisons in code are not mistaken for tags.
func Classify(payload string, hint Hint) clip.Kind {
	switch hint {
	case HintFiles:
		return clip.File
	case HintBitmap:
		return clip.Image
	case HintMarkup:
		return clip.Html
	}

	if len(Indicators(payload)) >= CodeThreshold {
		return clip.Code
	}

	if looksLikeMarkup(payload) {
		return clip.Html
	}

	return clip.Text
}

// Indicators returns the distinct code indicators present in text, in table
// order.
func Indicators(text string) []string {
	var found []string
	for _, ind := range codeIndicators {
		if strings.Contains(text, ind) {
			found = append(found, ind)
		}
	}
	return found
}

func looksLikeMarkup(text string) bool {
	if !strings.Contains(text, "<") || !strings.Contains(text, ">") {
		return false
	}
	return strings.Contains(text, "</") ||
		strings.Contains(text, "/>") ||
		strings.Contains(text, "<!DOCTYPE")
}
