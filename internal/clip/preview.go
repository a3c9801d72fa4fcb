package clip

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// PreviewLimit is the maximum number of characters kept in a preview before
// the ellipsis marker.
const PreviewLimit = 100

// Preview collapses whitespace and caps the result at PreviewLimit characters,
// appending "..." when truncated.
func Preview(content string) string {
	cleaned := SanitizeTitle(content)
	return TruncateTitle(cleaned, PreviewLimit)
}

// TruncateTitle keeps at most maxLen characters of title and appends "..."
// when anything was cut. Counts runes, not bytes.
func TruncateTitle(title string, maxLen int) string {
	title = strings.TrimSpace(title)

	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}

	return string(runes[:maxLen]) + "..."
}

// SanitizeTitle removes control characters and collapses whitespace.
func SanitizeTitle(title string) string {
	title = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, title)

	return strings.Join(strings.Fields(title), " ")
}

// ImageLabel is the time-bucketed preview label given to captured bitmaps.
func ImageLabel(t time.Time) string {
	return "Image_" + t.Format("20060102_150405")
}

// FilesPreview summarizes a list of captured file names: the single name, or
// "N files: a, b, c..." showing the first three.
func FilesPreview(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}

	shown := names
	suffix := ""
	if len(names) > 3 {
		shown = names[:3]
		suffix = "..."
	}
	return fmt.Sprintf("%d files: %s%s", len(names), strings.Join(shown, ", "), suffix)
}
