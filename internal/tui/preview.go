package tui

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"os"
	"strings"

	// Stored images are PNG.
	_ "image/png"

	"github.com/dustin/go-humanize"

	"github.com/yiblet/clipd/internal/clip"
)

// Preview is the right-pane rendering of one history item.
type Preview struct {
	Item    clip.Item
	Payload string
	Loading bool
	Missing bool // the item disappeared before its content was read

	Plain []string // wrapped lines, used for searching
	Lines []string // wrapped lines as displayed

	width int
}

// NewPreview returns a preview waiting for its content.
func NewPreview(item clip.Item) *Preview {
	return &Preview{Item: item, Loading: true}
}

// SetPayload stores the loaded content and drops cached lines.
func (p *Preview) SetPayload(payload string, found bool) {
	p.Payload = payload
	p.Loading = false
	p.Missing = !found
	p.width = 0
}

// Wrap recomputes the lines for width. It is a no-op when the width is
// unchanged.
func (p *Preview) Wrap(width int) {
	if width <= 0 || width == p.width {
		return
	}
	p.width = width

	switch {
	case p.Loading:
		p.Plain = []string{"Loading..."}
	case p.Missing:
		p.Plain = []string{"This item no longer exists."}
	case p.Payload == "":
		p.Plain = []string{"Content unavailable. The stored file may have been removed."}
	case p.Item.Kind == clip.Image:
		p.Plain = WrapText(describeImage(p.Payload), width)
	case p.Item.Kind == clip.File:
		p.Plain = WrapText(describeFiles(p.Payload), width)
	default:
		p.Plain = WrapText(p.Payload, width)
	}

	p.Lines = p.Plain
	if p.Item.Kind == clip.Code && !p.Loading && p.Payload != "" {
		p.Lines = Highlight(p.Plain)
	}
}

// Matches returns the indexes of the plain lines matching pattern.
func (p *Preview) Matches(pattern string) []int {
	if pattern == "" {
		return nil
	}
	re, err := compileSearch(pattern)
	if err != nil {
		return nil
	}

	var matches []int
	for i, line := range p.Plain {
		if re.MatchString(line) {
			matches = append(matches, i)
		}
	}
	return matches
}

func describeImage(payload string) string {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "Image (unreadable payload)"
	}

	size := humanize.IBytes(uint64(len(data)))
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Sprintf("Image, %s of raw data\n\nPress c to copy it back to the clipboard.", size)
	}
	return fmt.Sprintf("%s image, %d×%d, %s\n\nPress c to copy it back to the clipboard.",
		strings.ToUpper(format), cfg.Width, cfg.Height, size)
}

func describeFiles(payload string) string {
	var b strings.Builder
	for _, p := range strings.Split(payload, "\n") {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		switch {
		case err != nil:
			fmt.Fprintf(&b, "%s (missing)\n", p)
		case info.IsDir():
			fmt.Fprintf(&b, "%s/\n", p)
		default:
			fmt.Fprintf(&b, "%s (%s)\n", p, humanize.IBytes(uint64(info.Size())))
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}
