// Package clipboard describes what the capture engine needs from an OS
// clipboard: change signals carrying a snapshot of the formats on offer, and
// a way to put an item back.
package clipboard

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/yiblet/clipd/internal/clip"
)

// Format is a clipboard representation the engine knows how to capture.
type Format int

const (
	FormatFiles Format = iota
	FormatText
	FormatImage
	FormatHTML
)

func (f Format) String() string {
	switch f {
	case FormatFiles:
		return "files"
	case FormatText:
		return "text"
	case FormatImage:
		return "image"
	case FormatHTML:
		return "html"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Snapshot is the clipboard content at one change signal. Payload accessors
// may block on the OS and should honor ctx.
type Snapshot interface {
	Formats() []Format
	Files(ctx context.Context) ([]string, error)
	Text(ctx context.Context) (string, error)
	Image(ctx context.Context) ([]byte, error)
	HTML(ctx context.Context) (string, error)
}

// Source delivers one Snapshot per clipboard change until ctx ends, then
// closes the channel.
type Source interface {
	Watch(ctx context.Context) (<-chan Snapshot, error)
}

// Writer puts content on the clipboard.
type Writer interface {
	WriteText(text string) error
	WriteImage(png []byte) error
}

// Has reports whether s offers f.
func Has(s Snapshot, f Format) bool {
	return slices.Contains(s.Formats(), f)
}

// CopyOut writes a loaded item payload back through w. Images arrive base64
// encoded; file items are written as their newline-separated paths.
func CopyOut(w Writer, kind clip.Kind, payload string) error {
	if kind != clip.Image {
		return w.WriteText(payload)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("failed to decode image payload: %w", err)
	}
	return w.WriteImage(data)
}

// ParseURIList extracts local paths from a text/uri-list payload. Comments,
// blank lines and non-file URIs are skipped.
func ParseURIList(data string) []string {
	var paths []string
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		u, err := url.Parse(line)
		if err != nil || u.Scheme != "file" {
			continue
		}
		if u.Host != "" && u.Host != "localhost" {
			continue
		}
		p := u.Path
		if runtime.GOOS == "windows" {
			p = strings.TrimPrefix(p, "/")
		}
		paths = append(paths, filepath.FromSlash(p))
	}
	return paths
}
