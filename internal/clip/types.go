// Package clip defines the clipboard history domain types shared by the
// capture engine, the content store and the index backends.
package clip

import (
	"fmt"
	"strings"
	"time"
)

// Kind classifies the payload of a captured clipboard item.
type Kind int

const (
	Text Kind = iota
	Code
	Html
	Image
	File
)

var kindNames = [...]string{
	Text:  "Text",
	Code:  "Code",
	Html:  "Html",
	Image: "Image",
	File:  "File",
}

// String returns the canonical kind name as stored in the index.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// IsTextual reports whether the payload is stored as UTF-8 text.
func (k Kind) IsTextual() bool {
	return k == Text || k == Code || k == Html
}

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(name, s) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown kind: %q", s)
}

// Content is either a materialized payload or the lazy placeholder of an item
// that is persisted but not yet read back.
type Content struct {
	payload string
	loaded  bool
}

// NotLoaded returns the lazy placeholder.
func NotLoaded() Content {
	return Content{}
}

// Loaded wraps a materialized payload.
func Loaded(payload string) Content {
	return Content{payload: payload, loaded: true}
}

// IsLoaded reports whether the payload has been materialized.
func (c Content) IsLoaded() bool {
	return c.loaded
}

// Payload returns the materialized payload, or "" for the placeholder.
func (c Content) Payload() string {
	return c.payload
}

// Item is the working-set projection of a Record.
type Item struct {
	ID        int64
	Timestamp time.Time
	Kind      Kind
	Content   Content
	Preview   string
	Favorite  bool
}

// Record is the authoritative on-disk catalog entry.
type Record struct {
	ID          int64
	Timestamp   time.Time
	Kind        Kind
	ContentPath string
	PreviewText string
	IsFavorite  bool
}

// Valid reports whether the record carries every required field. Records
// failing this check are leftovers of partial writes and get dropped on load.
func (r Record) Valid() bool {
	return r.ID > 0 &&
		r.ContentPath != "" &&
		r.PreviewText != "" &&
		!r.Timestamp.IsZero() &&
		r.Kind >= Text && r.Kind <= File
}

// ToItem builds the lazy working-set item for this record.
func (r Record) ToItem() Item {
	return Item{
		ID:        r.ID,
		Timestamp: r.Timestamp,
		Kind:      r.Kind,
		Content:   NotLoaded(),
		Preview:   r.PreviewText,
		Favorite:  r.IsFavorite,
	}
}
