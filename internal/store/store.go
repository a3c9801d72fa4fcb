// Package store defines the persistence interface for the history catalog.
// The catalog is a flat list of records; payloads live in the content store
// and are referenced by path.
package store

import (
	"cmp"
	"context"
	"slices"

	"github.com/yiblet/clipd/internal/clip"
)

// Index persists the full record list. Implementations treat every Save as a
// complete replacement of the catalog.
type Index interface {
	// Load returns the persisted records, newest first. A missing catalog
	// yields an empty list. A catalog that cannot be parsed is set aside as a
	// backup and also yields an empty list.
	Load(ctx context.Context) ([]clip.Record, error)

	// Save replaces the persisted catalog with records. Readers never observe
	// a partially written catalog.
	Save(ctx context.Context, records []clip.Record) error

	// Close releases any resources (DB connections, file handles, etc.).
	Close() error
}

// Filter drops records missing a required field and records sharing an id
// with an earlier one.
func Filter(records []clip.Record) []clip.Record {
	seen := make(map[int64]bool, len(records))
	out := make([]clip.Record, 0, len(records))
	for _, r := range records {
		if !r.Valid() || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

// SortNewestFirst orders records by timestamp descending, breaking ties by id.
func SortNewestFirst(records []clip.Record) {
	slices.SortStableFunc(records, func(a, b clip.Record) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

// MaxID returns the largest id in records, or 0.
func MaxID(records []clip.Record) int64 {
	var max int64
	for _, r := range records {
		if r.ID > max {
			max = r.ID
		}
	}
	return max
}
