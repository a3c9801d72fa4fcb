// Package retention decides which history records are evicted and enforces the
// per-capture size ceiling. Everything here is free of side effects except
// PathSize, which only stats the file system.
package retention

import (
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/yiblet/clipd/internal/clip"
)

const (
	// DefaultWindow is how long a non-favorite record survives.
	DefaultWindow = 24 * time.Hour

	// MaxCaptureSize is the ceiling for a single accepted capture of any kind.
	MaxCaptureSize int64 = 1 << 30
)

// Eligible reports whether r is due for eviction at now. Favorites never are.
func Eligible(r clip.Record, now time.Time, window time.Duration) bool {
	if r.IsFavorite {
		return false
	}
	return now.Sub(r.Timestamp) > window
}

// Sweep partitions records into the ones to keep and the ones to remove.
// Relative order is preserved in both slices.
func Sweep(records []clip.Record, now time.Time, window time.Duration) (kept, removed []clip.Record) {
	kept = make([]clip.Record, 0, len(records))
	for _, r := range records {
		if Eligible(r, now, window) {
			removed = append(removed, r)
			continue
		}
		kept = append(kept, r)
	}
	return kept, removed
}

// Accumulate adds the sizes of the regular files below dir in fsys to used,
// files before subdirectories, and stops as soon as the total crosses limit.
// Unreadable directories and entries are skipped.
func Accumulate(fsys fs.FS, dir string, used, limit int64) (total int64, exceeded bool) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return used, used > limit
	}

	var subdirs []string
	for _, e := range entries {
		if e.IsDir() {
			subdirs = append(subdirs, e.Name())
			continue
		}
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		used += info.Size()
		if used > limit {
			return used, true
		}
	}

	for _, name := range subdirs {
		used, exceeded = Accumulate(fsys, path.Join(dir, name), used, limit)
		if exceeded {
			return used, true
		}
	}
	return used, false
}

// ExceedsCeiling reports whether the tree rooted at dir in fsys is larger than
// limit.
func ExceedsCeiling(fsys fs.FS, dir string, limit int64) bool {
	_, exceeded := Accumulate(fsys, dir, 0, limit)
	return exceeded
}

// PathSize adds the size of the file or directory at p to used with the same
// early exit as Accumulate.
func PathSize(p string, used, limit int64) (total int64, exceeded bool, err error) {
	info, err := os.Stat(p)
	if err != nil {
		return used, false, err
	}
	if !info.IsDir() {
		used += info.Size()
		return used, used > limit, nil
	}
	total, exceeded = Accumulate(os.DirFS(p), ".", used, limit)
	return total, exceeded, nil
}
