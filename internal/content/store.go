// Package content persists clipboard payloads below the storage root, one
// artifact per item, and reads them back. It knows nothing about the index.
package content

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	// Decoders for formats a bitmap may arrive in.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/dustin/go-humanize"

	"github.com/yiblet/clipd/internal/clip"
	"github.com/yiblet/clipd/internal/logger"
	"github.com/yiblet/clipd/internal/remfs"
	"github.com/yiblet/clipd/internal/retention"
)

const (
	// ManifestName lists the copied targets of a file-reference capture.
	ManifestName = "files.txt"

	// MinImageSize is the smallest payload accepted as a bitmap.
	MinImageSize = 8

	pngExt = ".png"
	rawExt = ".dat"
)

var (
	ErrOutsideRoot   = errors.New("path is outside the storage root")
	ErrTooLarge      = errors.New("payload exceeds the capture size ceiling")
	ErrTooSmall      = errors.New("payload is too small to be an image")
	ErrNothingCopied = errors.New("no file could be copied")
)

// Store reads and writes item payloads.
type Store struct {
	fs      *remfs.RemFS
	maxSize int64
	log     logger.Logger
}

// New creates a Store writing below rfs. maxSize <= 0 selects
// retention.MaxCaptureSize.
func New(rfs *remfs.RemFS, maxSize int64, log logger.Logger) *Store {
	if maxSize <= 0 {
		maxSize = retention.MaxCaptureSize
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		fs:      rfs,
		maxSize: maxSize,
		log:     log,
	}
}

// MaxSize returns the per-capture ceiling in bytes.
func (s *Store) MaxSize() int64 {
	return s.maxSize
}

// SaveText writes text as data/<id>.txt and returns the stored path.
func (s *Store) SaveText(id int64, text string) (string, error) {
	p := s.fs.Path(remfs.DataDir, idName(id)+".txt")
	if err := remfs.WriteFileAtomic(p, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to write text content: %w", err)
	}
	return s.fs.Rel(p), nil
}

// SaveImage re-encodes raw as a lossless PNG at images/<id>.png. Payloads that
// cannot be decoded or encoded are kept verbatim as images/<id>.dat.
func (s *Store) SaveImage(id int64, raw []byte) (string, error) {
	size := int64(len(raw))
	if size < MinImageSize {
		return "", ErrTooSmall
	}
	if size > s.maxSize {
		return "", fmt.Errorf("%w: %s", ErrTooLarge, humanize.IBytes(uint64(size)))
	}

	p := s.fs.Path(remfs.ImagesDir, idName(id)+pngExt)
	encoded, err := reencodePNG(raw)
	if err == nil {
		err = remfs.WriteFileAtomic(p, encoded, 0644)
		if err == nil {
			s.log.Debug("image saved",
				logger.Int64("id", id),
				logger.String("size", humanize.IBytes(uint64(len(encoded)))),
				logger.String("original", humanize.IBytes(uint64(size))))
			return s.fs.Rel(p), nil
		}
	}

	s.log.Warn("png encoding failed, storing raw bytes",
		logger.Int64("id", id),
		logger.Error(err))

	fallback := s.fs.Path(remfs.ImagesDir, idName(id)+rawExt)
	if err := remfs.WriteFileAtomic(fallback, raw, 0644); err != nil {
		return "", fmt.Errorf("failed to write raw image: %w", err)
	}
	return s.fs.Rel(fallback), nil
}

// IsRawImage reports whether a stored image path is the raw-bytes fallback.
func IsRawImage(p string) bool {
	return strings.EqualFold(filepath.Ext(p), rawExt)
}

// SaveFileReferences copies each source into files/<id>/ and writes a manifest
// of the copied targets. Entries that are missing, unreadable or over the
// ceiling are skipped. It returns the manifest path and the preview text.
func (s *Store) SaveFileReferences(id int64, paths []string) (string, string, error) {
	target := s.fs.Path(remfs.FilesDir, idName(id))
	if err := os.MkdirAll(target, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create item folder: %w", err)
	}

	used := map[string]bool{ManifestName: true}
	var saved, names []string

	for _, src := range paths {
		name, err := s.copyReference(src, target, used)
		if err != nil {
			s.log.Warn("skipping file reference",
				logger.Int64("id", id),
				logger.String("path", src),
				logger.Error(err))
			continue
		}
		saved = append(saved, filepath.Join(target, name))
		names = append(names, displayName(src, name))
	}

	if len(saved) == 0 {
		_ = os.RemoveAll(target)
		return "", "", ErrNothingCopied
	}

	manifest := filepath.Join(target, ManifestName)
	if err := remfs.WriteFileAtomic(manifest, []byte(strings.Join(saved, "\n")+"\n"), 0644); err != nil {
		_ = os.RemoveAll(target)
		return "", "", fmt.Errorf("failed to write manifest: %w", err)
	}

	return s.fs.Rel(manifest), clip.FilesPreview(names), nil
}

// ReferencePreview returns the preview SaveFileReferences would produce if
// every existing source copied successfully. The engine uses it as the dedup
// key before anything is written.
func ReferencePreview(paths []string) string {
	used := map[string]bool{ManifestName: true}
	var names []string
	for _, src := range paths {
		info, err := os.Stat(src)
		if err != nil || !(info.IsDir() || info.Mode().IsRegular()) {
			continue
		}
		name := uniqueName(filepath.Base(src), used)
		used[name] = true
		names = append(names, displayName(src, name))
	}
	return clip.FilesPreview(names)
}

// copyReference copies one source below target and returns the name it was
// stored under.
func (s *Store) copyReference(src, target string, used map[string]bool) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", err
	}

	name := uniqueName(filepath.Base(src), used)
	dst := filepath.Join(target, name)

	switch {
	case info.IsDir():
		if retention.ExceedsCeiling(os.DirFS(src), ".", s.maxSize) {
			return "", ErrTooLarge
		}
		if err := copyDir(src, dst); err != nil {
			_ = os.RemoveAll(dst)
			return "", err
		}
	case info.Mode().IsRegular():
		if info.Size() > s.maxSize {
			return "", fmt.Errorf("%w: %s", ErrTooLarge, humanize.IBytes(uint64(info.Size())))
		}
		if err := copyFile(src, dst, info.Mode().Perm()); err != nil {
			_ = os.Remove(dst)
			return "", err
		}
	default:
		return "", fmt.Errorf("unsupported file type %s", info.Mode().Type())
	}

	used[name] = true
	return name, nil
}

// Read returns the payload stored at p: text for textual kinds, base64 PNG
// (or base64 raw bytes for the .dat fallback) for images, and the
// newline-joined manifest for files.
func (s *Store) Read(p string, kind clip.Kind) (string, error) {
	abs := s.fs.Resolve(p)
	if !s.fs.Contains(abs) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}

	switch kind {
	case clip.Image:
		if IsRawImage(abs) {
			return base64.StdEncoding.EncodeToString(data), nil
		}
		canonical, err := reencodePNG(data)
		if err != nil {
			return "", fmt.Errorf("failed to decode stored image: %w", err)
		}
		return base64.StdEncoding.EncodeToString(canonical), nil
	case clip.File:
		var lines []string
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimRight(line, "\r"); line != "" {
				lines = append(lines, line)
			}
		}
		return strings.Join(lines, "\n"), nil
	default:
		return string(data), nil
	}
}

// Delete removes the artifact at p. For File items the whole per-item folder
// goes. Paths outside the root are refused; missing artifacts are not an error.
func (s *Store) Delete(p string, kind clip.Kind) error {
	abs := s.fs.Resolve(p)
	if !s.fs.Contains(abs) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}

	if kind == clip.File {
		dir := abs
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			dir = filepath.Dir(abs)
		}
		if !s.fs.ContainsDir(remfs.FilesDir, dir) {
			return fmt.Errorf("%w: %s", ErrOutsideRoot, dir)
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove item folder: %w", err)
		}
		return nil
	}

	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove content: %w", err)
	}
	return nil
}

func reencodePNG(raw []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func idName(id int64) string {
	return strconv.FormatInt(id, 10)
}

func displayName(src, stored string) string {
	if info, err := os.Stat(src); err == nil && info.IsDir() {
		return stored + " (folder)"
	}
	return stored
}

// uniqueName returns name, or "name (n).ext" when it is already taken.
func uniqueName(name string, used map[string]bool) string {
	if !used[name] {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if !used[candidate] {
			return candidate
		}
	}
}
