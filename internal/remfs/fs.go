// Package remfs describes the private storage root of the clipboard history:
// where the index lives, the per-kind content directories, and whether a path
// belongs to the root at all.
package remfs

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	ConfigDir       = ".config/clipd"
	DefaultStoreDir = "store"

	DataDir   = "data"
	ImagesDir = "images"
	FilesDir  = "files"

	IndexYAML   = "index.yaml"
	IndexSQLite = "index.db"
)

// RemFS is the storage root. Every content artifact and the index live below it.
type RemFS struct {
	root string
}

// New creates a RemFS rooted at ~/.config/clipd/store/.
func New() (*RemFS, error) {
	return NewWithStorePath("")
}

// NewWithStorePath creates a RemFS with a custom location.
// If storePath is empty, uses the default ~/.config/clipd/store/
// If storePath is absolute, uses it directly as the root
// If storePath is relative, treats it as a subdirectory of ~/.config/clipd/
func NewWithStorePath(storePath string) (*RemFS, error) {
	var root string

	if storePath != "" && filepath.IsAbs(storePath) {
		root = storePath
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		if storePath == "" {
			storePath = DefaultStoreDir
		}
		root = filepath.Join(homeDir, ConfigDir, storePath)
	}

	return NewWithRoot(root)
}

// NewWithRoot creates a RemFS at root and makes sure the content directories
// exist.
func NewWithRoot(root string) (*RemFS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	rfs := &RemFS{root: abs}
	for _, dir := range []string{"", DataDir, ImagesDir, FilesDir} {
		if err := os.MkdirAll(filepath.Join(abs, dir), 0755); err != nil {
			return nil, err
		}
	}
	return rfs, nil
}

// Root returns the absolute root directory.
func (rfs *RemFS) Root() string {
	return rfs.root
}

// Path joins elements onto the root.
func (rfs *RemFS) Path(elem ...string) string {
	return filepath.Join(append([]string{rfs.root}, elem...)...)
}

// Resolve turns a stored content path into an absolute path. Relative paths
// are interpreted against the root.
func (rfs *RemFS) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(rfs.root, p)
}

// Rel returns p relative to the root, using forward slashes so the index
// stays portable. Paths outside the root are returned cleaned but unchanged.
func (rfs *RemFS) Rel(p string) string {
	abs := rfs.Resolve(p)
	rel, err := filepath.Rel(rfs.root, abs)
	if err != nil || !rfs.Contains(abs) {
		return abs
	}
	return filepath.ToSlash(rel)
}

// Contains reports whether p resolves strictly inside the root. Symlinks are
// followed when the path exists so a link pointing out of the root is not
// trusted.
func (rfs *RemFS) Contains(p string) bool {
	return within(rfs.root, rfs.Resolve(p))
}

// ContainsDir reports whether p resolves strictly inside the named top-level
// content directory (DataDir, ImagesDir or FilesDir).
func (rfs *RemFS) ContainsDir(dir, p string) bool {
	return within(rfs.Path(dir), rfs.Resolve(p))
}

func within(base, target string) bool {
	base = evalSymlinks(base)
	target = evalSymlinks(target)

	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	if caseInsensitiveFS() {
		rel2, err := filepath.Rel(strings.ToLower(base), strings.ToLower(target))
		if err == nil {
			rel = rel2
		}
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}

// evalSymlinks resolves the longest existing prefix of p.
func evalSymlinks(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	parent := filepath.Dir(p)
	if parent == p {
		return p
	}
	return filepath.Join(evalSymlinks(parent), filepath.Base(p))
}

func caseInsensitiveFS() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}
