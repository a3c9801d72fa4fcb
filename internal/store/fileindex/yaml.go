// Package fileindex stores the history catalog as a single YAML document
// next to the content directories.
package fileindex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yiblet/clipd/internal/clip"
	"github.com/yiblet/clipd/internal/logger"
	"github.com/yiblet/clipd/internal/remfs"
	"github.com/yiblet/clipd/internal/store"
)

const formatVersion = 1

// document is the on-disk layout. Items are kept as raw nodes so a single
// malformed record does not take the rest of the catalog with it.
type document struct {
	Version int         `yaml:"version"`
	Items   []yaml.Node `yaml:"items"`
}

type entry struct {
	ID          int64     `yaml:"id"`
	Timestamp   time.Time `yaml:"timestamp"`
	Type        string    `yaml:"type"`
	ContentPath string    `yaml:"content_path"`
	PreviewText string    `yaml:"preview_text"`
	IsFavorite  bool      `yaml:"is_favorite"`
}

type outDocument struct {
	Version int     `yaml:"version"`
	Items   []entry `yaml:"items"`
}

// YAMLIndex is a store.Index backed by one YAML file.
type YAMLIndex struct {
	path string
	log  logger.Logger
	now  func() time.Time
}

var _ store.Index = (*YAMLIndex)(nil)

// New returns an index at the default location below rfs.
func New(rfs *remfs.RemFS, log logger.Logger) *YAMLIndex {
	return NewAt(rfs.Path(remfs.IndexYAML), log)
}

// NewAt returns an index stored at path.
func NewAt(path string, log logger.Logger) *YAMLIndex {
	if log == nil {
		log = logger.NewNop()
	}
	return &YAMLIndex{
		path: path,
		log:  log,
		now:  time.Now,
	}
}

// Path returns the catalog file location.
func (x *YAMLIndex) Path() string {
	return x.path
}

// Load reads the catalog. Unparseable documents are moved aside to
// <name>.backup_<yyyymmddhhmmss> and an empty catalog is returned.
func (x *YAMLIndex) Load(ctx context.Context) ([]clip.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(x.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []clip.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []clip.Record{}, nil
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		backup, berr := x.backup(data)
		if berr != nil {
			x.log.Error("index is corrupt and could not be backed up",
				logger.String("path", x.path),
				logger.Error(err),
				logger.String("backup_error", berr.Error()))
		} else {
			x.log.Warn("index is corrupt, starting empty",
				logger.String("path", x.path),
				logger.String("backup", backup),
				logger.Error(err))
		}
		return []clip.Record{}, nil
	}

	records := make([]clip.Record, 0, len(doc.Items))
	for i := range doc.Items {
		r, err := decodeEntry(&doc.Items[i])
		if err != nil {
			x.log.Debug("dropping malformed record",
				logger.Int("line", doc.Items[i].Line),
				logger.Error(err))
			continue
		}
		records = append(records, r)
	}

	records = store.Filter(records)
	store.SortNewestFirst(records)
	return records, nil
}

// Save atomically replaces the catalog with records.
func (x *YAMLIndex) Save(ctx context.Context, records []clip.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := outDocument{
		Version: formatVersion,
		Items:   make([]entry, 0, len(records)),
	}
	for _, r := range records {
		doc.Items = append(doc.Items, entry{
			ID:          r.ID,
			Timestamp:   r.Timestamp,
			Type:        r.Kind.String(),
			ContentPath: r.ContentPath,
			PreviewText: r.PreviewText,
			IsFavorite:  r.IsFavorite,
		})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	if err := remfs.WriteFileAtomic(x.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// Close is a no-op; the file is only open during Load and Save.
func (x *YAMLIndex) Close() error {
	return nil
}

func decodeEntry(node *yaml.Node) (clip.Record, error) {
	var e entry
	if err := node.Decode(&e); err != nil {
		return clip.Record{}, err
	}
	kind, err := clip.ParseKind(e.Type)
	if err != nil {
		return clip.Record{}, err
	}
	return clip.Record{
		ID:          e.ID,
		Timestamp:   e.Timestamp,
		Kind:        kind,
		ContentPath: e.ContentPath,
		PreviewText: e.PreviewText,
		IsFavorite:  e.IsFavorite,
	}, nil
}

// backup moves the unreadable catalog aside, falling back to a byte copy when
// the rename fails.
func (x *YAMLIndex) backup(data []byte) (string, error) {
	base := x.path + ".backup_" + x.now().Format("20060102150405")
	name := base
	for n := 1; ; n++ {
		if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
			break
		}
		name = fmt.Sprintf("%s_%d", base, n)
	}

	if err := os.Rename(x.path, name); err == nil {
		return name, nil
	}
	if err := os.WriteFile(name, data, 0644); err != nil {
		return "", err
	}
	return name, nil
}
