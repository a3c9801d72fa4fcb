// Package engine is the clipboard capture engine. It owns the in-memory
// working set and the persisted catalog: every mutation of either happens
// under one gate, and observers learn about changes through the event bus.
package engine

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/yiblet/clipd/internal/clip"
	"github.com/yiblet/clipd/internal/event"
	"github.com/yiblet/clipd/internal/logger"
	"github.com/yiblet/clipd/internal/remfs"
	"github.com/yiblet/clipd/internal/retention"
	"github.com/yiblet/clipd/internal/store"
)

const (
	// DefaultHydrateLimit is how many of the newest records are materialized
	// into the working set at startup.
	DefaultHydrateLimit = 50

	// ImageRepeatWindow is how far back a same-label image counts as a repeat.
	ImageRepeatWindow = 5 * time.Second
)

// ErrNotFound is returned for operations on an id the catalog does not hold.
var ErrNotFound = errors.New("item not found")

// ContentStore persists payloads. *content.Store satisfies it.
type ContentStore interface {
	SaveText(id int64, text string) (string, error)
	SaveImage(id int64, raw []byte) (string, error)
	SaveFileReferences(id int64, paths []string) (string, string, error)
	Read(p string, kind clip.Kind) (string, error)
	Delete(p string, kind clip.Kind) error
}

// Options configures an Engine. FS, Content and Index are required.
type Options struct {
	FS      *remfs.RemFS
	Content ContentStore
	Index   store.Index
	Bus     *event.Bus
	Log     logger.Logger

	HydrateLimit   int
	Window         time.Duration
	MaxCaptureSize int64

	// SkipStartupSweep leaves expired records in place until Sweep is called.
	SkipStartupSweep bool

	// Now is the clock; tests replace it.
	Now func() time.Time
}

// Engine captures clipboard changes into the history.
type Engine struct {
	fs      *remfs.RemFS
	content ContentStore
	index   store.Index
	bus     *event.Bus
	log     logger.Logger

	window  time.Duration
	maxSize int64
	now     func() time.Time

	// mu is the gate around working set and catalog mutation, including the
	// index save that follows each mutation.
	mu       sync.Mutex
	records  []clip.Record
	items    []clip.Item
	nextID   int64
	lastText string
	// sourceKeys holds dedup keys derived from the source payload of records
	// accepted in this session: image content hashes and the names of a file
	// selection. Keys leave with their record.
	sourceKeys map[int64]string

	saves sync.WaitGroup
}

// Open loads the catalog, drops records pointing outside the storage root,
// applies the retention sweep and hydrates the working set. A catalog that
// cannot be loaded is logged and treated as empty.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	if opts.FS == nil || opts.Content == nil || opts.Index == nil {
		return nil, errors.New("engine: FS, Content and Index are required")
	}

	e := &Engine{
		fs:      opts.FS,
		content: opts.Content,
		index:   opts.Index,
		bus:     opts.Bus,
		log:     opts.Log,
		window:  opts.Window,
		maxSize: opts.MaxCaptureSize,
		now:     opts.Now,

		sourceKeys: make(map[int64]string),
	}
	if e.log == nil {
		e.log = logger.NewNop()
	}
	if e.bus == nil {
		e.bus = event.NewBus(e.log)
	}
	if e.window <= 0 {
		e.window = retention.DefaultWindow
	}
	if e.maxSize <= 0 || e.maxSize > retention.MaxCaptureSize {
		e.maxSize = retention.MaxCaptureSize
	}
	if e.now == nil {
		e.now = time.Now
	}
	limit := opts.HydrateLimit
	if limit <= 0 {
		limit = DefaultHydrateLimit
	}

	records, err := e.index.Load(ctx)
	if err != nil {
		e.log.Error("failed to load index, starting empty", logger.Error(err))
		records = nil
	}

	e.records = make([]clip.Record, 0, len(records))
	for _, r := range records {
		if !e.fs.Contains(r.ContentPath) {
			e.log.Warn("dropping record outside the storage root",
				logger.Int64("id", r.ID),
				logger.String("path", r.ContentPath))
			continue
		}
		e.records = append(e.records, r)
	}
	e.nextID = store.MaxID(e.records) + 1

	if !opts.SkipStartupSweep {
		removed, err := e.sweepLocked(ctx, e.now())
		if err != nil {
			e.log.Warn("startup sweep incomplete", logger.Error(err))
		}
		if len(removed) > 0 {
			e.log.Info("startup sweep removed expired items", logger.Int("count", len(removed)))
		}
	}

	n := min(limit, len(e.records))
	e.items = make([]clip.Item, 0, n)
	for _, r := range e.records[:n] {
		e.items = append(e.items, r.ToItem())
	}

	e.log.Debug("engine ready",
		logger.Int("records", len(e.records)),
		logger.Int("hydrated", len(e.items)),
		logger.Int64("next_id", e.nextID))
	return e, nil
}

// Bus returns the bus notifications are published on.
func (e *Engine) Bus() *event.Bus {
	return e.bus
}

// Items returns a copy of the working set, newest first.
func (e *Engine) Items() []clip.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.items)
}

// Records returns a copy of the catalog, newest first.
func (e *Engine) Records() []clip.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.records)
}

// Get returns the item with id. Records older than the hydrated working set
// are still found, as lazy items.
func (e *Engine) Get(id int64) (clip.Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i := e.itemIndex(id); i >= 0 {
		return e.items[i], true
	}
	if i := e.recordIndex(id); i >= 0 {
		return e.records[i].ToItem(), true
	}
	return clip.Item{}, false
}

// FavoritesCount returns the number of favorite records in the catalog.
func (e *Engine) FavoritesCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, r := range e.records {
		if r.IsFavorite {
			n++
		}
	}
	return n
}

// Wait blocks until background index saves have finished.
func (e *Engine) Wait() {
	e.saves.Wait()
}

// Close waits for background saves and closes the index.
func (e *Engine) Close() error {
	e.Wait()
	return e.index.Close()
}

func (e *Engine) itemIndex(id int64) int {
	return slices.IndexFunc(e.items, func(it clip.Item) bool { return it.ID == id })
}

func (e *Engine) recordIndex(id int64) int {
	return slices.IndexFunc(e.records, func(r clip.Record) bool { return r.ID == id })
}

func (e *Engine) publish(events []event.Event) {
	for _, ev := range events {
		e.bus.Publish(ev)
	}
}
