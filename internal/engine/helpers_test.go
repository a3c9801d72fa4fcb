package engine

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yiblet/clipd/internal/clip"
	"github.com/yiblet/clipd/internal/content"
	"github.com/yiblet/clipd/internal/event"
	"github.com/yiblet/clipd/internal/logger"
	"github.com/yiblet/clipd/internal/remfs"
	"github.com/yiblet/clipd/internal/store/memstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingStore wraps the real content store and counts reads.
type countingStore struct {
	*content.Store
	reads atomic.Int32
}

func (s *countingStore) Read(p string, kind clip.Kind) (string, error) {
	s.reads.Add(1)
	return s.Store.Read(p, kind)
}

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) handle(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

type fixture struct {
	t       *testing.T
	fs      *remfs.RemFS
	content *countingStore
	index   *memstore.MemoryIndex
	clock   *fakeClock
	events  *recorder
	engine  *Engine
}

var epoch = time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local)

func newFixture(t *testing.T, records ...clip.Record) *fixture {
	t.Helper()
	return newFixtureWith(t, memstore.NewMemoryIndex(records...), 0)
}

func newFixtureWith(t *testing.T, idx *memstore.MemoryIndex, hydrate int) *fixture {
	t.Helper()

	rfs, err := remfs.NewWithRoot(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)

	f := &fixture{
		t:       t,
		fs:      rfs,
		content: &countingStore{Store: content.New(rfs, 0, logger.NewNop())},
		index:   idx,
		clock:   &fakeClock{now: epoch},
		events:  &recorder{},
	}

	bus := event.NewBus(logger.NewNop())
	bus.SubscribeAll(f.events.handle)

	f.engine, err = Open(context.Background(), Options{
		FS:           rfs,
		Content:      f.content,
		Index:        idx,
		Bus:          bus,
		Log:          logger.NewNop(),
		HydrateLimit: hydrate,
		Now:          f.clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { f.engine.Wait() })
	return f
}

func textRecord(id int64, ts time.Time, preview string, fav bool) clip.Record {
	return clip.Record{
		ID:          id,
		Timestamp:   ts,
		Kind:        clip.Text,
		ContentPath: "data/" + strconv.FormatInt(id, 10) + ".txt",
		PreviewText: preview,
		IsFavorite:  fav,
	}
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func ids(items []clip.Item) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
