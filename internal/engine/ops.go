package engine

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/yiblet/clipd/internal/clip"
	"github.com/yiblet/clipd/internal/event"
	"github.com/yiblet/clipd/internal/logger"
	"github.com/yiblet/clipd/internal/retention"
)

// LoadContent materializes the payload of id. The store is read outside the
// gate; the result is cached on the working-set item so later calls do not
// touch the disk. A missing or unreadable artifact yields "" and is not
// cached. The bool is false for an unknown id.
func (e *Engine) LoadContent(ctx context.Context, id int64) (string, bool) {
	e.mu.Lock()
	if i := e.itemIndex(id); i >= 0 && e.items[i].Content.IsLoaded() {
		payload := e.items[i].Content.Payload()
		e.mu.Unlock()
		return payload, true
	}
	ri := e.recordIndex(id)
	if ri < 0 {
		e.mu.Unlock()
		return "", false
	}
	rec := e.records[ri]
	e.mu.Unlock()

	payload, err := e.content.Read(rec.ContentPath, rec.Kind)
	if err != nil {
		e.log.Warn("content unavailable", logger.Int64("id", id), logger.Error(err))
		return "", true
	}

	e.mu.Lock()
	if i := e.itemIndex(id); i >= 0 && !e.items[i].Content.IsLoaded() {
		e.items[i].Content = clip.Loaded(payload)
	}
	e.mu.Unlock()
	return payload, true
}

// ToggleFavorite flips the favorite flag of id and returns the new value.
// The catalog is saved in the background.
func (e *Engine) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	e.mu.Lock()
	ri := e.recordIndex(id)
	if ri < 0 {
		e.mu.Unlock()
		return false, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	fav := !e.records[ri].IsFavorite
	e.records[ri].IsFavorite = fav
	item := e.records[ri].ToItem()
	if i := e.itemIndex(id); i >= 0 {
		e.items[i].Favorite = fav
		item = e.items[i]
	}
	e.mu.Unlock()

	e.saveInBackground(context.WithoutCancel(ctx), id)
	e.bus.Publish(event.NewItemUpdated(item))
	return fav, nil
}

// saveInBackground persists the catalog as it stands when the gate is next
// acquired.
func (e *Engine) saveInBackground(ctx context.Context, id int64) {
	e.saves.Add(1)
	go func() {
		defer e.saves.Done()
		e.mu.Lock()
		defer e.mu.Unlock()
		if err := e.index.Save(ctx, e.records); err != nil {
			e.log.Error("failed to save index", logger.Int64("id", id), logger.Error(err))
		}
	}()
}

// Remove deletes id from the catalog and the working set, waits for the
// catalog save, then deletes the artifact. A failed save leaves everything
// as it was.
func (e *Engine) Remove(ctx context.Context, id int64) error {
	e.mu.Lock()
	ri := e.recordIndex(id)
	if ri < 0 {
		e.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	rec := e.records[ri]
	kept := slices.Delete(slices.Clone(e.records), ri, ri+1)
	if err := e.index.Save(ctx, kept); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("failed to save index: %w", err)
	}
	e.records = kept
	delete(e.sourceKeys, id)
	if i := e.itemIndex(id); i >= 0 {
		e.items = slices.Delete(e.items, i, i+1)
	}

	if err := e.content.Delete(rec.ContentPath, rec.Kind); err != nil {
		e.log.Warn("failed to delete content", logger.Int64("id", id), logger.Error(err))
	}
	e.mu.Unlock()

	e.bus.Publish(event.NewItemRemoved(id, false))
	return nil
}

// ClearAll empties the history, favorites included. Ids keep increasing
// afterwards. Artifact deletion failures are returned together once the
// catalog is already empty.
func (e *Engine) ClearAll(ctx context.Context) error {
	e.mu.Lock()
	if err := e.index.Save(ctx, []clip.Record{}); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("failed to save index: %w", err)
	}

	old := e.records
	e.records = []clip.Record{}
	e.items = []clip.Item{}
	e.lastText = ""
	clear(e.sourceKeys)

	var errs error
	for _, r := range old {
		if err := e.content.Delete(r.ContentPath, r.Kind); err != nil {
			e.log.Warn("failed to delete content", logger.Int64("id", r.ID), logger.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("item %d: %w", r.ID, err))
		}
	}
	e.mu.Unlock()

	e.bus.Publish(event.NewHistoryCleared(len(old)))
	return errs
}

// Sweep applies the retention policy at now and returns how many records
// were removed. Artifact failures are logged and returned together; they do
// not keep records in the catalog.
func (e *Engine) Sweep(ctx context.Context, now time.Time) (int, error) {
	e.mu.Lock()
	removed, err := e.sweepLocked(ctx, now)
	e.mu.Unlock()

	events := make([]event.Event, 0, len(removed))
	for _, r := range removed {
		events = append(events, event.NewItemRemoved(r.ID, true))
	}
	e.publish(events)
	return len(removed), err
}

func (e *Engine) sweepLocked(ctx context.Context, now time.Time) ([]clip.Record, error) {
	kept, removed := retention.Sweep(e.records, now, e.window)
	if len(removed) == 0 {
		return nil, nil
	}

	if err := e.index.Save(ctx, kept); err != nil {
		return nil, fmt.Errorf("failed to save index: %w", err)
	}
	e.records = kept

	gone := make(map[int64]bool, len(removed))
	var errs error
	for _, r := range removed {
		gone[r.ID] = true
		delete(e.sourceKeys, r.ID)
		if err := e.content.Delete(r.ContentPath, r.Kind); err != nil {
			e.log.Warn("failed to delete expired content", logger.Int64("id", r.ID), logger.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("item %d: %w", r.ID, err))
		}
	}
	e.items = slices.DeleteFunc(e.items, func(it clip.Item) bool { return gone[it.ID] })
	return removed, errs
}

// Search yields working-set items whose preview, loaded content or kind name
// contains query, ignoring case. An empty query matches everything. Each
// range re-scans the current working set.
func (e *Engine) Search(query string) iter.Seq[clip.Item] {
	q := strings.ToLower(query)
	return func(yield func(clip.Item) bool) {
		for _, it := range e.Items() {
			if q != "" && !matches(it, q) {
				continue
			}
			if !yield(it) {
				return
			}
		}
	}
}

func matches(it clip.Item, q string) bool {
	if strings.Contains(strings.ToLower(it.Preview), q) {
		return true
	}
	if it.Content.IsLoaded() && strings.Contains(strings.ToLower(it.Content.Payload()), q) {
		return true
	}
	return strings.Contains(strings.ToLower(it.Kind.String()), q)
}
