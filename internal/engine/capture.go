package engine

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"

	"github.com/yiblet/clipd/internal/classify"
	"github.com/yiblet/clipd/internal/clip"
	"github.com/yiblet/clipd/internal/clipboard"
	"github.com/yiblet/clipd/internal/content"
	"github.com/yiblet/clipd/internal/event"
	"github.com/yiblet/clipd/internal/logger"
	"github.com/yiblet/clipd/internal/retention"
)

// HandleChange captures one clipboard change. Changes are processed one at a
// time; the gate is held from the dedup check until the catalog is saved.
func (e *Engine) HandleChange(ctx context.Context, snap clipboard.Snapshot) Outcome {
	e.mu.Lock()
	out, ev := e.capture(ctx, snap)
	e.mu.Unlock()

	if ev != nil {
		e.bus.Publish(ev)
	}
	return out
}

// capture picks the dominant format: files, then text, then bitmap, then
// markup. A file offer without any paths falls through to the next format.
func (e *Engine) capture(ctx context.Context, snap clipboard.Snapshot) (Outcome, event.Event) {
	if clipboard.Has(snap, clipboard.FormatFiles) {
		paths, err := snap.Files(ctx)
		if err != nil {
			e.log.Warn("failed to read file references", logger.Error(err))
			return OutcomeFailed, nil
		}
		if len(paths) > 0 {
			return e.captureFiles(ctx, paths)
		}
	}

	switch {
	case clipboard.Has(snap, clipboard.FormatText):
		text, err := snap.Text(ctx)
		if err != nil {
			e.log.Warn("failed to read text", logger.Error(err))
			return OutcomeFailed, nil
		}
		return e.captureText(ctx, text)
	case clipboard.Has(snap, clipboard.FormatImage):
		data, err := snap.Image(ctx)
		if err != nil {
			e.log.Warn("failed to read image", logger.Error(err))
			return OutcomeFailed, nil
		}
		return e.captureImage(ctx, data)
	case clipboard.Has(snap, clipboard.FormatHTML):
		html, err := snap.HTML(ctx)
		if err != nil {
			e.log.Warn("failed to read html", logger.Error(err))
			return OutcomeFailed, nil
		}
		return e.captureHTML(ctx, html)
	}
	return OutcomeEmpty, nil
}

func (e *Engine) captureFiles(ctx context.Context, paths []string) (Outcome, event.Event) {
	for _, p := range paths {
		if e.isOwnFile(p) {
			e.log.Debug("ignoring own file", logger.String("path", p))
			return OutcomeIgnored, nil
		}
	}

	var used int64
	for _, p := range paths {
		total, exceeded, err := retention.PathSize(p, used, e.maxSize)
		if err != nil {
			continue
		}
		if exceeded {
			e.log.Warn("file capture exceeds the size ceiling",
				logger.String("path", p),
				logger.String("limit", humanize.IBytes(uint64(e.maxSize))))
			return OutcomeOversized, nil
		}
		used = total
	}

	key := content.ReferencePreview(paths)
	if key == "" {
		return OutcomeEmpty, nil
	}
	if e.hasFileKey(key) {
		return OutcomeDuplicate, nil
	}

	id := e.takeID()
	manifest, preview, err := e.content.SaveFileReferences(id, paths)
	if errors.Is(err, content.ErrNothingCopied) {
		return OutcomeEmpty, nil
	}
	if err != nil {
		e.log.Warn("failed to store file references", logger.Int64("id", id), logger.Error(err))
		return OutcomeFailed, nil
	}

	out, ev := e.commit(ctx, id, clip.File, manifest, preview)
	if out == OutcomeAccepted && key != preview {
		e.sourceKeys[id] = key
	}
	return out, ev
}

// isOwnFile reports whether a file reference points into the storage root.
// Relative references come from other programs and are taken relative to the
// working directory, like every other file access here.
func (e *Engine) isOwnFile(p string) bool {
	abs, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	return e.fs.Contains(abs)
}

// hasFileKey reports whether a File record was made from the same selection.
// A record whose copy was partial is matched by the key it was captured
// under, not by its preview.
func (e *Engine) hasFileKey(key string) bool {
	for _, r := range e.records {
		if r.Kind != clip.File {
			continue
		}
		if k, ok := e.sourceKeys[r.ID]; ok {
			if k == key {
				return true
			}
			continue
		}
		if r.PreviewText == key {
			return true
		}
	}
	return false
}

func (e *Engine) captureText(ctx context.Context, text string) (Outcome, event.Event) {
	if strings.TrimSpace(text) == "" {
		return OutcomeEmpty, nil
	}
	if int64(len(text)) > e.maxSize {
		e.log.Warn("text exceeds the size ceiling",
			logger.String("size", humanize.IBytes(uint64(len(text)))))
		return OutcomeOversized, nil
	}
	if text == e.lastText {
		return OutcomeDuplicate, nil
	}

	preview := clip.Preview(text)
	if e.hasPreview(preview, clip.Kind.IsTextual) {
		e.lastText = text
		return OutcomeDuplicate, nil
	}

	kind := classify.Classify(text, classify.HintText)
	id := e.takeID()
	p, err := e.content.SaveText(id, text)
	if err != nil {
		e.log.Warn("failed to store text", logger.Int64("id", id), logger.Error(err))
		return OutcomeFailed, nil
	}

	out, ev := e.commit(ctx, id, kind, p, preview)
	if out == OutcomeAccepted {
		e.lastText = text
	}
	return out, ev
}

// captureImage treats an image as a repeat when a live Image record holds
// the same content hash. Records without a known hash, such as those loaded
// from the index, match by label within ImageRepeatWindow instead.
func (e *Engine) captureImage(ctx context.Context, data []byte) (Outcome, event.Event) {
	if len(data) == 0 {
		return OutcomeEmpty, nil
	}
	if int64(len(data)) > e.maxSize {
		e.log.Warn("image exceeds the size ceiling",
			logger.String("size", humanize.IBytes(uint64(len(data)))))
		return OutcomeOversized, nil
	}

	now := e.now()
	label := clip.ImageLabel(now)
	hash := strconv.FormatUint(xxhash.Sum64(data), 16)
	if e.hasImage(hash, label, now) {
		return OutcomeDuplicate, nil
	}

	id := e.takeID()
	p, err := e.content.SaveImage(id, data)
	switch {
	case errors.Is(err, content.ErrTooSmall):
		return OutcomeEmpty, nil
	case errors.Is(err, content.ErrTooLarge):
		return OutcomeOversized, nil
	case err != nil:
		e.log.Warn("failed to store image", logger.Int64("id", id), logger.Error(err))
		return OutcomeFailed, nil
	}

	out, ev := e.commitAt(ctx, id, clip.Image, p, label, now)
	if out == OutcomeAccepted {
		e.sourceKeys[id] = hash
	}
	return out, ev
}

func (e *Engine) hasImage(hash, label string, now time.Time) bool {
	for _, r := range e.records {
		if r.Kind != clip.Image {
			continue
		}
		if h, ok := e.sourceKeys[r.ID]; ok {
			if h == hash {
				return true
			}
			continue
		}
		if r.PreviewText == label && now.Sub(r.Timestamp) < ImageRepeatWindow {
			return true
		}
	}
	return false
}

func (e *Engine) captureHTML(ctx context.Context, html string) (Outcome, event.Event) {
	if strings.TrimSpace(html) == "" {
		return OutcomeEmpty, nil
	}
	if int64(len(html)) > e.maxSize {
		return OutcomeOversized, nil
	}

	preview := clip.Preview(html)
	if e.hasPreview(preview, func(clip.Kind) bool { return true }) {
		return OutcomeDuplicate, nil
	}

	id := e.takeID()
	p, err := e.content.SaveText(id, html)
	if err != nil {
		e.log.Warn("failed to store html", logger.Int64("id", id), logger.Error(err))
		return OutcomeFailed, nil
	}
	return e.commit(ctx, id, clip.Html, p, preview)
}

func (e *Engine) commit(ctx context.Context, id int64, kind clip.Kind, p, preview string) (Outcome, event.Event) {
	return e.commitAt(ctx, id, kind, p, preview, e.now())
}

// commitAt prepends the record and saves the catalog. On a failed save the
// record is rolled back and the fresh artifact removed.
func (e *Engine) commitAt(ctx context.Context, id int64, kind clip.Kind, p, preview string, ts time.Time) (Outcome, event.Event) {
	rec := clip.Record{
		ID:          id,
		Timestamp:   ts,
		Kind:        kind,
		ContentPath: p,
		PreviewText: preview,
	}

	e.records = append([]clip.Record{rec}, e.records...)
	if err := e.index.Save(ctx, e.records); err != nil {
		e.records = e.records[1:]
		if derr := e.content.Delete(p, kind); derr != nil {
			e.log.Debug("failed to remove orphaned content", logger.Int64("id", id), logger.Error(derr))
		}
		e.log.Error("failed to save index", logger.Int64("id", id), logger.Error(err))
		return OutcomeFailed, nil
	}

	item := rec.ToItem()
	e.items = append([]clip.Item{item}, e.items...)

	e.log.Debug("captured",
		logger.Int64("id", id),
		logger.String("kind", kind.String()))
	return OutcomeAccepted, event.NewItemAdded(item)
}

// takeID reserves the next id. Ids of abandoned captures are not reused.
func (e *Engine) takeID() int64 {
	id := e.nextID
	e.nextID++
	return id
}

func (e *Engine) hasPreview(preview string, kinds func(clip.Kind) bool) bool {
	for _, r := range e.records {
		if kinds(r.Kind) && r.PreviewText == preview {
			return true
		}
	}
	return false
}
