// Package memstore provides an in-memory implementation of store.Index.
// It is designed for fast unit testing and does not persist data.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/yiblet/clipd/internal/clip"
	"github.com/yiblet/clipd/internal/store"
)

// MemoryIndex keeps the last saved catalog in memory. It is thread-safe via
// a mutex and can be told to fail, which the engine tests use to exercise
// persistence errors.
type MemoryIndex struct {
	mu      sync.RWMutex
	records []clip.Record
	saves   int
	loadErr error
	saveErr error
	closed  bool
}

var _ store.Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an index pre-populated with records.
func NewMemoryIndex(records ...clip.Record) *MemoryIndex {
	return &MemoryIndex{records: slices.Clone(records)}
}

// Load returns a copy of the stored records, filtered and newest first.
func (m *MemoryIndex) Load(ctx context.Context) ([]clip.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.loadErr != nil {
		return nil, m.loadErr
	}

	out := store.Filter(m.records)
	store.SortNewestFirst(out)
	return out, nil
}

// Save replaces the stored records with a copy of records.
func (m *MemoryIndex) Save(ctx context.Context, records []clip.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = slices.Clone(records)
	m.saves++
	return nil
}

// Close marks the index closed (no resources to release).
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Records returns a copy of what was last saved, unfiltered and in saved order.
func (m *MemoryIndex) Records() []clip.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.records)
}

// Saves returns how many Save calls succeeded.
func (m *MemoryIndex) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Closed reports whether Close was called.
func (m *MemoryIndex) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// FailLoad makes subsequent Load calls return err. Pass nil to clear.
func (m *MemoryIndex) FailLoad(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// FailSave makes subsequent Save calls return err. Pass nil to clear.
func (m *MemoryIndex) FailSave(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}
