package repository

import (
	"context"
	"sync"

	"github.com/okian/hrdesk/internal/domain/model"
)

// MemoryCollection is an in-process Collection guarded by a RWMutex.
type MemoryCollection[T model.Record] struct {
	mu      sync.RWMutex
	records map[string]T
}

// NewMemoryCollection creates an empty in-memory collection.
func NewMemoryCollection[T model.Record]() *MemoryCollection[T] {
	return &MemoryCollection[T]{records: make(map[string]T)}
}

// List implements Collection.
func (c *MemoryCollection[T]) List(_ context.Context, q Query) ([]T, int, error) {
	c.mu.RLock()
	all := make([]T, 0, len(c.records))
	for _, rec := range c.records {
		all = append(all, rec)
	}
	c.mu.RUnlock()

	sortByID(all)
	page, total := applyQuery(all, q)
	return page, total, nil
}

// Get implements Collection.
func (c *MemoryCollection[T]) Get(_ context.Context, id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.records[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return rec, nil
}

// Upsert implements Collection.
func (c *MemoryCollection[T]) Upsert(_ context.Context, rec T) error {
	id := rec.RecordID()
	if id == "" {
		return ErrMissingID
	}
	c.mu.Lock()
	c.records[id] = rec
	c.mu.Unlock()
	return nil
}

// Delete implements Collection.
func (c *MemoryCollection[T]) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[id]; !ok {
		return ErrNotFound
	}
	delete(c.records, id)
	return nil
}

// Count implements Collection.
func (c *MemoryCollection[T]) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records), nil
}
