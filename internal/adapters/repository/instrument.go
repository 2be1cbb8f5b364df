package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/pkg/metrics"
)

// instrumented decorates a Collection with per-operation latency and error
// metrics. ErrNotFound is a normal outcome and is not counted as a failure.
type instrumented[T model.Record] struct {
	next Collection[T]
	name string
}

// Instrument wraps c so every call is observed under kind.
func Instrument[T model.Record](c Collection[T], kind model.Kind) Collection[T] {
	return &instrumented[T]{next: c, name: string(kind)}
}

func (c *instrumented[T]) observe(op string, start time.Time, err error) {
	failed := err != nil && !errors.Is(err, ErrNotFound)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordRepositoryOperation(c.name, op, latencyMs, failed)
}

func (c *instrumented[T]) List(ctx context.Context, q Query) ([]T, int, error) {
	start := time.Now()
	recs, total, err := c.next.List(ctx, q)
	c.observe("list", start, err)
	return recs, total, err
}

func (c *instrumented[T]) Get(ctx context.Context, id string) (T, error) {
	start := time.Now()
	rec, err := c.next.Get(ctx, id)
	c.observe("get", start, err)
	return rec, err
}

func (c *instrumented[T]) Upsert(ctx context.Context, rec T) error {
	start := time.Now()
	err := c.next.Upsert(ctx, rec)
	c.observe("upsert", start, err)
	return err
}

func (c *instrumented[T]) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := c.next.Delete(ctx, id)
	c.observe("delete", start, err)
	return err
}

func (c *instrumented[T]) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := c.next.Count(ctx)
	c.observe("count", start, err)
	if err == nil {
		metrics.UpdateRecordsTotal(c.name, n)
	}
	return n, err
}
