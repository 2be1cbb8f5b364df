package repository_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/hrdesk/internal/adapters/repository"
	"github.com/okian/hrdesk/internal/domain/model"
)

// runCollectionContract exercises the behavior every Collection driver must
// share. c must start empty.
func runCollectionContract(t *testing.T, c repository.Collection[model.Employee]) {
	t.Helper()
	ctx := context.Background()

	n, err := c.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	for i := 5; i >= 1; i-- {
		require.NoError(t, c.Upsert(ctx, model.Employee{
			ID:     fmt.Sprintf("emp-%d", i),
			Name:   fmt.Sprintf("Employee %d", i),
			Email:  fmt.Sprintf("e%d@example.com", i),
			Status: "active",
		}))
	}
	require.NoError(t, c.Upsert(ctx, model.Employee{ID: "emp-3", Name: "Ümit Yılmaz", Email: "umit@example.com"}))

	t.Run("count", func(t *testing.T) {
		n, err := c.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})

	t.Run("get replaced record", func(t *testing.T) {
		got, err := c.Get(ctx, "emp-3")
		require.NoError(t, err)
		assert.Equal(t, "Ümit Yılmaz", got.Name)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := c.Get(ctx, "nope")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("list ordered by id with paging", func(t *testing.T) {
		page, total, err := c.List(ctx, repository.Query{Offset: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, page, 2)
		assert.Equal(t, "emp-2", page[0].ID)
		assert.Equal(t, "emp-3", page[1].ID)
	})

	t.Run("list offset past the end", func(t *testing.T) {
		page, total, err := c.List(ctx, repository.Query{Offset: 50})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Empty(t, page)
	})

	t.Run("list search folds case", func(t *testing.T) {
		page, total, err := c.List(ctx, repository.Query{Search: "ümit"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, page, 1)
		assert.Equal(t, "emp-3", page[0].ID)
	})

	t.Run("list by ids", func(t *testing.T) {
		page, total, err := c.List(ctx, repository.Query{IDs: []string{"emp-4", "emp-1", "missing"}})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, page, 2)
		assert.Equal(t, "emp-1", page[0].ID)
		assert.Equal(t, "emp-4", page[1].ID)
	})

	t.Run("upsert without id", func(t *testing.T) {
		assert.ErrorIs(t, c.Upsert(ctx, model.Employee{Name: "nobody"}), repository.ErrMissingID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Delete(ctx, "emp-5"))
		assert.ErrorIs(t, c.Delete(ctx, "emp-5"), repository.ErrNotFound)
		_, err := c.Get(ctx, "emp-5")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("list orders ids bytewise", func(t *testing.T) {
		for _, id := range []string{"a-1", "Zed-1", "_x-1"} {
			require.NoError(t, c.Upsert(ctx, model.Employee{ID: id, Name: id, Email: id + "@example.com"}))
		}
		page, _, err := c.List(ctx, repository.Query{IDs: []string{"a-1", "_x-1", "Zed-1"}})
		require.NoError(t, err)
		ids := make([]string, 0, len(page))
		for _, e := range page {
			ids = append(ids, e.ID)
		}
		assert.Equal(t, []string{"Zed-1", "_x-1", "a-1"}, ids)
	})
}
