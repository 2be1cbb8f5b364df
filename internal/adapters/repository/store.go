// Package repository provides the record collections behind the HR API.
package repository

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/okian/hrdesk/internal/domain/model"
)

// Query narrows and pages a List call.
type Query struct {
	// Search keeps records whose SearchText contains it, ignoring case.
	Search string
	// IDs keeps only the listed ids when non-empty.
	IDs []string
	// Offset skips that many matching records.
	Offset int
	// Limit caps the page size; <= 0 means no cap.
	Limit int
}

// Collection provides read/write access to one kind of record.
type Collection[T model.Record] interface {
	// List returns the page selected by q ordered by id, plus the number of
	// records matching q before paging.
	List(ctx context.Context, q Query) ([]T, int, error)

	// Get returns the record with id or ErrNotFound.
	Get(ctx context.Context, id string) (T, error)

	// Upsert creates or replaces the record keyed by rec.RecordID().
	Upsert(ctx context.Context, rec T) error

	// Delete removes the record with id or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}

var folder = cases.Fold()

// matches reports whether rec satisfies the non-paging parts of q.
func matches[T model.Record](rec T, q Query, needle string) bool {
	if len(q.IDs) > 0 && !slices.Contains(q.IDs, rec.RecordID()) {
		return false
	}
	if needle == "" {
		return true
	}
	return strings.Contains(folder.String(rec.SearchText()), needle)
}

// applyQuery filters id-ordered records by q and returns the requested page
// together with the total match count.
func applyQuery[T model.Record](records []T, q Query) ([]T, int) {
	needle := folder.String(strings.TrimSpace(q.Search))
	filtered := make([]T, 0, len(records))
	for _, rec := range records {
		if matches(rec, q, needle) {
			filtered = append(filtered, rec)
		}
	}
	total := len(filtered)

	start := min(max(q.Offset, 0), total)
	end := total
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	return filtered[start:end], total
}

func sortByID[T model.Record](records []T) {
	slices.SortFunc(records, func(a, b T) int {
		return strings.Compare(a.RecordID(), b.RecordID())
	})
}
