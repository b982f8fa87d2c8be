package listing

import (
	"time"

	"github.com/travy/admin-hub/internal/domain/directory"
)

// Result is one full pass of the pipeline over a store.
type Result[T directory.Record] struct {
	// Filtered is the filtered sequence in store order, before sorting.
	Filtered []T
	// Sorted is Filtered ordered by the query's sort field.
	Sorted []T
	// Page is the requested page of Sorted.
	Page Page[T]
}

// Run filters, sorts and paginates store. The page is taken as given.
func Run[T directory.Record](store []T, q Query, page int, now time.Time) Result[T] {
	filtered := Filter(store, q, now)
	sorted := Sort(filtered, q.SortBy, q.Order, now)
	return Result[T]{
		Filtered: filtered,
		Sorted:   sorted,
		Page:     Paginate(sorted, page),
	}
}
