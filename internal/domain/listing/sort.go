package listing

import (
	"slices"
	"time"

	"github.com/travy/admin-hub/internal/domain/directory"
)

// Sort returns a new slice ordered by field in the given order. The sort is
// stable: records with equal keys keep their input order in both directions.
// A field the record kind does not support falls back to name.
func Sort[T directory.Record](records []T, field directory.SortField, order SortOrder, now time.Time) []T {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b T) int {
		c := sortKey(a, field, now).Compare(sortKey(b, field, now))
		if order == Desc {
			return -c
		}
		return c
	})
	return out
}

func sortKey(r directory.Record, field directory.SortField, now time.Time) directory.SortKey {
	if key, ok := r.SortKey(field, now); ok {
		return key
	}
	key, _ := r.SortKey(directory.SortByName, now)
	return key
}
