package listing

import (
	"time"

	"github.com/travy/admin-hub/internal/domain/directory"
)

// Filter returns the records of store matching every part of q, in store order.
// A query with empty search and every selection "all" returns store unchanged.
func Filter[T directory.Record](store []T, q Query, now time.Time) []T {
	active := activeSelections(q)
	if q.Search == "" && len(active) == 0 {
		return store
	}

	out := make([]T, 0, len(store))
	for _, r := range store {
		if matches(r, q.Search, active, now) {
			out = append(out, r)
		}
	}
	return out
}

type selection struct {
	dim   directory.Dimension
	value string
}

// activeSelections returns the non-"all" selections in a fixed order.
func activeSelections(q Query) []selection {
	var out []selection
	for _, dim := range []directory.Dimension{
		directory.DimensionStatus,
		directory.DimensionPerformance,
		directory.DimensionDateRange,
	} {
		value, ok := q.Selections()[dim]
		if !ok || value == "" || value == directory.All {
			continue
		}
		out = append(out, selection{dim: dim, value: value})
	}
	return out
}

func matches(r directory.Record, search string, active []selection, now time.Time) bool {
	if !directory.MatchesSearch(r, search) {
		return false
	}
	for _, s := range active {
		if !r.Matches(s.dim, s.value, now) {
			return false
		}
	}
	return true
}
