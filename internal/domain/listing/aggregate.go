package listing

import (
	"slices"
	"time"

	"github.com/travy/admin-hub/internal/domain/directory"
)

// TopPerformersShown is how many top performers the influencers view renders.
const TopPerformersShown = 3

// Referrer is a record carrying a referral count.
type Referrer interface {
	directory.Record
	ReferralCount() int
}

// FilterOptionCount counts the records of the whole store whose bucket for dim
// equals value. "all" counts the whole store. The active query is not involved.
func FilterOptionCount[T directory.Record](store []T, dim directory.Dimension, value string, now time.Time) int {
	if value == directory.All {
		return len(store)
	}
	n := 0
	for _, r := range store {
		if r.Matches(dim, value, now) {
			n++
		}
	}
	return n
}

// OptionCounts returns FilterOptionCount for every option of every dimension
// of kind, including "all".
func OptionCounts[T directory.Record](kind directory.Kind, store []T, now time.Time) map[directory.Dimension]map[string]int {
	out := make(map[directory.Dimension]map[string]int)
	for dim, values := range directory.Options(kind) {
		counts := map[string]int{directory.All: len(store)}
		for _, v := range values {
			counts[v] = FilterOptionCount(store, dim, v, now)
		}
		out[dim] = counts
	}
	return out
}

// TopPerformers returns the first n of filtered ordered by referral count
// descending. Equal counts keep their filtered order. The user's chosen sort
// does not affect it.
func TopPerformers[T Referrer](filtered []T, n int) []T {
	if n <= 0 {
		return []T{}
	}
	out := slices.Clone(filtered)
	slices.SortStableFunc(out, func(a, b T) int {
		return b.ReferralCount() - a.ReferralCount()
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
