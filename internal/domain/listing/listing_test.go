package listing

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travy/admin-hub/internal/domain/directory"
	"github.com/travy/admin-hub/internal/domain/shared"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func at(days int) *time.Time {
	t := now.Add(-time.Duration(days) * 24 * time.Hour)
	return &t
}

func influencer(t *testing.T, id, name string, referrals int) *directory.Influencer {
	t.Helper()
	inf, err := directory.NewInfluencer(directory.InfluencerParams{
		ID:            id,
		Name:          name,
		Email:         fmt.Sprintf("%s@example.com", id),
		ReferralCount: referrals,
		TotalEarnings: decimal.NewFromInt(int64(referrals * 25)),
	})
	require.NoError(t, err)
	return inf
}

func user(t *testing.T, id, name string, status directory.UserStatus, created *time.Time) *directory.User {
	t.Helper()
	u, err := directory.NewUser(directory.UserParams{
		ID:        id,
		Name:      name,
		Email:     fmt.Sprintf("user%s@example.com", id),
		Status:    status,
		CreatedAt: created,
	})
	require.NoError(t, err)
	return u
}

func names[T directory.Record](records []T) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name())
	}
	return out
}

func annBobCid(t *testing.T) []*directory.Influencer {
	return []*directory.Influencer{
		influencer(t, "1", "Ann", 12),
		influencer(t, "2", "Bob", 3),
		influencer(t, "3", "Cid", 7),
	}
}

func TestFilter_Performance(t *testing.T) {
	store := annBobCid(t)

	q := DefaultQuery(directory.KindInfluencer)
	q.Performance = "top"
	assert.Equal(t, []string{"Ann"}, names(Filter(store, q, now)))

	q.Performance = "medium"
	assert.Equal(t, []string{"Cid"}, names(Filter(store, q, now)))

	q.Performance = "low"
	assert.Equal(t, []string{"Bob"}, names(Filter(store, q, now)))
}

func TestFilter_Search(t *testing.T) {
	store := annBobCid(t)

	q := DefaultQuery(directory.KindInfluencer)
	q.Search = "bo"
	assert.Equal(t, []string{"Bob"}, names(Filter(store, q, now)))

	q.Search = "BO"
	assert.Equal(t, []string{"Bob"}, names(Filter(store, q, now)))

	q.Search = "example.com"
	assert.Len(t, Filter(store, q, now), 3, "search also matches email")
}

func TestFilter_EmptyQueryReturnsStore(t *testing.T) {
	store := annBobCid(t)
	got := Filter(store, DefaultQuery(directory.KindInfluencer), now)
	assert.Equal(t, store, got)
}

func TestFilter_SubsetAndIdempotent(t *testing.T) {
	store := []*directory.User{
		user(t, "1", "Ann", directory.StatusActive, at(0)),
		user(t, "2", "Bob", directory.StatusBlocked, at(3)),
		user(t, "3", "Abe", directory.StatusActive, at(20)),
		user(t, "4", "Dan", "", at(100)),
		user(t, "5", "Ada", directory.StatusPending, nil),
	}

	queries := []Query{
		DefaultQuery(directory.KindUser),
		{Kind: directory.KindUser, Search: "a", Status: "active", DateRange: "all", SortBy: "name", Order: Asc},
		{Kind: directory.KindUser, Status: "all", DateRange: "week", SortBy: "name", Order: Asc},
		{Kind: directory.KindUser, Search: "d", Status: "all", DateRange: "quarter", SortBy: "date", Order: Desc},
	}

	for i, q := range queries {
		require.NoError(t, q.Validate(), "query %d", i)
		once := Filter(store, q, now)

		// order-preserving subset
		last := -1
		for _, r := range once {
			idx := directory.IndexOf(store, r.ID())
			require.GreaterOrEqual(t, idx, 0)
			assert.Greater(t, idx, last, "query %d keeps store order", i)
			last = idx
		}

		assert.Equal(t, once, Filter(once, q, now), "query %d is idempotent", i)
	}
}

func TestFilter_StatusDefaultsToActive(t *testing.T) {
	store := []*directory.User{
		user(t, "1", "Ann", "", nil),
		user(t, "2", "Bob", directory.StatusBlocked, nil),
	}
	q := DefaultQuery(directory.KindUser)
	q.Status = "active"
	assert.Equal(t, []string{"Ann"}, names(Filter(store, q, now)))
}

func TestSort_Fields(t *testing.T) {
	store := []*directory.Influencer{
		influencer(t, "1", "bob", 3),
		influencer(t, "2", "Ann", 12),
		influencer(t, "3", "Cid", 7),
	}

	byName := Sort(store, directory.SortByName, Asc, now)
	assert.Equal(t, []string{"Ann", "Cid", "bob"}, names(byName), "byte-wise, case-sensitive")

	byRefs := Sort(store, directory.SortByReferrals, Desc, now)
	assert.Equal(t, []string{"Ann", "Cid", "bob"}, names(byRefs))

	byEarnings := Sort(store, directory.SortByEarnings, Asc, now)
	assert.Equal(t, []string{"bob", "Cid", "Ann"}, names(byEarnings))

	// input untouched
	assert.Equal(t, []string{"bob", "Ann", "Cid"}, names(store))
}

func TestSort_DescReversesAsc(t *testing.T) {
	store := []*directory.User{
		user(t, "1", "Cid", directory.StatusActive, at(5)),
		user(t, "2", "Ann", directory.StatusBlocked, at(1)),
		user(t, "3", "Bob", directory.StatusPending, at(30)),
	}

	for _, field := range []directory.SortField{directory.SortByName, directory.SortByEmail, directory.SortByStatus, directory.SortByDate} {
		asc := Sort(store, field, Asc, now)
		desc := Sort(asc, field, Desc, now)
		for i := range asc {
			assert.Equal(t, asc[i].ID(), desc[len(desc)-1-i].ID(), "field %s", field)
		}
	}
}

func TestSort_StableTies(t *testing.T) {
	store := []*directory.Influencer{
		influencer(t, "1", "Ann", 5),
		influencer(t, "2", "Bob", 5),
		influencer(t, "3", "Cid", 1),
	}

	asc := Sort(store, directory.SortByReferrals, Asc, now)
	assert.Equal(t, []string{"Cid", "Ann", "Bob"}, names(asc))

	desc := Sort(store, directory.SortByReferrals, Desc, now)
	assert.Equal(t, []string{"Ann", "Bob", "Cid"}, names(desc), "ties keep store order")
}

func TestSort_MissingDateSortsAsNow(t *testing.T) {
	store := []*directory.User{
		user(t, "1", "Ann", "", nil),
		user(t, "2", "Bob", "", at(2)),
	}
	got := Sort(store, directory.SortByDate, Asc, now)
	assert.Equal(t, []string{"Bob", "Ann"}, names(got))
}

func TestSort_UnsupportedFieldFallsBackToName(t *testing.T) {
	store := []*directory.User{
		user(t, "1", "Cid", "", nil),
		user(t, "2", "Ann", "", nil),
	}
	got := Sort(store, directory.SortByEarnings, Asc, now)
	assert.Equal(t, []string{"Ann", "Cid"}, names(got))
}

func numbers(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestPaginate_TwentyThree(t *testing.T) {
	items := numbers(23)

	p := Paginate(items, 3)
	assert.Equal(t, []int{21, 22, 23}, p.Items)
	assert.Equal(t, 3, p.TotalPages)
	assert.False(t, p.HasNext())
	assert.True(t, p.HasPrev())

	// after deleting four items the view clamps page 4 to 2
	remaining := items[:19]
	assert.Equal(t, 2, TotalPages(len(remaining)))
	assert.Empty(t, Paginate(remaining, 4).Items, "paginate does not clamp")
	assert.Equal(t, 2, ClampPage(4, TotalPages(len(remaining))))
}

func TestPaginate_UnionReconstructs(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 11, 20, 23, 100} {
		items := numbers(n)
		var union []int
		for page := 1; page <= TotalPages(n); page++ {
			union = append(union, Paginate(items, page).Items...)
		}
		assert.Equal(t, len(items), len(union), "n=%d", n)
		if n > 0 {
			assert.Equal(t, items, union, "n=%d", n)
		}
	}
}

func TestPaginate_Empty(t *testing.T) {
	p := Paginate([]int{}, 1)
	assert.Empty(t, p.Items)
	assert.Equal(t, 0, p.TotalPages)
	assert.Equal(t, 1, p.DisplayPages())
	assert.Equal(t, 1, ClampPage(1, 0))
	assert.Empty(t, Paginate(numbers(5), 0).Items)
}

func TestTopPerformers(t *testing.T) {
	store := annBobCid(t)

	top := TopPerformers(store, 2)
	assert.Equal(t, []string{"Ann", "Cid"}, names(top))

	assert.Len(t, TopPerformers(store, TopPerformersShown), 3)
	assert.Empty(t, TopPerformers(store, 0))

	// ignores the user's sort and works on the filtered set
	q := DefaultQuery(directory.KindInfluencer)
	q.Performance = "low"
	q.SortBy = directory.SortByName
	q.Order = Desc
	res := Run(store, q, 1, now)
	assert.Equal(t, []string{"Bob"}, names(TopPerformers(res.Filtered, TopPerformersShown)))
}

func TestFilterOptionCount_IgnoresQuery(t *testing.T) {
	store := annBobCid(t)

	assert.Equal(t, 1, FilterOptionCount(store, directory.DimensionPerformance, "top", now))
	assert.Equal(t, 1, FilterOptionCount(store, directory.DimensionPerformance, "medium", now))
	assert.Equal(t, 1, FilterOptionCount(store, directory.DimensionPerformance, "low", now))
	assert.Equal(t, 3, FilterOptionCount(store, directory.DimensionPerformance, directory.All, now))
	assert.Equal(t, 3, FilterOptionCount(store, directory.DimensionDateRange, "today", now))

	counts := OptionCounts(directory.KindInfluencer, store, now)
	assert.Equal(t, 3, counts[directory.DimensionPerformance][directory.All])
	assert.NotContains(t, counts, directory.DimensionStatus)
}

func TestBlockChangesOnlyStatusCounts(t *testing.T) {
	store := []*directory.User{
		user(t, "1", "Ann", directory.StatusActive, at(1)),
		user(t, "2", "Bob", directory.StatusActive, at(10)),
		user(t, "3", "Cid", directory.StatusPending, at(40)),
	}
	before := OptionCounts(directory.KindUser, store, now)

	blocked := make([]*directory.User, len(store))
	copy(blocked, store)
	idx := directory.IndexOf(blocked, "2")
	blocked[idx] = blocked[idx].WithStatus(directory.StatusBlocked)

	after := OptionCounts(directory.KindUser, blocked, now)

	assert.Equal(t, before[directory.DimensionStatus]["blocked"]+1, after[directory.DimensionStatus]["blocked"])
	assert.Equal(t, before[directory.DimensionStatus]["active"]-1, after[directory.DimensionStatus]["active"])
	assert.Equal(t, before[directory.DimensionStatus]["pending"], after[directory.DimensionStatus]["pending"])
	assert.Equal(t, before[directory.DimensionDateRange], after[directory.DimensionDateRange])

	for i, u := range blocked {
		if u.ID() == "2" {
			assert.Equal(t, directory.StatusBlocked, u.Status())
			continue
		}
		assert.Same(t, store[i], u)
	}
}

func TestQuery_Validate(t *testing.T) {
	require.NoError(t, DefaultQuery(directory.KindUser).Validate())
	require.NoError(t, DefaultQuery(directory.KindInfluencer).Validate())

	q := DefaultQuery(directory.KindUser)
	q.Performance = "top"
	assert.True(t, shared.IsValidation(q.Validate()))

	q = DefaultQuery(directory.KindInfluencer)
	q.SortBy = directory.SortByStatus
	assert.True(t, shared.IsValidation(q.Validate()))

	q = DefaultQuery(directory.KindInfluencer)
	q.Order = "up"
	assert.True(t, shared.IsValidation(q.Validate()))

	assert.True(t, shared.IsValidation(Query{Kind: "widgets"}.Validate()))
}

func TestPatch_Apply(t *testing.T) {
	search := "Bo"
	status := "Blocked"
	order := "DESC"

	q, err := Patch{Search: &search, Status: &status, Order: &order}.Apply(DefaultQuery(directory.KindUser))
	require.NoError(t, err)
	assert.Equal(t, "Bo", q.Search)
	assert.Equal(t, "blocked", q.Status)
	assert.Equal(t, Desc, q.Order)
	assert.False(t, q.IsDefault())

	bad := "top"
	_, err = Patch{Performance: &bad}.Apply(DefaultQuery(directory.KindUser))
	assert.True(t, shared.IsValidation(err))

	assert.True(t, Patch{}.IsEmpty())
}
