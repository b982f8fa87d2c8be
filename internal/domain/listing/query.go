// Package listing implements the list-management pipeline shared by the users
// and influencers views: filter, sort, paginate and aggregate over an in-memory
// record store. Every function here is pure; "now" is always passed in.
package listing

import (
	"strings"

	"github.com/travy/admin-hub/internal/domain/directory"
	"github.com/travy/admin-hub/internal/domain/shared"
)

// SortOrder is the direction of the sort stage.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// IsValid reports whether o is asc or desc.
func (o SortOrder) IsValid() bool {
	return o == Asc || o == Desc
}

// Query is the search text, categorical selections and sort specification
// applied to one list view.
type Query struct {
	Kind        directory.Kind      `json:"kind"`
	Search      string              `json:"search"`
	Status      string              `json:"status,omitempty"`
	Performance string              `json:"performance,omitempty"`
	DateRange   string              `json:"dateRange"`
	SortBy      directory.SortField `json:"sortBy"`
	Order       SortOrder           `json:"sortOrder"`
}

// DefaultQuery returns the query a freshly opened view starts with:
// every selection "all", sorted by name ascending.
func DefaultQuery(kind directory.Kind) Query {
	q := Query{
		Kind:      kind,
		DateRange: directory.All,
		SortBy:    directory.SortByName,
		Order:     Asc,
	}
	switch kind {
	case directory.KindUser:
		q.Status = directory.All
	case directory.KindInfluencer:
		q.Performance = directory.All
	}
	return q
}

// Selections returns the categorical selections that apply to the query's kind.
func (q Query) Selections() map[directory.Dimension]string {
	out := map[directory.Dimension]string{
		directory.DimensionDateRange: q.DateRange,
	}
	switch q.Kind {
	case directory.KindUser:
		out[directory.DimensionStatus] = q.Status
	case directory.KindInfluencer:
		out[directory.DimensionPerformance] = q.Performance
	}
	return out
}

// IsDefault reports whether the query filters nothing and uses the default sort.
func (q Query) IsDefault() bool {
	return q == DefaultQuery(q.Kind)
}

// Validate rejects unknown selections, sort fields and orders.
func (q Query) Validate() error {
	if _, ok := directory.Options(q.Kind)[directory.DimensionDateRange]; !ok {
		return shared.NewDomainError("listing", "Validate", shared.ErrValidation, "unknown list kind "+string(q.Kind))
	}
	for dim, value := range q.Selections() {
		if err := directory.ValidateSelection(q.Kind, dim, value); err != nil {
			return shared.WrapError("listing", "Validate", shared.ErrValidation,
				"unknown "+string(dim)+" value "+value, err)
		}
	}
	if q.Kind == directory.KindUser && q.Performance != "" && q.Performance != directory.All {
		return shared.ErrUnknownSelection
	}
	if q.Kind == directory.KindInfluencer && q.Status != "" && q.Status != directory.All {
		return shared.ErrUnknownSelection
	}
	if err := directory.ValidateSortField(q.Kind, q.SortBy); err != nil {
		return shared.WrapError("listing", "Validate", shared.ErrValidation,
			"unknown sort field "+string(q.SortBy), err)
	}
	if !q.Order.IsValid() {
		return shared.ErrUnknownSortOrder
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PATCH
// ══════════════════════════════════════════════════════════════════════════════

// Patch is a partial query update; nil fields are left unchanged.
type Patch struct {
	Search      *string `json:"search,omitempty"`
	Status      *string `json:"status,omitempty"`
	Performance *string `json:"performance,omitempty"`
	DateRange   *string `json:"dateRange,omitempty"`
	SortBy      *string `json:"sortBy,omitempty"`
	Order       *string `json:"sortOrder,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// Apply returns q with the patch applied, or a validation error. Selection
// values are matched case-insensitively; the search text is kept verbatim.
func (p Patch) Apply(q Query) (Query, error) {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

	if p.Search != nil {
		q.Search = *p.Search
	}
	if p.Status != nil {
		q.Status = norm(*p.Status)
	}
	if p.Performance != nil {
		q.Performance = norm(*p.Performance)
	}
	if p.DateRange != nil {
		q.DateRange = norm(*p.DateRange)
	}
	if p.SortBy != nil {
		q.SortBy = directory.SortField(norm(*p.SortBy))
	}
	if p.Order != nil {
		q.Order = SortOrder(norm(*p.Order))
	}

	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}
