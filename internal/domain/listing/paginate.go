package listing

// PageSize is the fixed number of records per page.
const PageSize = 10

// Page is one slice of a sorted sequence plus the metadata a view needs.
type Page[T any] struct {
	Items      []T `json:"items"`
	Number     int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// HasNext reports whether a later page exists.
func (p Page[T]) HasNext() bool {
	return p.Number < p.TotalPages
}

// HasPrev reports whether an earlier page exists.
func (p Page[T]) HasPrev() bool {
	return p.Number > 1
}

// DisplayPages is the page count shown to the user: never less than 1.
func (p Page[T]) DisplayPages() int {
	return max(1, p.TotalPages)
}

// TotalPages returns ceil(n / PageSize); 0 for an empty sequence.
func TotalPages(n int) int {
	return (n + PageSize - 1) / PageSize
}

// Paginate returns page number of items: the slice [(page-1)*size, page*size)
// clamped to the bounds of items. The page number itself is not clamped, so
// an out-of-range page yields no items.
func Paginate[T any](items []T, page int) Page[T] {
	start := clampIndex((page-1)*PageSize, len(items))
	end := clampIndex(page*PageSize, len(items))
	if end < start {
		end = start
	}

	return Page[T]{
		Items:      items[start:end],
		Number:     page,
		PageSize:   PageSize,
		TotalItems: len(items),
		TotalPages: TotalPages(len(items)),
	}
}

// ClampPage returns min(current, max(1, totalPages)), and at least 1.
func ClampPage(current, totalPages int) int {
	return max(1, min(current, max(1, totalPages)))
}

func clampIndex(i, n int) int {
	return max(0, min(i, n))
}
