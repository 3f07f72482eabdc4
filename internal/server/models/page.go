package models

// MaxPageSize caps the page_size a client may request.
const MaxPageSize = 100

// Sort is the order of a question listing.
type Sort string

const (
	// SortNew orders by creation time, newest first.
	SortNew Sort = "new"
	// SortPopular orders by rating, then creation time, both descending.
	SortPopular Sort = "popular"
)

// ParseSort maps any unknown value to SortNew.
func ParseSort(s string) Sort {
	if Sort(s) == SortPopular {
		return SortPopular
	}
	return SortNew
}

// PageRequest selects one page of a listing. Page is 1-based.
type PageRequest struct {
	Page     int
	PageSize int
}

// NewPageRequest normalises user input: page below 1 becomes 1, a missing
// size becomes def and sizes above MaxPageSize are capped.
func NewPageRequest(page, size, def int) PageRequest {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = def
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return PageRequest{Page: page, PageSize: size}
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is one page of a listing together with the total item count.
type Page[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
}

func NewPage[T any](items []T, total int, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Page: req.Page, PageSize: req.PageSize}
}

func (p Page[T]) NumPages() int {
	if p.PageSize <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

func (p Page[T]) HasNext() bool { return p.Page < p.NumPages() }

func (p Page[T]) HasPrev() bool { return p.Page > 1 }
