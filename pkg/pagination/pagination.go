package pagination

import (
	"net/http"
	"strconv"
	"strings"
)

// MaxPerPage caps the page size a client may request. It also bounds the
// in-memory page size used when a search result set is paginated client-side.
const MaxPerPage = 100

// Params holds the list query parameters extracted from a request:
// page, page size, free-text search, and sort order.
type Params struct {
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Search  string `json:"search,omitempty"`
	// Ordering is the sort field, prefixed with "-" for descending
	// (e.g. "-created_at"), mirroring the upstream's ordering parameter.
	Ordering string `json:"ordering,omitempty"`
	Offset   int    `json:"-"`
}

// DefaultParams returns sensible list query defaults.
func DefaultParams() Params {
	return Params{
		Page:    1,
		PerPage: 20,
		Offset:  0,
	}
}

// SortField returns the ordering field name and whether the sort is descending.
func (p Params) SortField() (field string, desc bool) {
	if strings.HasPrefix(p.Ordering, "-") {
		return p.Ordering[1:], true
	}
	return p.Ordering, false
}

// FromRequest extracts list query parameters from an HTTP request.
// Invalid or out-of-range values fall back to defaults rather than erroring.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	q := r.URL.Query()

	if page := q.Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if perPage := q.Get("per_page"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= MaxPerPage {
			p.PerPage = v
		}
	}

	p.Search = strings.TrimSpace(q.Get("search"))
	p.Ordering = strings.TrimSpace(q.Get("ordering"))

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

// TotalPages computes the number of pages needed for totalCount rows at the
// given page size. Returns 0 for an empty collection.
func TotalPages(totalCount, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	pages := totalCount / perPage
	if totalCount%perPage > 0 {
		pages++
	}
	return pages
}

// ClampPage returns page forced into [1, TotalPages(totalCount, perPage)].
// An empty collection clamps to page 1.
func ClampPage(page, totalCount, perPage int) int {
	if page < 1 {
		return 1
	}
	last := TotalPages(totalCount, perPage)
	if last == 0 {
		return 1
	}
	if page > last {
		return last
	}
	return page
}

// Result wraps a paginated response.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult creates a paginated result.
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	totalPages := TotalPages(totalCount, params.PerPage)

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}
