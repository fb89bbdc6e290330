// Package pagination provides the shared page/filter parameters and result
// envelope used by every list query.
package pagination

// MaxPageSize is the hard cap applied server-side regardless of client input.
const MaxPageSize = 100

// DefaultPageSize is used when the client does not specify a size.
const DefaultPageSize = 25

// Params are the common list-query parameters.
type Params struct {
	Page     int     `form:"page"`
	PageSize int     `form:"pageSize"`
	Search   *string `form:"search"`
	Status   *int    `form:"status"`
}

// Normalize clamps the parameters to sane server-side bounds. It must be
// called before the parameters reach storage.
func (p *Params) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

// Offset returns the row offset for the normalized parameters.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PagedList is the standard paginated result envelope.
type PagedList[T any] struct {
	Items       []T   `json:"items"`
	TotalCount  int64 `json:"totalCount"`
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	PageSize    int   `json:"pageSize"`
}

// NewPagedList builds a PagedList, deriving TotalPages from the count.
func NewPagedList[T any](items []T, totalCount int64, page, pageSize int) *PagedList[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((totalCount + int64(pageSize) - 1) / int64(pageSize))
	}
	if items == nil {
		items = []T{}
	}
	return &PagedList[T]{
		Items:       items,
		TotalCount:  totalCount,
		CurrentPage: page,
		TotalPages:  totalPages,
		PageSize:    pageSize,
	}
}
