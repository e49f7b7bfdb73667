package adoption

import "math"

// DefaultPageSize is used when a request carries no usable limit.
const DefaultPageSize = 10

// PageRequest is a 1-based page number and a page size.
type PageRequest struct {
	Page  int64
	Limit int64
}

// normalize clamps p in place. maxLimit of zero leaves the size unbounded.
func (p *PageRequest) normalize(defaultLimit, maxLimit int64) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultPageSize
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
}

// skip saturates at math.MaxInt64 so a page far past the end stays empty
// instead of wrapping negative.
func (p PageRequest) skip() int64 {
	if p.Page-1 > math.MaxInt64/p.Limit {
		return math.MaxInt64
	}
	return (p.Page - 1) * p.Limit
}

// PageInfo is the pagination metadata returned with every list.
type PageInfo struct {
	CurrentPage int64 `json:"currentPage"`
	TotalPages  int64 `json:"totalPages"`
	Total       int64 `json:"totalDogs"`
	Limit       int64 `json:"limit"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
}

// NewPageInfo computes metadata for page of size limit over total matches.
// limit must be positive.
func NewPageInfo(page, limit, total int64) PageInfo {
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return PageInfo{
		CurrentPage: page,
		TotalPages:  pages,
		Total:       total,
		Limit:       limit,
		HasNext:     page < pages,
		HasPrev:     page > 1,
	}
}
