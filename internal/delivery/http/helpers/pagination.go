package helpers

import (
	"net/http"
	"strconv"

	"techcafe/internal/domain"
)

// ParsePagination reads page and page_size from the query string. Unparseable
// values are ignored and the result is normalized to the domain limits.
func ParsePagination(r *http.Request) domain.PaginationParams {
	q := r.URL.Query()
	var p domain.PaginationParams
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil {
		p.PageSize = v
	}
	return p.Normalize()
}

// PaginationMeta describes the returned page of a list response.
type PaginationMeta struct {
	Page        int  `json:"page"`
	PageSize    int  `json:"page_size"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

func NewPaginationMeta(p domain.PaginationParams, total int) PaginationMeta {
	pages := p.TotalPages(total)
	return PaginationMeta{
		Page:        p.Page,
		PageSize:    p.PageSize,
		Total:       total,
		TotalPages:  pages,
		HasNext:     p.Page < pages,
		HasPrevious: p.Page > 1 && pages > 0,
	}
}
