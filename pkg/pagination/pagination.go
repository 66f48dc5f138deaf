package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
	// Explicit is true when the client sent a page parameter.
	Explicit bool `json:"-"`
}

// DefaultParams returns the first page with the default limit.
func DefaultParams() Params {
	return Params{Page: 1, Limit: DefaultLimit}
}

// New builds Params from already-parsed values, clamping them into range.
func New(page, limit int) Params {
	p := DefaultParams()
	if page > 0 {
		p.Page = page
	}
	if limit > 0 {
		p.Limit = min(limit, MaxLimit)
	}
	p.Offset = (p.Page - 1) * p.Limit
	return p
}

// FromRequest extracts page and limit from an HTTP request. Values that do not
// parse or are out of range fall back to the defaults.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	page, limit := 0, 0

	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = v
	}

	p := New(page, limit)
	p.Explicit = q.Has("page")
	return p
}

// Meta is the "meta" block of a paginated response.
type Meta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewMeta computes page counts for total matching rows.
func NewMeta(total int, p Params) Meta {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	totalPages := total / limit
	if total%limit > 0 {
		totalPages++
	}
	return Meta{
		Page:       p.Page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}
