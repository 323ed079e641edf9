package domain

import "strconv"

// PaginationParams carries page/limit values from the HTTP layer to the repo
// layer. Page is 1-indexed. Limit defaults to the admin screens' page size
// and is capped at 100 by PaginationFromQuery.
type PaginationParams struct {
	// Page is the current page number, starting at 1.
	Page int
	// Limit is the maximum number of items to return.
	Limit int
}

// PaginationFromQuery builds PaginationParams from raw query string values.
// Empty or malformed values fall back to sane defaults (page=1, limit=10).
// The limit is capped at 100 to prevent runaway queries.
func PaginationFromQuery(page, limit string) PaginationParams {
	p := PaginationParams{Page: 1, Limit: 10}
	if n, err := strconv.Atoi(page); err == nil && n >= 1 {
		p.Page = n
	}
	if n, err := strconv.Atoi(limit); err == nil && n >= 1 {
		p.Limit = n
		if p.Limit > 100 {
			p.Limit = 100
		}
	}
	return p
}

// Offset returns the zero-based row offset for a SQL OFFSET clause.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}
