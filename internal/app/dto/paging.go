package dto

import "math"

// Paging normalizes 1-indexed page requests.
type Paging struct {
	Page    int
	PerPage int
}

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	MaxPage        = math.MaxInt32 / MaxPerPage
)

func NewPaging(page, perPage int) Paging {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Paging{Page: page, PerPage: perPage}
}

func (p Paging) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Pages is the page count for total items.
func (p Paging) Pages(total int) int {
	if total <= 0 || p.PerPage <= 0 {
		return 0
	}
	return (total + p.PerPage - 1) / p.PerPage
}
