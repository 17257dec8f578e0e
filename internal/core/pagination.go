package core

import "github.com/xiaopang/insight/internal/view"

// DefaultPageSize is the history page size.
const DefaultPageSize = 10

// Pagination is 0-based page state. Until the first total is known any
// non-negative page is accepted; afterwards the page is kept inside
// [0, TotalPages-1].
type Pagination struct {
	page     int
	pageSize int
	total    int
	known    bool
}

// NewPagination creates pagination with pageSize rows per page.
func NewPagination(pageSize int) *Pagination {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pagination{pageSize: pageSize}
}

func (p *Pagination) Page() int     { return p.page }
func (p *Pagination) PageSize() int { return p.pageSize }
func (p *Pagination) Total() int    { return p.total }
func (p *Pagination) Offset() int   { return p.page * p.pageSize }

// TotalPages is ceil(total/pageSize).
func (p *Pagination) TotalPages() int {
	return view.TotalPages(p.total, p.pageSize)
}

// SetTotal records the backend total and clamps the page. It reports whether
// the page moved.
func (p *Pagination) SetTotal(total int) bool {
	if total < 0 {
		total = 0
	}
	p.total = total
	p.known = true
	before := p.page
	p.page = p.clamp(p.page)
	return p.page != before
}

// SetPage moves to page, clamped, and returns the page actually selected.
func (p *Pagination) SetPage(page int) int {
	p.page = p.clamp(page)
	return p.page
}

func (p *Pagination) clamp(page int) int {
	if page < 0 {
		return 0
	}
	if !p.known {
		return page
	}
	last := p.TotalPages() - 1
	if last < 0 {
		return 0
	}
	if page > last {
		return last
	}
	return page
}

func (p *Pagination) HasPrev() bool { return p.page > 0 }

func (p *Pagination) HasNext() bool {
	if !p.known {
		return false
	}
	return p.page+1 < p.TotalPages()
}

// Next advances one page if possible.
func (p *Pagination) Next() bool {
	if !p.HasNext() {
		return false
	}
	p.page++
	return true
}

// Prev goes back one page if possible.
func (p *Pagination) Prev() bool {
	if !p.HasPrev() {
		return false
	}
	p.page--
	return true
}

// Reset returns to the first page.
func (p *Pagination) Reset() { p.page = 0 }

// Info exports the state for views.
func (p *Pagination) Info() view.PageInfo {
	return view.PageInfo{
		Page:       p.page,
		PageSize:   p.pageSize,
		Total:      p.total,
		TotalPages: p.TotalPages(),
	}
}
