// Package pager pages through the record collection and drives a rendering
// surface.
package pager

import "github.com/hyperjump/traitview/internal/models"

// DefaultPageSize is used when a non-positive page size is requested.
const DefaultPageSize = 100

// Surface receives rendered pages. Implementations replace any previous
// table body on every RenderRows call.
type Surface interface {
	RenderRows(cells [][]string)
	SetPageIndicator(page, total int)
}

// RowProjector maps one record to its ordered cells.
type RowProjector interface {
	Project(r *models.Record) []string
}

// Pager holds the current page over an immutable row collection. Every
// navigation clamps to [1, TotalPages] and fully re-renders the visible
// window. It is not safe for concurrent use.
type Pager struct {
	rows      []*models.Record
	pageSize  int
	page      int
	projector RowProjector
	surface   Surface
}

// New returns a pager positioned on page 1, which it renders immediately.
// The page size is fixed for the pager's lifetime.
func New(rows []*models.Record, pageSize int, projector RowProjector, surface Surface) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	p := &Pager{
		rows:      rows,
		pageSize:  pageSize,
		page:      1,
		projector: projector,
		surface:   surface,
	}
	p.Render()
	return p
}

// Page returns the current 1-indexed page.
func (p *Pager) Page() int { return p.page }

// PageSize returns the fixed page size.
func (p *Pager) PageSize() int { return p.pageSize }

// RowCount returns the number of rows in the collection.
func (p *Pager) RowCount() int { return len(p.rows) }

// TotalPages returns ceil(rows/pageSize), and never less than 1.
func (p *Pager) TotalPages() int {
	n := (len(p.rows) + p.pageSize - 1) / p.pageSize
	if n < 1 {
		return 1
	}
	return n
}

// First moves to page 1.
func (p *Pager) First() { p.SetPage(1) }

// Previous moves back one page, stopping at page 1.
func (p *Pager) Previous() { p.SetPage(p.page - 1) }

// Next moves forward one page, stopping at the last page.
func (p *Pager) Next() { p.SetPage(p.page + 1) }

// Last moves to the last page.
func (p *Pager) Last() { p.SetPage(p.TotalPages()) }

// SetPage moves to page n, clamped to [1, TotalPages].
func (p *Pager) SetPage(n int) {
	p.page = p.clamp(n)
	p.Render()
}

// Window returns the rows of the current page.
func (p *Pager) Window() []*models.Record {
	begin := (p.page - 1) * p.pageSize
	end := begin + p.pageSize
	if begin > len(p.rows) {
		begin = len(p.rows)
	}
	if end > len(p.rows) {
		end = len(p.rows)
	}
	return p.rows[begin:end]
}

// Render projects the current window and hands it to the surface together
// with the page indicator.
func (p *Pager) Render() {
	window := p.Window()
	cells := make([][]string, len(window))
	for i, r := range window {
		cells[i] = p.projector.Project(r)
	}
	if p.surface == nil {
		return
	}
	p.surface.SetPageIndicator(p.page, p.TotalPages())
	p.surface.RenderRows(cells)
}

func (p *Pager) clamp(n int) int {
	if n < 1 {
		return 1
	}
	if total := p.TotalPages(); n > total {
		return total
	}
	return n
}
