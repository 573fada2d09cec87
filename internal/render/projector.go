// Package render projects records onto table cells.
//
// A Projector owns the field-group layout and the markup used for highlighted
// and summarized fields. Derived cell text is memoized on each record, so a
// record must only ever be rendered through projectors sharing one markup.
package render

import (
	"github.com/hyperjump/traitview/internal/highlight"
	"github.com/hyperjump/traitview/internal/memo"
	"github.com/hyperjump/traitview/internal/models"
	"github.com/hyperjump/traitview/internal/traits"
)

// FieldGroups lists the configured columns of each rendering strategy, in
// column order.
type FieldGroups struct {
	// Extra fields show their raw value verbatim.
	Extra []string
	// Trait fields show a trait summary.
	Trait []string
	// Search fields show their raw value with annotations highlighted.
	Search []string
	// AsIs fields show their raw value highlighted as a whole.
	AsIs []string
}

// ColumnKind is the rendering strategy of a column.
type ColumnKind int

const (
	IdentifierColumn ColumnKind = iota
	ExtraColumn
	TraitColumn
	SearchColumn
	AsIsColumn
)

// String returns the column kind name.
func (k ColumnKind) String() string {
	switch k {
	case IdentifierColumn:
		return "identifier"
	case ExtraColumn:
		return "extra"
	case TraitColumn:
		return "trait"
	case SearchColumn:
		return "search"
	case AsIsColumn:
		return "as_is"
	default:
		return "unknown"
	}
}

// Column is one table column.
type Column struct {
	Kind  ColumnKind
	Field string
}

// IdentifierHeader titles the identifier column.
const IdentifierHeader = "#"

// Projector maps records to ordered cell strings.
type Projector struct {
	columns  []Column
	markers  highlight.Markers
	traits   *traits.Formatter
	observer func(slot memo.Slot, field string)
}

// ProjectorOption configures a Projector.
type ProjectorOption func(*Projector)

// WithObserver registers fn to be called each time a derived cell is actually
// computed rather than served from a record's cache.
func WithObserver(fn func(slot memo.Slot, field string)) ProjectorOption {
	return func(p *Projector) { p.observer = fn }
}

// NewProjector returns a projector for groups. Highlighted runs are wrapped in
// markers and trait summaries are produced by f.
func NewProjector(groups FieldGroups, markers highlight.Markers, f *traits.Formatter, opts ...ProjectorOption) *Projector {
	p := &Projector{
		columns: columnsOf(groups),
		markers: markers,
		traits:  f,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func columnsOf(g FieldGroups) []Column {
	cols := make([]Column, 0, 1+len(g.Extra)+len(g.Trait)+len(g.Search)+len(g.AsIs))
	cols = append(cols, Column{Kind: IdentifierColumn})
	for _, f := range g.Extra {
		cols = append(cols, Column{Kind: ExtraColumn, Field: f})
	}
	for _, f := range g.Trait {
		cols = append(cols, Column{Kind: TraitColumn, Field: f})
	}
	for _, f := range g.Search {
		cols = append(cols, Column{Kind: SearchColumn, Field: f})
	}
	for _, f := range g.AsIs {
		cols = append(cols, Column{Kind: AsIsColumn, Field: f})
	}
	return cols
}

// Columns returns the column layout, identifier first.
func (p *Projector) Columns() []Column {
	return append([]Column(nil), p.columns...)
}

// Headers returns the column titles.
func (p *Projector) Headers() []string {
	out := make([]string, len(p.columns))
	for i, c := range p.columns {
		if c.Kind == IdentifierColumn {
			out[i] = IdentifierHeader
			continue
		}
		out[i] = c.Field
	}
	return out
}

// Project returns the cells of r in column order.
func (p *Projector) Project(r *models.Record) []string {
	cells := make([]string, len(p.columns))
	for i, c := range p.columns {
		cells[i] = p.cell(r, c)
	}
	return cells
}

// ProjectAll projects every record in rows.
func (p *Projector) ProjectAll(rows []*models.Record) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = p.Project(r)
	}
	return out
}

func (p *Projector) cell(r *models.Record, c Column) string {
	switch c.Kind {
	case IdentifierColumn:
		return r.Index
	case ExtraColumn:
		return r.Value(c.Field)
	case TraitColumn:
		return p.Summary(r, c.Field)
	case SearchColumn:
		return p.Highlighted(r, c.Field)
	case AsIsColumn:
		return highlight.Wrap(r.Value(c.Field), p.markers)
	default:
		return ""
	}
}

// Highlighted returns the memoized highlight rendering of field.
func (p *Projector) Highlighted(r *models.Record, field string) string {
	return r.Derived().Memoize(memo.Highlight, field, func() string {
		p.observe(memo.Highlight, field)
		return highlight.Highlight(r.Value(field), Intervals(r.AnnotationsFor(field)), p.markers)
	})
}

// Summary returns the memoized trait summary of field.
func (p *Projector) Summary(r *models.Record, field string) string {
	return r.Derived().Memoize(memo.Summary, field, func() string {
		p.observe(memo.Summary, field)
		return p.traits.Format(r.Field(field))
	})
}

func (p *Projector) observe(slot memo.Slot, field string) {
	if p.observer != nil {
		p.observer(slot, field)
	}
}

// Intervals converts annotations to highlight intervals.
func Intervals(anns []models.Annotation) []highlight.Interval {
	out := make([]highlight.Interval, len(anns))
	for i, a := range anns {
		out[i] = highlight.Interval{Start: a.Start, End: a.End}
	}
	return out
}
