// Package cli renders record pages for terminals and machine consumers.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/hyperjump/traitview/internal/highlight"
	"github.com/hyperjump/traitview/internal/render"
	"github.com/hyperjump/traitview/internal/traits"
	"github.com/hyperjump/traitview/pkg/utils"
)

// OutputFormat is the format for page output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --format flag value. Empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (use text or json)", s)
}

// Plain-text stand-ins for highlighting when color is off.
const (
	plainOpen  = "["
	plainClose = "]"
)

// TextTraitOptions adapts trait summary options for line-oriented output.
func TextTraitOptions(opts traits.Options) traits.Options {
	opts.LineBreak = "\n"
	opts.Separator = "--"
	return opts
}

// Surface writes pages to a terminal or pipe. Cells must be projected with
// render.SentinelMarkers. Write errors are kept and reported by Err.
type Surface struct {
	w        io.Writer
	headers  []string
	format   OutputFormat
	markers  highlight.Markers
	color    bool
	maxWidth int
	page     int
	total    int
	rowCount int
	err      error
}

// SurfaceOption configures a Surface.
type SurfaceOption func(*Surface)

// WithColor turns ANSI highlighting on or off. Off by default.
func WithColor(on bool) SurfaceOption {
	return func(s *Surface) { s.color = on }
}

// WithMaxWidth clips each value line to width display columns. Zero disables clipping.
func WithMaxWidth(width int) SurfaceOption {
	return func(s *Surface) { s.maxWidth = width }
}

// WithRowCount sets the dataset size reported in JSON output.
func WithRowCount(n int) SurfaceOption {
	return func(s *Surface) { s.rowCount = n }
}

// NewSurface returns a surface writing to w with one header per projected column.
func NewSurface(w io.Writer, headers []string, format OutputFormat, opts ...SurfaceOption) *Surface {
	s := &Surface{
		w:       w,
		headers: headers,
		format:  format,
		markers: render.SentinelMarkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPageIndicator records the page shown by the next RenderRows.
func (s *Surface) SetPageIndicator(page, total int) {
	s.page, s.total = page, total
}

// RenderRows writes one page.
func (s *Surface) RenderRows(cells [][]string) {
	if s.err != nil {
		return
	}
	switch s.format {
	case OutputJSON:
		s.err = s.writeJSON(cells)
	default:
		s.err = s.writeText(cells)
	}
}

// Err returns the first write error.
func (s *Surface) Err() error {
	return s.err
}

// PageOutput is the JSON shape of one rendered page.
type PageOutput struct {
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
	RowCount   int         `json:"row_count,omitempty"`
	Headers    []string    `json:"headers"`
	Rows       [][]CellOut `json:"rows"`
}

// CellOut is one cell: its plain text and, when any part is highlighted, its segments.
type CellOut struct {
	Text     string           `json:"text"`
	Segments []render.Segment `json:"segments,omitempty"`
}

// Cells converts projected cells to their JSON form.
func Cells(row []string, m highlight.Markers) []CellOut {
	out := make([]CellOut, len(row))
	for i, cell := range row {
		out[i].Text = render.Plain(cell, m)
		segs := render.Segments(cell, m)
		for _, seg := range segs {
			if seg.Highlighted {
				out[i].Segments = segs
				break
			}
		}
	}
	return out
}

func (s *Surface) writeJSON(cells [][]string) error {
	out := PageOutput{
		Page:       s.page,
		TotalPages: s.total,
		RowCount:   s.rowCount,
		Headers:    s.headers,
		Rows:       make([][]CellOut, len(cells)),
	}
	for i, row := range cells {
		out.Rows[i] = Cells(row, s.markers)
	}
	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (s *Surface) writeText(cells [][]string) error {
	hl := color.New(color.FgYellow, color.Bold)
	head := color.New(color.FgCyan)
	if s.color {
		hl.EnableColor()
		head.EnableColor()
	} else {
		hl.DisableColor()
		head.DisableColor()
	}

	width := 0
	for _, h := range s.headers {
		if w := utils.Width(h); w > width {
			width = w
		}
	}
	indent := strings.Repeat(" ", width+2)

	var b strings.Builder
	fmt.Fprintf(&b, "Page %d of %d\n", s.page, s.total)
	for i, row := range cells {
		fmt.Fprintf(&b, "\n── row %d ──\n", i+1)
		for j, cell := range row {
			header := ""
			if j < len(s.headers) {
				header = s.headers[j]
			}
			lines := s.valueLines(cell, hl)
			if len(lines) == 0 {
				lines = []string{""}
			}
			b.WriteString(head.Sprint(utils.PadRight(header, width)))
			b.WriteString("  ")
			b.WriteString(lines[0])
			b.WriteByte('\n')
			for _, line := range lines[1:] {
				b.WriteString(indent)
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
	}
	_, err := io.WriteString(s.w, b.String())
	return err
}

// valueLines splits a cell at newlines and paints highlighted segments. A
// highlight that spans a newline is closed and reopened on the next line.
func (s *Surface) valueLines(cell string, hl *color.Color) []string {
	var lines [][]render.Segment
	cur := []render.Segment{}
	for _, seg := range render.Segments(cell, s.markers) {
		parts := strings.Split(seg.Text, "\n")
		for k, part := range parts {
			if k > 0 {
				lines = append(lines, cur)
				cur = []render.Segment{}
			}
			if part != "" {
				cur = append(cur, render.Segment{Text: part, Highlighted: seg.Highlighted})
			}
		}
	}
	lines = append(lines, cur)

	out := make([]string, len(lines))
	for i, segs := range lines {
		if s.maxWidth > 0 {
			segs = clip(segs, s.maxWidth)
		}
		var b strings.Builder
		for _, seg := range segs {
			switch {
			case !seg.Highlighted:
				b.WriteString(seg.Text)
			case s.color:
				b.WriteString(hl.Sprint(seg.Text))
			default:
				b.WriteString(plainOpen + seg.Text + plainClose)
			}
		}
		out[i] = b.String()
	}
	for len(out) > 1 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

// clip keeps at most width display columns of segs, ending with "..." when cut.
func clip(segs []render.Segment, width int) []render.Segment {
	used := 0
	for i, seg := range segs {
		w := utils.Width(seg.Text)
		if used+w <= width {
			used += w
			continue
		}
		out := append([]render.Segment(nil), segs[:i]...)
		room := width - used
		if room > 0 {
			out = append(out, render.Segment{Text: utils.Truncate(seg.Text, room), Highlighted: seg.Highlighted})
		} else {
			out = append(out, render.Segment{Text: "..."})
		}
		return out
	}
	return segs
}
