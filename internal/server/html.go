package server

import (
	"html/template"
	"strings"

	"github.com/hyperjump/traitview/internal/highlight"
	"github.com/hyperjump/traitview/internal/render"
	"github.com/hyperjump/traitview/internal/traits"
)

// separatorMark stands in for the trait separator line until cells are escaped.
const separatorMark = "\uE002"

// Markup holds the HTML inserted into cells after their text is escaped.
type Markup struct {
	Highlight highlight.Markers
	LineBreak string
	Separator string
}

// TraitOptions adapts trait summary options for projection by the server.
func TraitOptions(opts traits.Options) traits.Options {
	opts.LineBreak = "\n"
	opts.Separator = separatorMark
	return opts
}

// Cell turns a cell projected with render.SentinelMarkers into safe HTML.
func (m Markup) Cell(cell string) template.HTML {
	var b strings.Builder
	for _, seg := range render.Segments(cell, render.SentinelMarkers) {
		text := template.HTMLEscapeString(seg.Text)
		if seg.Highlighted {
			b.WriteString(m.Highlight.Open)
			b.WriteString(text)
			b.WriteString(m.Highlight.Close)
			continue
		}
		b.WriteString(text)
	}
	out := strings.ReplaceAll(b.String(), separatorMark, m.Separator)
	return template.HTML(strings.ReplaceAll(out, "\n", m.LineBreak))
}

// htmlSurface keeps the last page a pager rendered, ready for the page template.
type htmlSurface struct {
	markup Markup
	page   int
	total  int
	rows   [][]template.HTML
}

func newHTMLSurface(m Markup) *htmlSurface {
	return &htmlSurface{markup: m}
}

func (h *htmlSurface) SetPageIndicator(page, total int) {
	h.page, h.total = page, total
}

func (h *htmlSurface) RenderRows(cells [][]string) {
	rows := make([][]template.HTML, len(cells))
	for i, row := range cells {
		rows[i] = make([]template.HTML, len(row))
		for j, cell := range row {
			rows[i][j] = h.markup.Cell(cell)
		}
	}
	h.rows = rows
}

type pageView struct {
	Headers    []string
	Rows       [][]template.HTML
	Page       int
	TotalPages int
	RowCount   int
	Stale      bool
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>traitview: page {{.Page}} of {{.TotalPages}}</title>
<style>
body { font-family: sans-serif; margin: 1em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px; vertical-align: top; text-align: left; }
th { position: sticky; top: 0; background: #eee; }
.found { color: #c00000; font-weight: bold; }
.stale { background: #fff3cd; padding: 6px; margin-bottom: 8px; }
nav a, nav span, nav form { margin-right: 0.75em; }
</style>
</head>
<body>
{{if .Stale}}<div class="stale">The dataset changed on disk. Restart or wait for reload to see the new records.</div>{{end}}
<nav>
<a href="/nav/first">first</a>
<a href="/nav/previous">previous</a>
<span>Page {{.Page}} of {{.TotalPages}}</span>
<form action="/goto" method="get" style="display:inline">go to <input name="page" size="4" value="{{.Page}}"></form>
<a href="/nav/next">next</a>
<a href="/nav/last">last</a>
<span>{{.RowCount}} records</span>
</nav>
<table>
<thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))
