package render

import (
	"strings"

	"github.com/hyperjump/traitview/internal/highlight"
)

// SentinelMarkers mark highlighted runs with private-use runes. Surfaces that
// are not markup based (terminal, spreadsheet) project with these and split the
// cells back into segments.
var SentinelMarkers = highlight.Markers{Open: "\uE000", Close: "\uE001"}

// Segment is a piece of cell text that is either highlighted or plain.
type Segment struct {
	Text        string `json:"text"`
	Highlighted bool   `json:"highlighted,omitempty"`
}

// Segments splits cell at m's markers. Empty pieces are dropped.
func Segments(cell string, m highlight.Markers) []Segment {
	if m.Open == "" || m.Close == "" {
		if cell == "" {
			return nil
		}
		return []Segment{{Text: cell}}
	}
	var out []Segment
	lit := false
	for cell != "" {
		marker := m.Open
		if lit {
			marker = m.Close
		}
		i := strings.Index(cell, marker)
		if i < 0 {
			out = append(out, Segment{Text: cell, Highlighted: lit})
			break
		}
		if i > 0 {
			out = append(out, Segment{Text: cell[:i], Highlighted: lit})
		}
		cell = cell[i+len(marker):]
		lit = !lit
	}
	return out
}

// Plain removes m's markers from cell.
func Plain(cell string, m highlight.Markers) string {
	return strings.NewReplacer(m.Open, "", m.Close, "").Replace(cell)
}
