// Package highlight merges possibly-overlapping character intervals into
// non-overlapping highlighted runs and inserts markers at the run boundaries.
//
// The boundary computation is independent of any markup: Boundaries and Runs
// describe where highlighting starts and stops, and Highlight renders those
// positions with a pair of marker strings. Offsets are rune offsets.
package highlight

import "strings"

// Interval is a half-open range [Start, End) of rune offsets.
type Interval struct {
	Start int
	End   int
}

// Boundary is a marker position. Pos is the rune offset the marker is inserted
// before; Open is true for a highlight-begin marker.
type Boundary struct {
	Pos  int
	Open bool
}

// Run is a maximal range of runes that are all highlighted or all plain.
type Run struct {
	Start       int
	End         int
	Highlighted bool
}

// Markers are the strings inserted around highlighted runs.
type Markers struct {
	Open  string
	Close string
}

// Coverage returns a slice of length+1 flags where element i reports whether
// rune i is covered by at least one interval. The trailing element is always
// false so a run that reaches the end of the string still has a closing edge.
// Intervals are clipped to [0, length); empty intervals cover nothing.
func Coverage(length int, intervals []Interval) []bool {
	if length < 0 {
		length = 0
	}
	covered := make([]bool, length+1)
	for _, iv := range intervals {
		start, end := iv.Start, iv.End
		if start < 0 {
			start = 0
		}
		if end > length {
			end = length
		}
		for i := start; i < end; i++ {
			covered[i] = true
		}
	}
	return covered
}

// Boundaries returns the marker positions for a string of length runes, in
// ascending order. Open and close markers strictly alternate, starting with an
// open marker, and no two markers share a position.
func Boundaries(length int, intervals []Interval) []Boundary {
	covered := Coverage(length, intervals)

	// Scan right to left, as inserting from the end keeps lower offsets valid.
	var rev []Boundary
	for i := len(covered) - 2; i >= 0; i-- {
		if covered[i] == covered[i+1] {
			continue
		}
		rev = append(rev, Boundary{Pos: i + 1, Open: !covered[i]})
	}
	if covered[0] {
		rev = append(rev, Boundary{Pos: 0, Open: true})
	}

	out := make([]Boundary, len(rev))
	for i, b := range rev {
		out[len(rev)-1-i] = b
	}
	return out
}

// Runs splits a string of length runes into alternating plain and
// highlighted runs. An empty string yields no runs.
func Runs(length int, intervals []Interval) []Run {
	if length <= 0 {
		return nil
	}
	var runs []Run
	start, lit := 0, false
	for _, b := range Boundaries(length, intervals) {
		if b.Pos > start {
			runs = append(runs, Run{Start: start, End: b.Pos, Highlighted: lit})
		}
		start, lit = b.Pos, b.Open
	}
	if start < length {
		runs = append(runs, Run{Start: start, End: length, Highlighted: lit})
	}
	return runs
}

// Highlight returns raw with m.Open and m.Close inserted around every
// highlighted run. Removing the markers yields raw unchanged.
func Highlight(raw string, intervals []Interval, m Markers) string {
	if raw == "" {
		return ""
	}
	runes := []rune(raw)
	bounds := Boundaries(len(runes), intervals)
	if len(bounds) == 0 {
		return raw
	}

	var sb strings.Builder
	sb.Grow(len(raw) + len(bounds)/2*(len(m.Open)+len(m.Close)))
	prev := 0
	for _, b := range bounds {
		sb.WriteString(string(runes[prev:b.Pos]))
		if b.Open {
			sb.WriteString(m.Open)
		} else {
			sb.WriteString(m.Close)
		}
		prev = b.Pos
	}
	sb.WriteString(string(runes[prev:]))
	return sb.String()
}

// Wrap highlights the whole of raw as a single run. Empty input stays empty.
func Wrap(raw string, m Markers) string {
	if raw == "" {
		return ""
	}
	return m.Open + raw + m.Close
}
