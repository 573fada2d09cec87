package highlight

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mark = Markers{Open: "<mark>", Close: "</mark>"}

func TestHighlight_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		intervals []Interval
		want      string
	}{
		{"simple", "hello world", []Interval{{0, 5}}, "<mark>hello</mark> world"},
		{"overlapping", "abcdef", []Interval{{0, 3}, {2, 5}}, "<mark>abcde</mark>f"},
		{"adjacent merge", "abcdef", []Interval{{0, 2}, {2, 4}}, "<mark>abcd</mark>ef"},
		{"disjoint", "abcdef", []Interval{{0, 1}, {3, 4}}, "<mark>a</mark>bc<mark>d</mark>ef"},
		{"first rune only", "abc", []Interval{{0, 1}}, "<mark>a</mark>bc"},
		{"starts at one", "abc", []Interval{{1, 3}}, "a<mark>bc</mark>"},
		{"full cover", "abc", []Interval{{0, 3}}, "<mark>abc</mark>"},
		{"tail", "abc", []Interval{{2, 3}}, "ab<mark>c</mark>"},
		{"no annotations", "abc", nil, "abc"},
		{"empty raw", "", []Interval{{0, 3}}, ""},
		{"degenerate", "abc", []Interval{{1, 1}}, "abc"},
		{"inverted", "abc", []Interval{{2, 1}}, "abc"},
		{"clipped", "abc", []Interval{{-2, 1}, {2, 10}}, "<mark>a</mark>b<mark>c</mark>"},
		{"multibyte", "größe 12 mm", []Interval{{6, 11}}, "größe <mark>12 mm</mark>"},
		{"nested", "abcdefgh", []Interval{{1, 7}, {2, 4}}, "a<mark>bcdefg</mark>h"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Highlight(tt.raw, tt.intervals, mark))
		})
	}
}

func TestBoundaries(t *testing.T) {
	assert.Empty(t, Boundaries(0, []Interval{{0, 1}}))
	assert.Equal(t, []Boundary{{Pos: 0, Open: true}, {Pos: 5, Open: false}},
		Boundaries(11, []Interval{{0, 5}}))
	assert.Equal(t, []Boundary{
		{Pos: 1, Open: true}, {Pos: 2, Open: false},
		{Pos: 4, Open: true}, {Pos: 6, Open: false},
	}, Boundaries(6, []Interval{{1, 2}, {4, 6}}))
}

func TestCoverage_TrailingSlotUncovered(t *testing.T) {
	c := Coverage(3, []Interval{{0, 3}})
	require.Len(t, c, 4)
	assert.Equal(t, []bool{true, true, true, false}, c)
	assert.Equal(t, []bool{false}, Coverage(-1, nil))
}

func TestRuns(t *testing.T) {
	assert.Nil(t, Runs(0, nil))
	assert.Equal(t, []Run{{0, 4, false}}, Runs(4, nil))
	assert.Equal(t, []Run{
		{0, 5, true},
		{5, 6, false},
	}, Runs(6, []Interval{{0, 3}, {2, 5}}))
	assert.Equal(t, []Run{
		{0, 1, false},
		{1, 3, true},
		{3, 4, false},
		{4, 5, true},
	}, Runs(5, []Interval{{1, 3}, {4, 5}}))
}

func TestWrap(t *testing.T) {
	assert.Equal(t, "<mark>abc</mark>", Wrap("abc", mark))
	assert.Equal(t, "", Wrap("", mark))
}

// Properties over random interval sets on short strings.

var square = Markers{Open: "[", Close: "]"}

func randomCase(rng *rand.Rand) (string, []Interval) {
	n := rng.Intn(12)
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteByte(byte('a' + rng.Intn(26)))
	}
	k := rng.Intn(5)
	ivs := make([]Interval, k)
	for i := range ivs {
		s := rng.Intn(n + 1)
		e := s + rng.Intn(n+1-s)
		ivs[i] = Interval{Start: s, End: e}
	}
	return sb.String(), ivs
}

func strip(s string) string {
	return strings.NewReplacer(square.Open, "", square.Close, "").Replace(s)
}

func TestHighlight_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		raw, ivs := randomCase(rng)
		out := Highlight(raw, ivs, square)

		// Round trip.
		require.Equal(t, raw, strip(out), "raw=%q ivs=%v", raw, ivs)

		// No empty marker pairs.
		require.NotContains(t, out, square.Open+square.Close, "raw=%q ivs=%v", raw, ivs)

		// Coverage correctness and balanced, non-nested markers.
		covered := Coverage(len(raw), ivs)
		inside, pos := false, 0
		for _, r := range out {
			switch string(r) {
			case square.Open:
				require.False(t, inside, "nested open in %q", out)
				inside = true
			case square.Close:
				require.True(t, inside, "unbalanced close in %q", out)
				inside = false
			default:
				require.Equal(t, covered[pos], inside, "rune %d of %q in %q", pos, raw, out)
				pos++
			}
		}
		require.False(t, inside, "unclosed marker in %q", out)

		// Overlap idempotence.
		if len(ivs) > 0 {
			dup := append(append([]Interval(nil), ivs...), ivs...)
			require.Equal(t, out, Highlight(raw, dup, square))
			require.Equal(t, Highlight(raw, ivs[:1], square), Highlight(raw, []Interval{ivs[0], ivs[0]}, square))
		}

		// Any interval set with the same union renders the same.
		require.Equal(t, out, Highlight(raw, unionOf(covered), square))
	}
}

// unionOf rebuilds the covered set as one interval per covered rune.
func unionOf(covered []bool) []Interval {
	var ivs []Interval
	for i := 0; i < len(covered)-1; i++ {
		if covered[i] {
			ivs = append(ivs, Interval{Start: i, End: i + 1})
		}
	}
	return ivs
}

func BenchmarkHighlight(b *testing.B) {
	raw := strings.Repeat("total length 120 mm; tail 45 mm; ", 20)
	ivs := []Interval{{0, 16}, {13, 20}, {21, 31}, {200, 260}, {500, 640}}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Highlight(raw, ivs, mark)
	}
}
