// Package style provides the pieces needed to annotate a buffer with
// styled spans: font flags, colors, and ordered sets of spans.
package style

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/google/btree"
	"github.com/pkg/errors"
)

// Font flags, combined with bitwise or.
const (
	Bold      = 1
	Underline = 2
	Italic    = 4
)

// ColorForRGBAFloat packs color components in the range [0, 1] into an
// ARGB value.
func ColorForRGBAFloat(red, green, blue, alpha float64) (uint32, error) {
	var packed [4]uint32
	for i, c := range []float64{alpha, red, green, blue} {
		if c < 0 || c > 1 {
			return 0, errors.Errorf("color component %v out of range 0..1", c)
		}
		packed[i] = uint32(0xFF * c)
	}
	return packed[0]<<24 | packed[1]<<16 | packed[2]<<8 | packed[3], nil
}

// ParseColor converts a color name ("red", "darkcyan", ...) or a
// "#rrggbb" string into an opaque ARGB value.
func ParseColor(name string) (uint32, error) {
	c := tcell.GetColor(strings.ToLower(strings.TrimSpace(name)))
	hex := c.Hex()
	if hex < 0 {
		return 0, errors.Errorf("unknown color %q", name)
	}
	return 0xFF000000 | uint32(hex), nil
}

// Span styles the bytes in [Start, End), relative to the start of the
// region sent along with it.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Fg    uint32 `json:"fg"`
	Font  int    `json:"font,omitempty"`
}

// Less implements the btree.Item interface
func (s Span) Less(b btree.Item) bool {
	o := b.(Span)
	if s.Start != o.Start {
		return s.Start < o.Start
	}
	return s.End < o.End
}

// Shift returns a copy of the span moved by n bytes.
func (s Span) Shift(n int) Span {
	s.Start += n
	s.End += n
	return s
}

// SpanSet keeps spans ordered by position. Adding a span with the same
// range as an existing one replaces it.
type SpanSet struct {
	tree *btree.BTree
}

// NewSpanSet creates a new empty SpanSet.
func NewSpanSet() *SpanSet {
	s := &SpanSet{}
	s.Reset()
	return s
}

// Reset removes all spans.
func (s *SpanSet) Reset() {
	s.tree = btree.New(32)
}

// Add adds a span to the set.
func (s *SpanSet) Add(sp Span) {
	s.tree.ReplaceOrInsert(sp)
}

// Len returns the number of spans.
func (s *SpanSet) Len() int {
	return s.tree.Len()
}

// Ascend iterates over the spans in order, until fn returns false.
func (s *SpanSet) Ascend(fn func(Span) bool) {
	s.tree.Ascend(func(it btree.Item) bool {
		return fn(it.(Span))
	})
}

// Extent returns the smallest range covering every span. ok is false
// if the set is empty.
func (s *SpanSet) Extent() (start, end int, ok bool) {
	if s.tree.Len() == 0 {
		return 0, 0, false
	}
	start = s.tree.Min().(Span).Start
	s.Ascend(func(sp Span) bool {
		if sp.End > end {
			end = sp.End
		}
		return true
	})
	return start, end, true
}

// Relative returns the spans, in order, shifted so that offsets are
// relative to origin.
func (s *SpanSet) Relative(origin int) []Span {
	spans := make([]Span, 0, s.tree.Len())
	s.Ascend(func(sp Span) bool {
		spans = append(spans, sp.Shift(-origin))
		return true
	})
	return spans
}
