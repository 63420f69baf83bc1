package curvecut

import (
	"github.com/chazu/chopit/pkg/kernel/bvh"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Color is a stroke display color.
type Color struct {
	Name string
	Hex  string
}

// strokeColors is the fixed cycle of stroke colors.
var strokeColors = []Color{
	{Name: "red", Hex: "#ff0000"},
	{Name: "green", Hex: "#00ff00"},
	{Name: "yellow", Hex: "#ffff00"},
	{Name: "magenta", Hex: "#ff00ff"},
}

// Stroke is one captured cut path: an ordered point sequence with its own
// identity and color.
type Stroke struct {
	ID     string
	Color  Color
	Points [][3]float64
}

// Palette hands out stroke colors in a fixed cycle so overlapping strokes
// stay distinguishable.
type Palette struct {
	next int
}

// Colors returns the colors of the cycle in order.
func (p *Palette) Colors() []Color {
	return append([]Color(nil), strokeColors...)
}

// Next returns the next color of the cycle.
func (p *Palette) Next() Color {
	c := strokeColors[p.next%len(strokeColors)]
	p.next++
	return c
}

// NewStroke copies points into a new stroke with the next color.
func (p *Palette) NewStroke(points [][3]float64) Stroke {
	return Stroke{
		ID:     uuid.New().String()[:8],
		Color:  p.Next(),
		Points: append([][3]float64(nil), points...),
	}
}

// Prune drops every stroke point farther than threshold from the indexed
// surface. Strokes left without points are dropped.
func Prune(index *bvh.Index, strokes []Stroke, threshold float64) []Stroke {
	out := make([]Stroke, 0, len(strokes))
	for _, s := range strokes {
		kept := lo.Filter(s.Points, func(p [3]float64, _ int) bool {
			return index.Distance(p) <= threshold
		})
		if len(kept) == 0 {
			continue
		}
		s.Points = kept
		out = append(out, s)
	}
	return out
}

// PointCount returns the total number of points in strokes.
func PointCount(strokes []Stroke) int {
	return lo.SumBy(strokes, func(s Stroke) int { return len(s.Points) })
}
