// Package meshutil holds the solid helpers shared by the decomposers:
// bounding-box measurement, fragments and connectivity separation, and
// the orientation steps applied to a model before it is cut.
package meshutil

import (
	"fmt"
	"math"

	"github.com/chazu/chopit/pkg/kernel"
	"github.com/samber/lo"
)

// Corners returns the 8 world-space corners of the bounding box of s.
func Corners(s kernel.Solid) [8][3]float64 {
	min, max := s.BoundingBox()
	var c [8][3]float64
	for i := 0; i < 8; i++ {
		for a := 0; a < 3; a++ {
			if i&(1<<a) == 0 {
				c[i][a] = min[a]
			} else {
				c[i][a] = max[a]
			}
		}
	}
	return c
}

// BoxCenter returns the average of the bounding-box corners of s.
func BoxCenter(s kernel.Solid) [3]float64 {
	var c [3]float64
	for _, p := range Corners(s) {
		for a := 0; a < 3; a++ {
			c[a] += p[a]
		}
	}
	for a := 0; a < 3; a++ {
		c[a] /= 8
	}
	return c
}

// Dimensions returns the bounding-box extent of s on each axis.
func Dimensions(s kernel.Solid) [3]float64 {
	min, max := s.BoundingBox()
	return [3]float64{max[0] - min[0], max[1] - min[1], max[2] - min[2]}
}

// Fragment is one connected piece of a decomposed solid.
type Fragment struct {
	Solid  kernel.Solid
	Source string // name of the solid the fragment was cut from
	Pass   string // pass that produced it: "x", "y", "z" or "curve"
	Min    [3]float64
	Max    [3]float64
}

// NewFragment records the bounds of s.
func NewFragment(s kernel.Solid, source, pass string) Fragment {
	min, max := s.BoundingBox()
	return Fragment{Solid: s, Source: source, Pass: pass, Min: min, Max: max}
}

// Dimensions returns the bounding-box extent of the fragment.
func (f Fragment) Dimensions() [3]float64 {
	return [3]float64{f.Max[0] - f.Min[0], f.Max[1] - f.Min[1], f.Max[2] - f.Min[2]}
}

// Fits reports whether the fragment fits a cubic envelope of the given
// size.
func (f Fragment) Fits(size float64) bool {
	d := f.Dimensions()
	return d[0] <= size && d[1] <= size && d[2] <= size
}

// Separate splits s into connected fragments tagged with name and pass.
// The source name is returned alongside for provenance.
func Separate(k kernel.Kernel, s kernel.Solid, name, pass string) ([]Fragment, string, error) {
	parts, err := k.Separate(s)
	if err != nil {
		return nil, name, fmt.Errorf("meshutil: separate %q: %w", name, err)
	}
	frags := lo.Map(parts, func(p kernel.Solid, _ int) Fragment {
		return NewFragment(p, name, pass)
	})
	return Enumerate(frags), name, nil
}

// Enumerate is the hook for naming or filtering fragments by index. It
// returns its input unchanged.
func Enumerate(frags []Fragment) []Fragment {
	return frags
}

// TotalVolume sums the kernel volume of every fragment.
func TotalVolume(k kernel.Kernel, frags []Fragment) float64 {
	return lo.SumBy(frags, func(f Fragment) float64 { return k.Volume(f.Solid) })
}

// Setup orients a model for printing: its largest dimension is turned
// onto Z, it is centered on the origin in X and Y and it rests on Z = 0.
func Setup(k kernel.Kernel, s kernel.Solid) kernel.Solid {
	d := Dimensions(s)
	switch {
	case d[0] > d[2] && d[0] >= d[1]:
		s = k.Rotate(s, 0, 90, 0)
	case d[1] > d[2] && d[1] > d[0]:
		s = k.Rotate(s, 90, 0, 0)
	}
	c := BoxCenter(s)
	min, _ := s.BoundingBox()
	return k.Translate(s, -c[0], -c[1], -min[2])
}

// ScaleToHeight scales s uniformly about the origin so that its Z extent
// equals height.
func ScaleToHeight(k kernel.Kernel, s kernel.Solid, height float64) (kernel.Solid, error) {
	if !(height > 0) || math.IsInf(height, 0) {
		return nil, fmt.Errorf("meshutil: %w: height %g must be positive", kernel.ErrInput, height)
	}
	z := Dimensions(s)[2]
	if !(z > 0) {
		return nil, fmt.Errorf("meshutil: %w: solid has no height", kernel.ErrGeometry)
	}
	return k.Scale(s, height/z), nil
}
