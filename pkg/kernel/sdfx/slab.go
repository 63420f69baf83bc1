package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/chopit/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// slabSDF is a planar polygon extruded symmetrically along the normal of
// an arbitrary frame.
type slabSDF struct {
	poly       sdf.SDF2
	o, u, v, n v3.Vec
	half       float64
	bb         sdf.Box3
}

func (s *slabSDF) Evaluate(p v3.Vec) float64 {
	q := p.Sub(s.o)
	d2 := s.poly.Evaluate(v2.Vec{X: q.Dot(s.u), Y: q.Dot(s.v)})
	dz := math.Abs(q.Dot(s.n)) - s.half
	inside := math.Min(math.Max(d2, dz), 0)
	outside := math.Hypot(math.Max(d2, 0), math.Max(dz, 0))
	return inside + outside
}

func (s *slabSDF) BoundingBox() sdf.Box3 { return s.bb }

func vec(a [3]float64) v3.Vec {
	return v3.Vec{X: a[0], Y: a[1], Z: a[2]}
}

// Slab extrudes a planar outline given in frame coordinates by thickness
// along the frame normal.
func (k *SdfxKernel) Slab(f kernel.Frame, outline [][2]float64, thickness float64) (kernel.Solid, error) {
	if !(thickness > 0) {
		return nil, fmt.Errorf("%w: slab thickness %g must be positive", kernel.ErrInput, thickness)
	}
	if len(outline) < 3 {
		return nil, fmt.Errorf("%w: slab outline needs at least 3 points, got %d", kernel.ErrInput, len(outline))
	}

	pts := make([]v2.Vec, len(outline))
	minU, minV := math.Inf(1), math.Inf(1)
	maxU, maxV := math.Inf(-1), math.Inf(-1)
	for i, p := range outline {
		pts[i] = v2.Vec{X: p[0], Y: p[1]}
		minU, maxU = math.Min(minU, p[0]), math.Max(maxU, p[0])
		minV, maxV = math.Min(minV, p[1]), math.Max(maxV, p[1])
	}
	poly, err := sdf.Polygon2D(pts)
	if err != nil {
		return nil, fmt.Errorf("%w: slab outline: %v", kernel.ErrGeometry, err)
	}

	s := &slabSDF{
		poly: poly,
		o:    vec(f.Origin),
		u:    vec(f.U).Normalize(),
		v:    vec(f.V).Normalize(),
		n:    vec(f.N).Normalize(),
		half: thickness / 2,
	}

	// World bounds of the local box corners.
	bb := sdf.Box3{
		Min: v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max: v3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
	for _, cu := range []float64{minU, maxU} {
		for _, cv := range []float64{minV, maxV} {
			for _, cn := range []float64{-s.half, s.half} {
				c := s.o.Add(s.u.MulScalar(cu)).Add(s.v.MulScalar(cv)).Add(s.n.MulScalar(cn))
				bb.Min = v3.Vec{X: math.Min(bb.Min.X, c.X), Y: math.Min(bb.Min.Y, c.Y), Z: math.Min(bb.Min.Z, c.Z)}
				bb.Max = v3.Vec{X: math.Max(bb.Max.X, c.X), Y: math.Max(bb.Max.Y, c.Y), Z: math.Max(bb.Max.Z, c.Z)}
			}
		}
	}
	s.bb = bb
	return wrap(s), nil
}
