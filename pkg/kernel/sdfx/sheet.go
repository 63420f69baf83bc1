package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/chopit/pkg/kernel"
	"github.com/chazu/chopit/pkg/kernel/bvh"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// sheetSDF is an open triangle surface thickened to 2*half. Distances
// come from an R-tree over the triangles.
type sheetSDF struct {
	ix   *bvh.Index
	half float64
	bb   sdf.Box3
}

func (s *sheetSDF) Evaluate(p v3.Vec) float64 {
	// Outside the padded bounds the box distance is a lower bound and
	// saves the tree query.
	if d := boxDistance(s.bb, p); d > 0 {
		return d
	}
	return s.ix.Distance([3]float64{p.X, p.Y, p.Z}) - s.half
}

func (s *sheetSDF) BoundingBox() sdf.Box3 { return s.bb }

// Sheet thickens the triangles of m by thickness, centered on the surface.
// Degenerate triangles are ignored.
func (k *SdfxKernel) Sheet(m *kernel.Mesh, thickness float64) (kernel.Solid, error) {
	if !(thickness > 0) {
		return nil, fmt.Errorf("%w: sheet thickness %g must be positive", kernel.ErrInput, thickness)
	}
	ix, err := bvh.New(m)
	if err != nil {
		return nil, fmt.Errorf("sheet: %w", err)
	}
	lo, hi := m.Bounds()
	half := thickness / 2
	return wrap(&sheetSDF{
		ix:   ix,
		half: half,
		bb:   sdf.Box3{Min: vec(lo).SubScalar(half), Max: vec(hi).AddScalar(half)},
	}), nil
}

// boxDistance returns the distance from p to bb, or 0 inside it.
func boxDistance(bb sdf.Box3, p v3.Vec) float64 {
	dx := math.Max(0, math.Max(bb.Min.X-p.X, p.X-bb.Max.X))
	dy := math.Max(0, math.Max(bb.Min.Y-p.Y, p.Y-bb.Max.Y))
	dz := math.Max(0, math.Max(bb.Min.Z-p.Z, p.Z-bb.Max.Z))
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
