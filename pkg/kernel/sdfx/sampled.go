package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/chopit/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// sampledSDF is a distance field stored on a lattice and reconstructed
// by trilinear interpolation. Outside the lattice the distance to the
// lattice is added to the clamped value.
type sampledSDF struct {
	g  grid
	d  []float64
	bb sdf.Box3
}

func newSampled(g grid, d []float64) (*sampledSDF, bool) {
	half := g.cell * math.Sqrt(3) / 2
	bb, ok := insideBounds(g, func(idx int) bool { return d[idx] <= half })
	if !ok {
		return nil, false
	}
	if lat, ok := overlap(bb, g.bounds()); ok {
		bb = lat
	}
	return &sampledSDF{g: g, d: d, bb: bb}, true
}

// bounds returns the outer box of the lattice.
func (g grid) bounds() sdf.Box3 {
	h := g.cell / 2
	last := g.center(g.nx-1, g.ny-1, g.nz-1)
	return sdf.Box3{
		Min: v3.Vec{X: g.origin.X - h, Y: g.origin.Y - h, Z: g.origin.Z - h},
		Max: v3.Vec{X: last.X + h, Y: last.Y + h, Z: last.Z + h},
	}
}

func (s *sampledSDF) BoundingBox() sdf.Box3 { return s.bb }

func (s *sampledSDF) Evaluate(p v3.Vec) float64 {
	g := s.g
	axis := func(v, o float64, n int) (int, float64, float64) {
		f := (v - o) / g.cell
		var extra float64
		if f < 0 {
			extra, f = -f*g.cell, 0
		} else if f > float64(n-1) {
			extra, f = (f-float64(n-1))*g.cell, float64(n-1)
		}
		i := int(math.Floor(f))
		if i >= n-1 {
			i = n - 2
		}
		return i, f - float64(i), extra
	}
	i, tx, ex := axis(p.X, g.origin.X, g.nx)
	j, ty, ey := axis(p.Y, g.origin.Y, g.ny)
	k, tz, ez := axis(p.Z, g.origin.Z, g.nz)

	at := func(di, dj, dk int) float64 { return s.d[g.index(i+di, j+dj, k+dk)] }
	lerp := func(a, b, t float64) float64 { return a + (b-a)*t }

	c00 := lerp(at(0, 0, 0), at(1, 0, 0), tx)
	c10 := lerp(at(0, 1, 0), at(1, 1, 0), tx)
	c01 := lerp(at(0, 0, 1), at(1, 0, 1), tx)
	c11 := lerp(at(0, 1, 1), at(1, 1, 1), tx)
	c0 := lerp(c00, c10, ty)
	c1 := lerp(c01, c11, ty)
	d := lerp(c0, c1, tz)

	if ex != 0 || ey != 0 || ez != 0 {
		d += math.Sqrt(ex*ex + ey*ey + ez*ez)
	}
	return d
}

// resample stores s on a lattice with the given cell size.
func (k *SdfxKernel) resample(s kernel.Solid, cell float64) (kernel.Solid, error) {
	if isEmpty(s) {
		return nil, fmt.Errorf("%w: cannot resample an empty solid", kernel.ErrGeometry)
	}
	inner := unwrap(s)
	bb := inner.BoundingBox()
	if boxEmpty(bb) {
		return nil, fmt.Errorf("%w: cannot resample an empty solid", kernel.ErrGeometry)
	}
	g, err := k.lattice(bb, cell, 2)
	if err != nil {
		return nil, err
	}
	sampled, ok := newSampled(g, sample(inner, g))
	if !ok {
		return nil, fmt.Errorf("%w: resampled solid has no interior at cell size %g", kernel.ErrGeometry, cell)
	}
	return wrap(sampled), nil
}

// Remesh rebuilds a solid on a lattice with cells of voxelSize.
func (k *SdfxKernel) Remesh(s kernel.Solid, voxelSize float64) (kernel.Solid, error) {
	if !(voxelSize > 0) {
		return nil, fmt.Errorf("%w: voxel size %g must be positive", kernel.ErrInput, voxelSize)
	}
	return k.resample(s, voxelSize)
}

// Decimate rebuilds a solid on a coarser lattice so that its surface
// carries roughly ratio times the faces of the base resolution.
func (k *SdfxKernel) Decimate(s kernel.Solid, ratio float64) (kernel.Solid, error) {
	if !(ratio > 0 && ratio <= 1) {
		return nil, fmt.Errorf("%w: decimate ratio %g must be in (0, 1]", kernel.ErrInput, ratio)
	}
	if isEmpty(s) {
		return nil, fmt.Errorf("%w: cannot decimate an empty solid", kernel.ErrGeometry)
	}
	cell, err := k.baseCell(unwrap(s).BoundingBox())
	if err != nil {
		return nil, err
	}
	// Surface face count scales with the inverse square of the cell size.
	return k.resample(s, cell/math.Sqrt(ratio))
}

// Smooth applies one Laplacian pass to the distance field of s, blending
// every sample with the mean of its face neighbors by factor. Solids that
// are not lattice-backed are resampled at the base resolution first.
func (k *SdfxKernel) Smooth(s kernel.Solid, factor float64) (kernel.Solid, error) {
	if !(factor >= 0 && factor <= 1) {
		return nil, fmt.Errorf("%w: smoothing factor %g must be in [0, 1]", kernel.ErrInput, factor)
	}
	src, ok := unwrap(s).(*sampledSDF)
	if !ok {
		if isEmpty(s) {
			return nil, fmt.Errorf("%w: cannot smooth an empty solid", kernel.ErrGeometry)
		}
		cell, err := k.baseCell(unwrap(s).BoundingBox())
		if err != nil {
			return nil, err
		}
		r, err := k.resample(s, cell)
		if err != nil {
			return nil, err
		}
		src = unwrap(r).(*sampledSDF)
	}

	g := src.g
	out := make([]float64, len(src.d))
	buf := make([]int, 0, 6)
	for idx := range src.d {
		buf = g.neighbors(idx, buf)
		var sum float64
		for _, n := range buf {
			sum += src.d[n]
		}
		mean := sum / float64(len(buf))
		out[idx] = (1-factor)*src.d[idx] + factor*mean
	}
	sampled, ok := newSampled(g, out)
	if !ok {
		return nil, fmt.Errorf("%w: smoothing removed the whole solid", kernel.ErrGeometry)
	}
	return wrap(sampled), nil
}

// Volume estimates the enclosed volume on a lattice at the base
// resolution, using the center distance to estimate partial cells.
func (k *SdfxKernel) Volume(s kernel.Solid) float64 {
	if isEmpty(s) {
		return 0
	}
	inner := unwrap(s)
	bb := inner.BoundingBox()
	cell, err := k.baseCell(bb)
	if err != nil {
		return 0
	}
	g := newGrid(bb, cell, 1)
	cellVolume := cell * cell * cell
	var sum float64
	for _, d := range sample(inner, g) {
		sum += occupancy(d, cell)
	}
	return sum * cellVolume
}
