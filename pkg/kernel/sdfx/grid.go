package sdfx

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// grid is a regular lattice of cubic cells centered on a box. Samples
// are taken at cell centers.
type grid struct {
	origin     v3.Vec // center of cell (0,0,0)
	cell       float64
	nx, ny, nz int
}

// newGrid covers bb with cells of the given size plus pad cells on every
// side.
func newGrid(bb sdf.Box3, cell float64, pad int) grid {
	count := func(lo, hi float64) int {
		n := int(math.Ceil((hi-lo)/cell)) + 2*pad
		if n < 2 {
			n = 2
		}
		return n
	}
	g := grid{
		cell: cell,
		nx:   count(bb.Min.X, bb.Max.X),
		ny:   count(bb.Min.Y, bb.Max.Y),
		nz:   count(bb.Min.Z, bb.Max.Z),
	}
	center := bb.Min.Add(bb.Max).MulScalar(0.5)
	g.origin = v3.Vec{
		X: center.X - float64(g.nx)*cell/2 + cell/2,
		Y: center.Y - float64(g.ny)*cell/2 + cell/2,
		Z: center.Z - float64(g.nz)*cell/2 + cell/2,
	}
	return g
}

func (g grid) len() int { return g.nx * g.ny * g.nz }

func (g grid) index(i, j, k int) int { return (k*g.ny+j)*g.nx + i }

func (g grid) coords(idx int) (i, j, k int) {
	i = idx % g.nx
	j = (idx / g.nx) % g.ny
	k = idx / (g.nx * g.ny)
	return i, j, k
}

func (g grid) center(i, j, k int) v3.Vec {
	return v3.Vec{
		X: g.origin.X + float64(i)*g.cell,
		Y: g.origin.Y + float64(j)*g.cell,
		Z: g.origin.Z + float64(k)*g.cell,
	}
}

// cellBox returns the extent of cell idx.
func (g grid) cellBox(idx int) sdf.Box3 {
	c := g.center(g.coords(idx))
	h := g.cell / 2
	return sdf.Box3{
		Min: v3.Vec{X: c.X - h, Y: c.Y - h, Z: c.Z - h},
		Max: v3.Vec{X: c.X + h, Y: c.Y + h, Z: c.Z + h},
	}
}

// cellOf returns the index of the cell containing p, clamped to the
// lattice.
func (g grid) cellOf(p v3.Vec) int {
	clamp := func(f float64, n int) int {
		i := int(math.Floor(f + 0.5))
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	}
	i := clamp((p.X-g.origin.X)/g.cell, g.nx)
	j := clamp((p.Y-g.origin.Y)/g.cell, g.ny)
	k := clamp((p.Z-g.origin.Z)/g.cell, g.nz)
	return g.index(i, j, k)
}

// neighbors appends the face-adjacent cells of idx to buf.
func (g grid) neighbors(idx int, buf []int) []int {
	i, j, k := g.coords(idx)
	buf = buf[:0]
	if i > 0 {
		buf = append(buf, idx-1)
	}
	if i < g.nx-1 {
		buf = append(buf, idx+1)
	}
	if j > 0 {
		buf = append(buf, idx-g.nx)
	}
	if j < g.ny-1 {
		buf = append(buf, idx+g.nx)
	}
	if k > 0 {
		buf = append(buf, idx-g.nx*g.ny)
	}
	if k < g.nz-1 {
		buf = append(buf, idx+g.nx*g.ny)
	}
	return buf
}

// sample evaluates s at every cell center.
func sample(s sdf.SDF3, g grid) []float64 {
	d := make([]float64, g.len())
	for k := 0; k < g.nz; k++ {
		for j := 0; j < g.ny; j++ {
			for i := 0; i < g.nx; i++ {
				d[g.index(i, j, k)] = s.Evaluate(g.center(i, j, k))
			}
		}
	}
	return d
}

// occupancy estimates the inside fraction of a cell from the distance at
// its center.
func occupancy(d, cell float64) float64 {
	f := 0.5 - d/cell
	return math.Max(0, math.Min(1, f))
}

// insideBounds returns the union of the boxes of cells for which keep
// returns true, and false when there are none.
func insideBounds(g grid, keep func(idx int) bool) (sdf.Box3, bool) {
	var bb sdf.Box3
	found := false
	for idx := 0; idx < g.len(); idx++ {
		if !keep(idx) {
			continue
		}
		cb := g.cellBox(idx)
		if !found {
			bb, found = cb, true
			continue
		}
		bb.Min = v3.Vec{X: math.Min(bb.Min.X, cb.Min.X), Y: math.Min(bb.Min.Y, cb.Min.Y), Z: math.Min(bb.Min.Z, cb.Min.Z)}
		bb.Max = v3.Vec{X: math.Max(bb.Max.X, cb.Max.X), Y: math.Max(bb.Max.Y, cb.Max.Y), Z: math.Max(bb.Max.Z, cb.Max.Z)}
	}
	return bb, found
}
