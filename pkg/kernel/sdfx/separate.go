package sdfx

import (
	"math"

	"github.com/chazu/chopit/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// componentSDF is the part of a parent SDF owned by one connected
// component of its lattice. In cells next to the boundary of the owned
// region the parent is clipped by the distance to the shared cell faces,
// so the field stays continuous across the boundary.
type componentSDF struct {
	parent sdf.SDF3
	g      grid
	owner  []int32
	id     int32
	bb     sdf.Box3
}

func (c *componentSDF) Evaluate(p v3.Vec) float64 {
	d := c.parent.Evaluate(p)
	g := c.g
	idx := g.cellOf(p)
	owned := c.owner[idx] == c.id

	i, j, k := g.coords(idx)
	ctr := g.center(i, j, k)
	h := g.cell / 2
	// Distance from p to each face of its cell, paired with the neighbor
	// across that face.
	faces := [6]struct {
		ok   bool
		n    int
		dist float64
	}{
		{i > 0, idx - 1, p.X - (ctr.X - h)},
		{i < g.nx-1, idx + 1, (ctr.X + h) - p.X},
		{j > 0, idx - g.nx, p.Y - (ctr.Y - h)},
		{j < g.ny-1, idx + g.nx, (ctr.Y + h) - p.Y},
		{k > 0, idx - g.nx*g.ny, p.Z - (ctr.Z - h)},
		{k < g.nz-1, idx + g.nx*g.ny, (ctr.Z + h) - p.Z},
	}

	r := math.Inf(1)
	for _, f := range faces {
		if !f.ok || (c.owner[f.n] == c.id) == owned {
			continue
		}
		r = math.Min(r, math.Max(f.dist, 0))
	}
	if owned {
		if math.IsInf(r, 1) {
			return d
		}
		return math.Max(d, -r)
	}
	if math.IsInf(r, 1) {
		return math.Max(d, g.cell)
	}
	return math.Max(d, r)
}

func (c *componentSDF) BoundingBox() sdf.Box3 { return c.bb }

// labelComponents labels the face-connected regions of cells for which
// core is true with ids starting at 1. Other cells get 0.
func labelComponents(g grid, core []bool) ([]int32, int) {
	labels := make([]int32, g.len())
	var queue, buf []int
	next := int32(0)
	for start := range core {
		if !core[start] || labels[start] != 0 {
			continue
		}
		next++
		labels[start] = next
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			buf = g.neighbors(idx, buf)
			for _, n := range buf {
				if core[n] && labels[n] == 0 {
					labels[n] = next
					queue = append(queue, n)
				}
			}
		}
	}
	return labels, int(next)
}

// assignOwners grows labeled regions breadth first until every cell is
// owned by its nearest component.
func assignOwners(g grid, labels []int32) []int32 {
	owner := make([]int32, len(labels))
	copy(owner, labels)
	queue := make([]int, 0, len(labels))
	for idx, l := range labels {
		if l != 0 {
			queue = append(queue, idx)
		}
	}
	var buf []int
	for head := 0; head < len(queue); head++ {
		idx := queue[head]
		buf = g.neighbors(idx, buf)
		for _, n := range buf {
			if owner[n] == 0 {
				owner[n] = owner[idx]
				queue = append(queue, n)
			}
		}
	}
	return owner
}

// Separate splits a solid into its connected parts. Parts are found on a
// lattice at the configured resolution: cells deeper than half a cell
// inside are grouped by face adjacency, and every other cell goes to the
// nearest group. A solid with one part is returned as is; an empty solid
// gives no parts.
func (k *SdfxKernel) Separate(s kernel.Solid) ([]kernel.Solid, error) {
	if isEmpty(s) {
		return nil, nil
	}
	inner := unwrap(s)
	bb := inner.BoundingBox()
	cell, err := k.baseCell(bb)
	if err != nil {
		return nil, err
	}
	g, err := k.lattice(bb, cell, 1)
	if err != nil {
		return nil, err
	}
	d := sample(inner, g)

	core := make([]bool, len(d))
	found := false
	for idx, v := range d {
		if v < -cell/2 {
			core[idx], found = true, true
		}
	}
	if !found {
		// Thinner than a cell: fall back to any inside sample.
		for idx, v := range d {
			if v <= 0 {
				core[idx], found = true, true
			}
		}
	}
	if !found {
		return nil, nil
	}

	labels, n := labelComponents(g, core)
	if n == 1 {
		return []kernel.Solid{s}, nil
	}
	owner := assignOwners(g, labels)

	reach := cell * math.Sqrt(3) / 2
	parts := make([]kernel.Solid, 0, n)
	for id := int32(1); id <= int32(n); id++ {
		cb, ok := insideBounds(g, func(idx int) bool {
			return owner[idx] == id && d[idx] <= reach
		})
		if !ok {
			continue
		}
		cb, _ = enlarge(cb, cell)
		if clipped, ok := overlap(cb, bb); ok {
			cb = clipped
		}
		parts = append(parts, wrap(&componentSDF{
			parent: inner,
			g:      g,
			owner:  owner,
			id:     id,
			bb:     cb,
		}))
	}
	return parts, nil
}
