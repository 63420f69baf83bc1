// Package bvh indexes the triangles of a mesh in an R-tree and answers
// nearest surface point queries against it.
package bvh

import (
	"fmt"
	"math"

	"github.com/chazu/chopit/pkg/kernel"
	"github.com/dhconnelly/rtreego"
)

// pad keeps flat triangle boxes from having zero extent.
const pad = 1e-9

type triangle struct {
	id      int
	a, b, c [3]float64
	normal  [3]float64
	bb      rtreego.Rect
}

func (t *triangle) Bounds() rtreego.Rect { return t.bb }

// Hit is the result of a nearest point query.
type Hit struct {
	Point    [3]float64 // closest point on the surface
	Normal   [3]float64 // unit face normal of the closest triangle
	Distance float64    // unsigned distance from the query point
	Triangle int        // index of the closest triangle in the mesh
}

// Index is an R-tree over the triangles of one mesh.
type Index struct {
	tree   *rtreego.Rtree
	tris   []*triangle
	lo, hi [3]float64
}

// New builds an index over the non-degenerate triangles of m.
func New(m *kernel.Mesh) (*Index, error) {
	if m == nil || m.IsEmpty() {
		return nil, fmt.Errorf("bvh: %w: empty mesh", kernel.ErrInput)
	}
	n := m.TriangleCount()
	tris := make([]*triangle, 0, n)
	objs := make([]rtreego.Spatial, 0, n)
	for i := 0; i < n; i++ {
		v := m.Triangle(i)
		nrm := cross(sub(v[1], v[0]), sub(v[2], v[0]))
		l := length(nrm)
		if l == 0 {
			continue
		}
		lo, hi := v[0], v[0]
		for _, p := range v[1:] {
			for j := 0; j < 3; j++ {
				lo[j] = math.Min(lo[j], p[j])
				hi[j] = math.Max(hi[j], p[j])
			}
		}
		for j := 0; j < 3; j++ {
			lo[j] -= pad
			hi[j] += pad
		}
		bb, err := rtreego.NewRectFromPoints(lo[:], hi[:])
		if err != nil {
			return nil, fmt.Errorf("bvh: triangle %d: %w", i, err)
		}
		t := &triangle{id: i, a: v[0], b: v[1], c: v[2], normal: scale(nrm, 1/l), bb: bb}
		tris = append(tris, t)
		objs = append(objs, t)
	}
	if len(tris) == 0 {
		return nil, fmt.Errorf("bvh: %w: mesh has only degenerate triangles", kernel.ErrInput)
	}
	ix := &Index{tree: rtreego.NewTree(3, 4, 16, objs...), tris: tris}
	ix.lo, ix.hi = tris[0].a, tris[0].a
	for _, t := range tris {
		for _, p := range [3][3]float64{t.a, t.b, t.c} {
			for j := 0; j < 3; j++ {
				ix.lo[j] = math.Min(ix.lo[j], p[j])
				ix.hi[j] = math.Max(ix.hi[j], p[j])
			}
		}
	}
	return ix, nil
}

// Len returns the number of indexed triangles.
func (ix *Index) Len() int { return len(ix.tris) }

// Bounds returns the box around the indexed triangles.
func (ix *Index) Bounds() (min, max [3]float64) { return ix.lo, ix.hi }

// Nearest returns the closest point on the indexed surface to p.
//
// The R-tree orders candidates by box distance, so the box-nearest
// triangle only bounds the answer. Every triangle whose box meets that
// bound is then checked exactly.
func (ix *Index) Nearest(p [3]float64) Hit {
	first := ix.tree.NearestNeighbor(rtreego.Point(p[:])).(*triangle)
	best := hitOn(first, p)

	query := rtreego.Point(p[:]).ToRect(best.Distance + 2*pad)
	for _, obj := range ix.tree.SearchIntersect(query) {
		t := obj.(*triangle)
		if t == first {
			continue
		}
		if h := hitOn(t, p); h.Distance < best.Distance {
			best = h
		}
	}
	return best
}

// Distance returns the unsigned distance from p to the indexed surface.
func (ix *Index) Distance(p [3]float64) float64 {
	return ix.Nearest(p).Distance
}

func hitOn(t *triangle, p [3]float64) Hit {
	q := closestOnTriangle(p, t.a, t.b, t.c)
	return Hit{
		Point:    q,
		Normal:   t.normal,
		Distance: length(sub(p, q)),
		Triangle: t.id,
	}
}
