package curvecut

import (
	"fmt"
	"math"

	"github.com/chazu/chopit/pkg/kernel"
	"github.com/chazu/chopit/pkg/kernel/bvh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Wall is the thin cutting solid built from a refined path.
type Wall struct {
	Solid   kernel.Solid
	Frame   kernel.Frame   // plane the outline is drawn in
	Outline [][2]float64   // path in frame coordinates, counterclockwise when closed
	Rings   [][][2]float64 // border inset rings, outermost first
	Path    [][3]float64   // path points after merging doubles
	Closed  bool
}

// CurveToWall builds a wall params.ExtrudeOffset thick whose edge runs
// along the path.
//
// A closed path spans a loop wall. Border insets are stepped inward on
// the best-fit plane by params.BorderStep up to the border thickness,
// followed by the final params.FinalInset ring. The innermost ring is
// filled flat, and a ruled band joins it to the path, so the cut meets
// the surface where the path does.
//
// An open path, or a closed one without a plane, sweeps a curtain into
// the solid instead. The path is extended past both ends along its
// tangents and swept away from the surface of index far enough to cross
// the whole solid.
func CurveToWall(k kernel.Kernel, index *bvh.Index, p Path, params Params) (*Wall, error) {
	pts := mergeDoubles(p.Points, params.MergeDistance, p.Closed)
	if len(pts) < 2 {
		return nil, fmt.Errorf("curvecut: %w: wall needs 2 distinct points, got %d", kernel.ErrInput, len(pts))
	}
	if p.Closed && len(pts) >= 3 {
		if frame, ok := bestFitFrame(pts); ok {
			return loopWall(k, frame, pts, params)
		}
	}
	if index == nil {
		return nil, fmt.Errorf("curvecut: %w: open wall needs a surface index", kernel.ErrInput)
	}
	return curtainWall(k, index, pts, params)
}

func loopWall(k kernel.Kernel, frame kernel.Frame, pts [][3]float64, params Params) (*Wall, error) {
	outline := project(frame, pts)
	if signedArea(outline) < 0 {
		reverse(outline)
		reverse(pts)
	}

	var rings [][][2]float64
	if params.BorderStep > 0 {
		steps := int(math.Round(params.BorderThickness / params.BorderStep))
		for i := 1; i <= steps; i++ {
			if r, ok := inset(outline, float64(i)*params.BorderStep); ok {
				rings = append(rings, r)
			}
		}
	}
	if r, ok := inset(outline, params.BorderThickness+params.FinalInset); ok {
		rings = append(rings, r)
	}

	fill := outline
	if len(rings) > 0 {
		fill = rings[len(rings)-1]
	}
	solid, err := k.Slab(frame, fill, params.ExtrudeOffset)
	if err != nil {
		return nil, fmt.Errorf("curvecut: wall: %w", err)
	}
	if len(rings) > 0 {
		band := &kernel.Mesh{}
		n := len(pts)
		for i := range pts {
			j := (i + 1) % n
			ra, rb := frame.World(fill[i]), frame.World(fill[j])
			band.AddTriangle(pts[i], pts[j], ra)
			band.AddTriangle(ra, pts[j], rb)
		}
		sheet, err := k.Sheet(band, params.ExtrudeOffset)
		if err != nil {
			return nil, fmt.Errorf("curvecut: wall band: %w", err)
		}
		solid = k.Union(solid, sheet)
	}
	return &Wall{Solid: solid, Frame: frame, Outline: outline, Rings: rings, Path: pts, Closed: true}, nil
}

func curtainWall(k kernel.Kernel, index *bvh.Index, pts [][3]float64, params Params) (*Wall, error) {
	var in v3.Vec
	for _, pt := range pts {
		h := index.Nearest(pt)
		if d := toVec(pt).Sub(toVec(h.Point)); d.Length() > 1e-9 {
			in = in.Sub(d.Normalize())
		} else {
			in = in.Sub(toVec(h.Normal))
		}
	}
	if in.Length() < 1e-9 {
		return nil, fmt.Errorf("curvecut: %w: path has no inward side", kernel.ErrInput)
	}
	in = in.Normalize()

	first, last := toVec(pts[0]), toVec(pts[len(pts)-1])
	u := last.Sub(first)
	if u.Length() < 1e-9 {
		u = toVec(pts[1]).Sub(first)
	}
	n := u.Cross(in)
	if n.Length() < 1e-9*u.Length() {
		return nil, fmt.Errorf("curvecut: %w: path runs along its inward direction", kernel.ErrInput)
	}
	u, n = u.Normalize(), n.Normalize()
	var c v3.Vec
	for _, pt := range pts {
		c = c.Add(toVec(pt))
	}
	frame := kernel.Frame{
		Origin: fromVec(c.MulScalar(1 / float64(len(pts)))),
		U:      fromVec(u),
		V:      fromVec(n.Cross(u)),
		N:      fromVec(n),
	}

	lo, hi := index.Bounds()
	reach := toVec(hi).Sub(toVec(lo)).Length() + 1
	head := first.Sub(toVec(pts[1])).Normalize()
	tail := last.Sub(toVec(pts[len(pts)-2])).Normalize()
	top := make([]v3.Vec, 0, len(pts)+2)
	top = append(top, first.Add(head.MulScalar(reach)))
	for _, pt := range pts {
		top = append(top, toVec(pt))
	}
	top = append(top, last.Add(tail.MulScalar(reach)))

	curtain := &kernel.Mesh{}
	sweep := in.MulScalar(reach)
	for i := 0; i+1 < len(top); i++ {
		a, b := top[i], top[i+1]
		curtain.AddTriangle(fromVec(a), fromVec(b), fromVec(a.Add(sweep)))
		curtain.AddTriangle(fromVec(a.Add(sweep)), fromVec(b), fromVec(b.Add(sweep)))
	}
	solid, err := k.Sheet(curtain, params.ExtrudeOffset)
	if err != nil {
		return nil, fmt.Errorf("curvecut: wall curtain: %w", err)
	}
	return &Wall{Solid: solid, Frame: frame, Outline: project(frame, pts), Path: pts}, nil
}

// project maps pts onto the plane of f.
func project(f kernel.Frame, pts [][3]float64) [][2]float64 {
	o, u, v := toVec(f.Origin), toVec(f.U), toVec(f.V)
	out := make([][2]float64, len(pts))
	for i, pt := range pts {
		d := toVec(pt).Sub(o)
		out[i] = [2]float64{d.Dot(u), d.Dot(v)}
	}
	return out
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// mergeDoubles drops points closer than dist to the previously kept
// point, and for a closed path the last point when it is that close to
// the first.
func mergeDoubles(pts [][3]float64, dist float64, closed bool) [][3]float64 {
	var out [][3]float64
	for _, p := range pts {
		if len(out) > 0 && toVec(p).Sub(toVec(out[len(out)-1])).Length() < dist {
			continue
		}
		out = append(out, p)
	}
	if closed && len(out) > 1 && toVec(out[0]).Sub(toVec(out[len(out)-1])).Length() < dist {
		out = out[:len(out)-1]
	}
	return out
}

// bestFitFrame returns the plane through the centroid of pts with the
// Newell normal of the polygon they describe.
func bestFitFrame(pts [][3]float64) (kernel.Frame, bool) {
	var n, c v3.Vec
	var perim float64
	for i, p := range pts {
		a, b := toVec(p), toVec(pts[(i+1)%len(pts)])
		perim += b.Sub(a).Length()
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
		c = c.Add(a)
	}
	// Twice the enclosed area, against the perimeter squared.
	if n.Length() < 1e-6*perim*perim || perim == 0 {
		return kernel.Frame{}, false
	}
	n = n.Normalize()
	c = c.MulScalar(1 / float64(len(pts)))

	// Seed U from the world axis least aligned with the normal.
	seed := v3.Vec{X: 1}
	if math.Abs(n.Y) < math.Abs(n.X) && math.Abs(n.Y) <= math.Abs(n.Z) {
		seed = v3.Vec{Y: 1}
	} else if math.Abs(n.Z) < math.Abs(n.X) {
		seed = v3.Vec{Z: 1}
	}
	u := n.Cross(seed).Normalize()
	v := n.Cross(u)
	return kernel.Frame{Origin: fromVec(c), U: fromVec(u), V: fromVec(v), N: fromVec(n)}, true
}

func signedArea(poly [][2]float64) float64 {
	var a float64
	for i, p := range poly {
		q := poly[(i+1)%len(poly)]
		a += p[0]*q[1] - q[0]*p[1]
	}
	return a / 2
}

// inset offsets a counterclockwise polygon inward by d using mitered
// vertices. It reports false when the polygon collapses.
func inset(poly [][2]float64, d float64) ([][2]float64, bool) {
	n := len(poly)
	normal := func(a, b [2]float64) [2]float64 {
		dx, dy := b[0]-a[0], b[1]-a[1]
		l := math.Hypot(dx, dy)
		if l == 0 {
			return [2]float64{}
		}
		return [2]float64{-dy / l, dx / l}
	}
	out := make([][2]float64, n)
	for i := range poly {
		n1 := normal(poly[(i-1+n)%n], poly[i])
		n2 := normal(poly[i], poly[(i+1)%n])
		bx, by := n1[0]+n2[0], n1[1]+n2[1]
		bl := math.Hypot(bx, by)
		if bl < 1e-9 {
			bx, by, bl = n1[0], n1[1], 1
		}
		bx, by = bx/bl, by/bl
		// Miter length, capped at sharp corners.
		m := 4.0
		if cos := bx*n1[0] + by*n1[1]; cos > 0.25 {
			m = 1 / cos
		}
		out[i] = [2]float64{poly[i][0] + bx*d*m, poly[i][1] + by*d*m}
	}
	area := signedArea(out)
	if area <= 0 || area >= signedArea(poly) {
		return nil, false
	}
	return out, true
}
