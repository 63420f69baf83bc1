package curvecut

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Path is a polyline, optionally closed back onto its first point.
type Path struct {
	Points [][3]float64
	Closed bool
}

func toVec(p [3]float64) v3.Vec   { return v3.Vec{X: p[0], Y: p[1], Z: p[2]} }
func fromVec(v v3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// Join concatenates the points of strokes in order into one open path.
func Join(strokes []Stroke) Path {
	var pts [][3]float64
	for _, s := range strokes {
		pts = append(pts, s.Points...)
	}
	return Path{Points: pts}
}

// Close returns the path closed into a loop. A trailing point that
// repeats the first one is dropped.
func (p Path) Close() Path {
	pts := p.Points
	if n := len(pts); n > 1 && toVec(pts[0]).Sub(toVec(pts[n-1])).Length() < 1e-9 {
		pts = pts[:n-1]
	}
	return Path{Points: append([][3]float64(nil), pts...), Closed: true}
}

// segments returns the number of polyline segments.
func (p Path) segments() int {
	n := len(p.Points)
	switch {
	case n < 2:
		return 0
	case p.Closed:
		return n
	default:
		return n - 1
	}
}

// Length returns the arc length of the path.
func (p Path) Length() float64 {
	var l float64
	for i := 0; i < p.segments(); i++ {
		l += toVec(p.Points[(i+1)%len(p.Points)]).Sub(toVec(p.Points[i])).Length()
	}
	return l
}

// Resample places points along the path at the given arc-length spacing.
// An open path keeps both end points; a closed path is divided into equal
// steps close to spacing.
func Resample(p Path, spacing float64) Path {
	total := p.Length()
	if !(spacing > 0) || total == 0 {
		return Path{Points: append([][3]float64(nil), p.Points...), Closed: p.Closed}
	}

	var n int
	if p.Closed {
		n = int(math.Max(3, math.Round(total/spacing)))
	} else {
		n = int(math.Max(1, math.Round(total/spacing)))
	}
	step := total / float64(n)

	out := make([][3]float64, 0, n+1)
	seg, segStart := 0, 0.0
	segLen := func(i int) float64 {
		return toVec(p.Points[(i+1)%len(p.Points)]).Sub(toVec(p.Points[i])).Length()
	}
	count := n
	if !p.Closed {
		count = n + 1
	}
	for i := 0; i < count; i++ {
		s := float64(i) * step
		for seg < p.segments()-1 && segStart+segLen(seg) < s {
			segStart += segLen(seg)
			seg++
		}
		a := toVec(p.Points[seg])
		b := toVec(p.Points[(seg+1)%len(p.Points)])
		l := segLen(seg)
		t := 0.0
		if l > 0 {
			t = math.Max(0, math.Min(1, (s-segStart)/l))
		}
		out = append(out, fromVec(a.Add(b.Sub(a).MulScalar(t))))
	}
	return Path{Points: out, Closed: p.Closed}
}

// Smooth runs Laplacian passes over the path, moving each point toward
// the midpoint of its neighbors by factor. Open path end points stay put.
func Smooth(p Path, factor float64, iterations int) Path {
	pts := append([][3]float64(nil), p.Points...)
	n := len(pts)
	if n < 3 {
		return Path{Points: pts, Closed: p.Closed}
	}
	next := make([][3]float64, n)
	for it := 0; it < iterations; it++ {
		for i := range pts {
			if !p.Closed && (i == 0 || i == n-1) {
				next[i] = pts[i]
				continue
			}
			prev := toVec(pts[(i-1+n)%n])
			succ := toVec(pts[(i+1)%n])
			cur := toVec(pts[i])
			mid := prev.Add(succ).MulScalar(0.5)
			next[i] = fromVec(cur.Add(mid.Sub(cur).MulScalar(factor)))
		}
		pts, next = next, pts
	}
	return Path{Points: pts, Closed: p.Closed}
}
