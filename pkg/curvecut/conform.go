package curvecut

import (
	"github.com/chazu/chopit/pkg/kernel/bvh"
)

// Conform moves every point onto the indexed surface, lifts it by offset
// along the surface normal and then smooths the result. The normal is
// turned toward the side of the surface the point came from, so a path
// drawn outside stays outside.
func Conform(index *bvh.Index, p Path, offset, factor float64, iterations int) Path {
	pts := make([][3]float64, len(p.Points))
	for i, pt := range p.Points {
		h := index.Nearest(pt)
		q, n := toVec(h.Point), toVec(h.Normal)
		if h.Distance > 1e-9 && toVec(pt).Sub(q).Dot(n) < 0 {
			n = n.MulScalar(-1)
		}
		pts[i] = fromVec(q.Add(n.MulScalar(offset)))
	}
	return Smooth(Path{Points: pts, Closed: p.Closed}, factor, iterations)
}

// ProjectStroke refines a joined path onto the surface: fine resample,
// conform, coarse resample and conform again. The second conform pulls
// back the deviation the coarse resample introduces.
func ProjectStroke(index *bvh.Index, p Path, params Params) Path {
	p = Resample(p, params.FineSpacing)
	p = Conform(index, p, params.Offset, params.SmoothFactor, params.SmoothIterations)
	p = Resample(p, params.CoarseSpacing)
	return Conform(index, p, params.Offset, params.SmoothFactor, params.SmoothIterations)
}
