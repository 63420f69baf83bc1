package sdfx

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// farAway is returned by the empty solid. It is finite so that sampled
// lattices never hold infinities.
const farAway = 1e12

// emptySDF is a solid with no interior.
type emptySDF struct{}

func (emptySDF) Evaluate(p v3.Vec) float64 { return farAway }
func (emptySDF) BoundingBox() sdf.Box3     { return sdf.Box3{} }

// boundedSDF overrides the bounding box of another SDF.
type boundedSDF struct {
	s  sdf.SDF3
	bb sdf.Box3
}

func (b *boundedSDF) Evaluate(p v3.Vec) float64 { return b.s.Evaluate(p) }
func (b *boundedSDF) BoundingBox() sdf.Box3     { return b.bb }

// offsetSDF moves the surface of an SDF along its normal by d.
type offsetSDF struct {
	s  sdf.SDF3
	d  float64
	bb sdf.Box3
}

func (o *offsetSDF) Evaluate(p v3.Vec) float64 { return o.s.Evaluate(p) - o.d }
func (o *offsetSDF) BoundingBox() sdf.Box3     { return o.bb }

// overlap returns the intersection of two boxes, and false when they
// do not overlap.
func overlap(a, b sdf.Box3) (sdf.Box3, bool) {
	r := sdf.Box3{
		Min: v3.Vec{X: math.Max(a.Min.X, b.Min.X), Y: math.Max(a.Min.Y, b.Min.Y), Z: math.Max(a.Min.Z, b.Min.Z)},
		Max: v3.Vec{X: math.Min(a.Max.X, b.Max.X), Y: math.Min(a.Max.Y, b.Max.Y), Z: math.Min(a.Max.Z, b.Max.Z)},
	}
	return r, r.Min.X < r.Max.X && r.Min.Y < r.Max.Y && r.Min.Z < r.Max.Z
}

// enlarge grows a box by d on every side. A negative d shrinks it; the
// result is false when the box collapses.
func enlarge(b sdf.Box3, d float64) (sdf.Box3, bool) {
	r := sdf.Box3{
		Min: v3.Vec{X: b.Min.X - d, Y: b.Min.Y - d, Z: b.Min.Z - d},
		Max: v3.Vec{X: b.Max.X + d, Y: b.Max.Y + d, Z: b.Max.Z + d},
	}
	return r, r.Min.X < r.Max.X && r.Min.Y < r.Max.Y && r.Min.Z < r.Max.Z
}

// boxEmpty reports whether a box has no extent on some axis.
func boxEmpty(b sdf.Box3) bool {
	return !(b.Min.X < b.Max.X && b.Min.Y < b.Max.Y && b.Min.Z < b.Max.Z)
}
