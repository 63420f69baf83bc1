// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
//
// Booleans and transforms compose signed distance functions directly.
// Separation, volume and resampling work on a regular lattice of samples
// whose resolution is set by Config.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/chopit/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// Config controls lattice and tessellation resolution.
type Config struct {
	// Resolution is the number of lattice cells along the longest
	// bounding box axis used by Separate, Volume, Smooth and Decimate.
	Resolution int `toml:"resolution"`
	// MeshCells controls marching cubes tessellation resolution.
	MeshCells int `toml:"mesh_cells"`
	// MaxCells caps the number of samples a single lattice may hold.
	MaxCells int `toml:"max_cells"`
}

// DefaultConfig returns the default kernel resolution.
func DefaultConfig() Config {
	return Config{
		Resolution: 96,
		MeshCells:  200,
		MaxCells:   1 << 24,
	}
}

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cfg Config
}

// New returns a new SdfxKernel with the default configuration.
func New() *SdfxKernel {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig returns a new SdfxKernel. Zero fields fall back to the
// defaults.
func NewWithConfig(cfg Config) *SdfxKernel {
	def := DefaultConfig()
	if cfg.Resolution <= 0 {
		cfg.Resolution = def.Resolution
	}
	if cfg.MeshCells <= 0 {
		cfg.MeshCells = def.MeshCells
	}
	if cfg.MaxCells <= 0 {
		cfg.MaxCells = def.MaxCells
	}
	return &SdfxKernel{cfg: cfg}
}

// Config returns the kernel configuration.
func (k *SdfxKernel) Config() Config {
	return k.cfg
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

func isEmpty(s kernel.Solid) bool {
	_, ok := unwrap(s).(emptySDF)
	return ok
}

// Box creates a box with the given dimensions centered on the origin.
// Non-positive dimensions give an empty solid.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	if !(x > 0 && y > 0 && z > 0) {
		return wrap(emptySDF{})
	}
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return wrap(emptySDF{})
	}
	return wrap(s)
}

// Cylinder creates a cylinder along Z with the given height and radius.
// The segments parameter is ignored since SDF represents smooth surfaces.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	if !(height > 0 && radius > 0) {
		return wrap(emptySDF{})
	}
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return wrap(emptySDF{})
	}
	return wrap(s)
}

// Sphere creates a sphere centered on the origin.
func (k *SdfxKernel) Sphere(radius float64) kernel.Solid {
	if !(radius > 0) {
		return wrap(emptySDF{})
	}
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return wrap(emptySDF{})
	}
	return wrap(s)
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	switch {
	case isEmpty(a):
		return b
	case isEmpty(b):
		return a
	}
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b. The result keeps the bounding
// box of a.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	switch {
	case isEmpty(a):
		return a
	case isEmpty(b):
		return a
	}
	sa := unwrap(a)
	return wrap(&boundedSDF{s: sdf.Difference3D(sa, unwrap(b)), bb: sa.BoundingBox()})
}

// Intersection returns the intersection of two solids. The result is
// bounded by the overlap of both bounding boxes; disjoint boxes give an
// empty solid.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	if isEmpty(a) || isEmpty(b) {
		return wrap(emptySDF{})
	}
	sa, sb := unwrap(a), unwrap(b)
	bb, ok := overlap(sa.BoundingBox(), sb.BoundingBox())
	if !ok {
		return wrap(emptySDF{})
	}
	return wrap(&boundedSDF{s: sdf.Intersect3D(sa, sb), bb: bb})
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	if isEmpty(s) {
		return s
	}
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	if isEmpty(s) {
		return s
	}
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Scale scales a solid uniformly about the origin. A non-positive factor
// gives an empty solid.
func (k *SdfxKernel) Scale(s kernel.Solid, factor float64) kernel.Solid {
	if isEmpty(s) || !(factor > 0) {
		return wrap(emptySDF{})
	}
	return wrap(sdf.ScaleUniform3D(unwrap(s), factor))
}

// Offset grows a solid by distance along its surface normal. A negative
// distance shrinks it.
func (k *SdfxKernel) Offset(s kernel.Solid, distance float64) kernel.Solid {
	if isEmpty(s) {
		return s
	}
	inner := unwrap(s)
	bb, ok := enlarge(inner.BoundingBox(), distance)
	if !ok {
		return wrap(emptySDF{})
	}
	return wrap(&offsetSDF{s: inner, d: distance, bb: bb})
}

// Distance returns the signed distance from p to the surface of s.
// Negative values are inside.
func (k *SdfxKernel) Distance(s kernel.Solid, p [3]float64) float64 {
	return unwrap(s).Evaluate(v3.Vec{X: p[0], Y: p[1], Z: p[2]})
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	if isEmpty(s) {
		return &kernel.Mesh{}, nil
	}
	sdf3 := unwrap(s)

	renderer := render.NewMarchingCubesUniform(k.cfg.MeshCells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}

// baseCell returns the lattice cell size for a bounding box at the
// configured resolution.
func (k *SdfxKernel) baseCell(bb sdf.Box3) (float64, error) {
	size := bb.Max.Sub(bb.Min)
	longest := math.Max(size.X, math.Max(size.Y, size.Z))
	if !(longest > 0) {
		return 0, fmt.Errorf("%w: solid has an empty bounding box", kernel.ErrGeometry)
	}
	return longest / float64(k.cfg.Resolution), nil
}

// lattice builds a grid over bb and enforces the cell budget.
func (k *SdfxKernel) lattice(bb sdf.Box3, cell float64, pad int) (grid, error) {
	g := newGrid(bb, cell, pad)
	if g.len() > k.cfg.MaxCells {
		return grid{}, fmt.Errorf("%w: lattice of %dx%dx%d cells exceeds the limit of %d",
			kernel.ErrGeometry, g.nx, g.ny, g.nz, k.cfg.MaxCells)
	}
	return g, nil
}
