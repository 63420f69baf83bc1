// Package kernel defines the abstract geometry kernel interface.
// Implementations provide solid modeling, boolean operations and the
// voxel-level services (separation, remeshing, measurement) that the
// decomposition pipelines are built on. The kernel abstraction allows
// swapping backends without changing the rest of the system.
package kernel

import (
	"fmt"
	"strings"
)

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation. Solids are
// immutable: every kernel operation returns a new Solid.
type Solid interface {
	// BoundingBox returns the world-space axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Axis names one of the three world axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Valid reports whether a is one of X, Y or Z.
func (a Axis) Valid() bool {
	return a >= AxisX && a <= AxisZ
}

// ParseAxis converts "x", "y" or "z" (any case) to an Axis.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("%w: axis %q, expected x, y, or z", ErrInput, s)
}

// Frame is an orthonormal frame in world space. U and V span a plane,
// N is its normal.
type Frame struct {
	Origin [3]float64
	U, V   [3]float64
	N      [3]float64
}

// World maps plane coordinates (u, v) to a world space point.
func (f Frame) World(uv [2]float64) [3]float64 {
	var p [3]float64
	for a := 0; a < 3; a++ {
		p[a] = f.Origin[a] + uv[0]*f.U[a] + uv[1]*f.V[a]
	}
	return p
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives. Box, Cylinder and Sphere are centered on the origin.
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid
	Sphere(radius float64) Solid
	// Slab extrudes a planar outline, given in frame (U, V) coordinates,
	// by thickness along the frame normal, centered on the frame plane.
	Slab(f Frame, outline [][2]float64, thickness float64) (Solid, error)
	// Sheet thickens the triangles of m by thickness, centered on the
	// surface. The surface does not need to be closed.
	Sheet(m *Mesh, thickness float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees
	Scale(s Solid, factor float64) Solid   // uniform, about the origin
	Offset(s Solid, distance float64) Solid

	// Resampling
	Remesh(s Solid, voxelSize float64) (Solid, error)
	Decimate(s Solid, ratio float64) (Solid, error)
	Smooth(s Solid, factor float64) (Solid, error)

	// Connectivity and measurement
	Separate(s Solid) ([]Solid, error)
	Volume(s Solid) float64
	Distance(s Solid, p [3]float64) float64

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
