package sdfx

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/chopit/pkg/kernel"
)

// testKernel keeps lattices small so tests stay fast.
func testKernel() *SdfxKernel {
	return NewWithConfig(Config{Resolution: 48, MeshCells: 64})
}

func TestBox(t *testing.T) {
	k := testKernel()
	box := k.Box(100, 50, 25)
	mesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	triCount := mesh.TriangleCount()
	if triCount == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != triCount*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), triCount*3)
	}
}

func TestEmptyPrimitives(t *testing.T) {
	k := testKernel()
	tests := []struct {
		name  string
		solid kernel.Solid
	}{
		{"zero box", k.Box(0, 10, 10)},
		{"negative sphere", k.Sphere(-1)},
		{"flat cylinder", k.Cylinder(0, 5, 32)},
		{"zero scale", k.Scale(k.Box(10, 10, 10), 0)},
		{"collapsed offset", k.Offset(k.Box(10, 10, 10), -6)},
		{"disjoint intersection", k.Intersection(k.Box(10, 10, 10), k.Translate(k.Box(10, 10, 10), 50, 0, 0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if v := k.Volume(tt.solid); v != 0 {
				t.Errorf("volume = %f, expected 0", v)
			}
			mesh, err := k.ToMesh(tt.solid)
			if err != nil {
				t.Fatalf("ToMesh failed: %v", err)
			}
			if !mesh.IsEmpty() {
				t.Errorf("expected empty mesh, got %d triangles", mesh.TriangleCount())
			}
		})
	}
}

func TestDifference(t *testing.T) {
	k := testKernel()

	box := k.Box(100, 100, 100)
	cyl := k.Cylinder(120, 20, 32)
	diff := k.Difference(box, cyl)

	min, max := diff.BoundingBox()
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]+50) > 0.01 || math.Abs(max[i]-50) > 0.01 {
			t.Errorf("axis %d bounds = [%f, %f], expected the bounds of the box", i, min[i], max[i])
		}
	}

	want := 100*100*100 - math.Pi*20*20*100
	got := k.Volume(diff)
	if math.Abs(got-want)/want > 0.03 {
		t.Errorf("volume = %f, expected ~%f", got, want)
	}
	if d := k.Distance(diff, [3]float64{0, 0, 0}); d <= 0 {
		t.Errorf("distance at the hole axis = %f, expected outside", d)
	}
}

func TestUnion(t *testing.T) {
	k := testKernel()
	box1 := k.Box(50, 50, 50)
	box2 := k.Translate(k.Box(50, 50, 50), 30, 0, 0)
	u := k.Union(box1, box2)

	want := 80.0 * 50 * 50
	if got := k.Volume(u); math.Abs(got-want)/want > 0.02 {
		t.Errorf("union volume = %f, expected ~%f", got, want)
	}
	if e := k.Union(k.Box(0, 0, 0), box1); e != box1 {
		t.Error("union with an empty solid should return the other operand")
	}
}

func TestTranslate(t *testing.T) {
	k := testKernel()
	box := k.Box(10, 10, 10)
	translated := k.Translate(box, 100, 200, 300)

	min, max := translated.BoundingBox()

	const tol = 0.5
	expectMin := [3]float64{95, 195, 295}
	expectMax := [3]float64{105, 205, 305}

	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], expectMax[i])
		}
	}
}

func TestBoundingBox(t *testing.T) {
	k := testKernel()
	box := k.Box(100, 50, 25)
	min, max := box.BoundingBox()

	const tol = 0.01
	expectMin := [3]float64{-50, -25, -12.5}
	expectMax := [3]float64{50, 25, 12.5}

	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], expectMax[i])
		}
	}
}

func TestIntersection(t *testing.T) {
	k := testKernel()
	box1 := k.Box(100, 100, 100)
	box2 := k.Translate(k.Box(100, 100, 100), 50, 0, 0)
	inter := k.Intersection(box1, box2)

	min, max := inter.BoundingBox()
	if math.Abs(min[0]-0) > 0.01 || math.Abs(max[0]-50) > 0.01 {
		t.Errorf("X bounds = [%f, %f], expected [0, 50]", min[0], max[0])
	}
	want := 50.0 * 100 * 100
	if got := k.Volume(inter); math.Abs(got-want)/want > 0.02 {
		t.Errorf("intersection volume = %f, expected ~%f", got, want)
	}
}

func TestRotate(t *testing.T) {
	k := testKernel()
	box := k.Box(100, 10, 10)

	// A long box along X rotated 90 degrees around Z extends along Y.
	rotated := k.Rotate(box, 0, 0, 90)
	min, max := rotated.BoundingBox()

	xExtent := max[0] - min[0]
	yExtent := max[1] - min[1]

	const tol = 1.0
	if math.Abs(xExtent-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", xExtent)
	}
	if math.Abs(yExtent-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", yExtent)
	}
}

func TestScale(t *testing.T) {
	k := testKernel()
	s := k.Scale(k.Box(10, 20, 30), 2)
	min, max := s.BoundingBox()
	want := [3]float64{20, 40, 60}
	for i := 0; i < 3; i++ {
		if math.Abs(max[i]-min[i]-want[i]) > 0.01 {
			t.Errorf("axis %d extent = %f, expected %f", i, max[i]-min[i], want[i])
		}
	}
}

func TestOffset(t *testing.T) {
	k := testKernel()
	grown := k.Offset(k.Box(10, 10, 10), 1)
	min, max := grown.BoundingBox()
	if math.Abs(min[0]+6) > 0.01 || math.Abs(max[0]-6) > 0.01 {
		t.Errorf("X bounds = [%f, %f], expected [-6, 6]", min[0], max[0])
	}
	if d := k.Distance(grown, [3]float64{6, 0, 0}); math.Abs(d) > 1e-9 {
		t.Errorf("distance on the offset surface = %f, expected 0", d)
	}

	shrunk := k.Offset(k.Box(10, 10, 10), -2)
	want := 6.0 * 6 * 6
	if got := k.Volume(shrunk); math.Abs(got-want)/want > 0.05 {
		t.Errorf("shrunk volume = %f, expected ~%f", got, want)
	}
}

func TestSlab(t *testing.T) {
	k := testKernel()
	frame := kernel.Frame{
		Origin: [3]float64{0, 0, 5},
		U:      [3]float64{1, 0, 0},
		V:      [3]float64{0, 1, 0},
		N:      [3]float64{0, 0, 1},
	}
	square := [][2]float64{{-5, -5}, {5, -5}, {5, 5}, {-5, 5}}

	slab, err := k.Slab(frame, square, 2)
	if err != nil {
		t.Fatalf("Slab failed: %v", err)
	}
	min, max := slab.BoundingBox()
	if math.Abs(min[2]-4) > 0.01 || math.Abs(max[2]-6) > 0.01 {
		t.Errorf("Z bounds = [%f, %f], expected [4, 6]", min[2], max[2])
	}
	if d := k.Distance(slab, [3]float64{0, 0, 5}); math.Abs(d+1) > 1e-6 {
		t.Errorf("distance at the center = %f, expected -1", d)
	}
	if d := k.Distance(slab, [3]float64{0, 0, 8}); math.Abs(d-2) > 1e-6 {
		t.Errorf("distance above = %f, expected 2", d)
	}

	if _, err := k.Slab(frame, square, 0); !errors.Is(err, kernel.ErrInput) {
		t.Errorf("zero thickness: got %v, expected ErrInput", err)
	}
	if _, err := k.Slab(frame, square[:2], 1); !errors.Is(err, kernel.ErrInput) {
		t.Errorf("two points: got %v, expected ErrInput", err)
	}
}

func TestSheet(t *testing.T) {
	k := testKernel()

	flat := &kernel.Mesh{}
	flat.AddTriangle([3]float64{-5, -5, 2}, [3]float64{5, -5, 2}, [3]float64{5, 5, 2})
	flat.AddTriangle([3]float64{-5, -5, 2}, [3]float64{5, 5, 2}, [3]float64{-5, 5, 2})
	sheet, err := k.Sheet(flat, 0.5)
	if err != nil {
		t.Fatalf("Sheet failed: %v", err)
	}
	min, max := sheet.BoundingBox()
	if math.Abs(min[2]-1.75) > 1e-6 || math.Abs(max[2]-2.25) > 1e-6 {
		t.Errorf("Z bounds = [%f, %f], expected [1.75, 2.25]", min[2], max[2])
	}
	for _, tt := range []struct {
		p    [3]float64
		want float64
	}{
		{[3]float64{0, 0, 2}, -0.25},
		{[3]float64{0, 0, 5}, 2.75},
		{[3]float64{8, 0, 2}, 2.75},
	} {
		if d := k.Distance(sheet, tt.p); math.Abs(d-tt.want) > 1e-5 {
			t.Errorf("distance at %v = %f, expected %f", tt.p, d, tt.want)
		}
	}

	if _, err := k.Sheet(flat, 0); !errors.Is(err, kernel.ErrInput) {
		t.Errorf("zero thickness: got %v, expected ErrInput", err)
	}
	if _, err := k.Sheet(&kernel.Mesh{}, 1); !errors.Is(err, kernel.ErrInput) {
		t.Errorf("empty mesh: got %v, expected ErrInput", err)
	}
}

func TestSheetCutsAlongSurface(t *testing.T) {
	k := testKernel()

	// A V-shaped sheet through a box: z = |x|/2 - 3.
	v := &kernel.Mesh{}
	quad := func(a, b, c, d [3]float64) {
		v.AddTriangle(a, b, c)
		v.AddTriangle(a, c, d)
	}
	quad([3]float64{-15, -15, 4.5}, [3]float64{0, -15, -3}, [3]float64{0, 15, -3}, [3]float64{-15, 15, 4.5})
	quad([3]float64{0, -15, -3}, [3]float64{15, -15, 4.5}, [3]float64{15, 15, 4.5}, [3]float64{0, 15, -3})
	sheet, err := k.Sheet(v, 0.01)
	if err != nil {
		t.Fatalf("Sheet failed: %v", err)
	}

	parts, err := k.Separate(k.Difference(k.Box(20, 20, 20), sheet))
	if err != nil {
		t.Fatalf("Separate failed: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	for _, p := range parts {
		m, err := k.ToMesh(p)
		if err != nil {
			t.Fatalf("ToMesh failed: %v", err)
		}
		min, max := m.Bounds()
		if k.Distance(p, [3]float64{0, 0, 5}) < 0 {
			if min[2] < -3.5 || min[2] > -2 {
				t.Errorf("upper part min z = %f, expected ~-3 at the fold", min[2])
			}
		} else if max[2] < 1 || max[2] > 2.5 {
			t.Errorf("lower part max z = %f, expected ~2 at the box sides", max[2])
		}
	}
}

func TestVolume(t *testing.T) {
	k := testKernel()
	tests := []struct {
		name  string
		solid kernel.Solid
		want  float64
		tol   float64
	}{
		{"box", k.Box(20, 10, 10), 2000, 0.01},
		{"sphere", k.Sphere(10), 4.0 / 3.0 * math.Pi * 1000, 0.02},
		{"cylinder", k.Cylinder(20, 5, 32), math.Pi * 25 * 20, 0.03},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := k.Volume(tt.solid)
			if math.Abs(got-tt.want)/tt.want > tt.tol {
				t.Errorf("volume = %f, expected %f within %.0f%%", got, tt.want, tt.tol*100)
			}
		})
	}
}

func TestSeparate(t *testing.T) {
	k := testKernel()

	t.Run("single part", func(t *testing.T) {
		box := k.Box(10, 10, 10)
		parts, err := k.Separate(box)
		if err != nil {
			t.Fatalf("Separate failed: %v", err)
		}
		if len(parts) != 1 || parts[0] != box {
			t.Fatalf("expected the input back, got %d parts", len(parts))
		}
	})

	t.Run("empty", func(t *testing.T) {
		parts, err := k.Separate(k.Box(0, 0, 0))
		if err != nil {
			t.Fatalf("Separate failed: %v", err)
		}
		if len(parts) != 0 {
			t.Fatalf("expected no parts, got %d", len(parts))
		}
	})

	t.Run("disjoint boxes", func(t *testing.T) {
		a := k.Translate(k.Box(10, 10, 10), -20, 0, 0)
		b := k.Translate(k.Box(10, 10, 10), 20, 0, 0)
		parts, err := k.Separate(k.Union(a, b))
		if err != nil {
			t.Fatalf("Separate failed: %v", err)
		}
		if len(parts) != 2 {
			t.Fatalf("expected 2 parts, got %d", len(parts))
		}
		for i, p := range parts {
			if v := k.Volume(p); math.Abs(v-1000)/1000 > 0.05 {
				t.Errorf("part %d volume = %f, expected ~1000", i, v)
			}
			min, max := p.BoundingBox()
			if max[0]-min[0] > 14 {
				t.Errorf("part %d X extent = %f, expected a single box", i, max[0]-min[0])
			}
		}
	})

	t.Run("union of parts reproduces the input", func(t *testing.T) {
		a := k.Translate(k.Box(10, 10, 10), -20, 0, 0)
		b := k.Translate(k.Sphere(6), 20, 0, 0)
		whole := k.Union(a, b)
		parts, err := k.Separate(whole)
		if err != nil {
			t.Fatalf("Separate failed: %v", err)
		}
		if len(parts) != 2 {
			t.Fatalf("expected 2 parts, got %d", len(parts))
		}
		joined := parts[0]
		for _, p := range parts[1:] {
			joined = k.Union(joined, p)
		}

		want := k.Volume(whole)
		if got := k.Volume(joined); math.Abs(got-want)/want > 0.03 {
			t.Errorf("rejoined volume = %f, expected ~%f", got, want)
		}
		for _, p := range [][3]float64{
			{-20, 0, 0}, {-16, 4, 4}, {20, 0, 0}, {20, 0, 5},
			{0, 0, 0}, {-26, 0, 0}, {20, 0, 7}, {27, 0, 0},
		} {
			orig, got := k.Distance(whole, p), k.Distance(joined, p)
			if (orig < 0) != (got < 0) {
				t.Errorf("at %v: input distance %f, rejoined %f", p, orig, got)
			}
		}
	})

	t.Run("thin wall", func(t *testing.T) {
		box := k.Box(20, 20, 20)
		wall := k.Box(0.01, 30, 30)
		parts, err := k.Separate(k.Difference(box, wall))
		if err != nil {
			t.Fatalf("Separate failed: %v", err)
		}
		if len(parts) != 2 {
			t.Fatalf("expected 2 parts, got %d", len(parts))
		}
		var total float64
		for _, p := range parts {
			total += k.Volume(p)
		}
		if math.Abs(total-8000)/8000 > 0.03 {
			t.Errorf("total volume = %f, expected ~8000", total)
		}
	})
}

func TestRemesh(t *testing.T) {
	k := testKernel()
	box := k.Box(10, 10, 10)

	r, err := k.Remesh(box, 0.5)
	if err != nil {
		t.Fatalf("Remesh failed: %v", err)
	}
	min, max := r.BoundingBox()
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]+5) > 1 || math.Abs(max[i]-5) > 1 {
			t.Errorf("axis %d bounds = [%f, %f], expected ~[-5, 5]", i, min[i], max[i])
		}
	}
	if d := k.Distance(r, [3]float64{0, 0, 0}); math.Abs(d+5) > 0.5 {
		t.Errorf("distance at the center = %f, expected ~-5", d)
	}
	if d := k.Distance(r, [3]float64{50, 0, 0}); d < 40 {
		t.Errorf("distance far outside = %f, expected > 40", d)
	}
	if got := k.Volume(r); math.Abs(got-1000)/1000 > 0.05 {
		t.Errorf("volume = %f, expected ~1000", got)
	}

	if _, err := k.Remesh(box, 0); !errors.Is(err, kernel.ErrInput) {
		t.Errorf("zero voxel: got %v, expected ErrInput", err)
	}
	if _, err := k.Remesh(k.Box(0, 0, 0), 1); !errors.Is(err, kernel.ErrGeometry) {
		t.Errorf("empty solid: got %v, expected ErrGeometry", err)
	}
	if _, err := NewWithConfig(Config{MaxCells: 1000}).Remesh(box, 0.1); !errors.Is(err, kernel.ErrGeometry) {
		t.Errorf("oversized lattice: got %v, expected ErrGeometry", err)
	}
}

func TestDecimateAndSmooth(t *testing.T) {
	k := testKernel()
	box := k.Box(10, 10, 10)

	for _, ratio := range []float64{0, -0.5, 1.5} {
		if _, err := k.Decimate(box, ratio); !errors.Is(err, kernel.ErrInput) {
			t.Errorf("ratio %g: got %v, expected ErrInput", ratio, err)
		}
	}
	for _, f := range []float64{-0.1, 2} {
		if _, err := k.Smooth(box, f); !errors.Is(err, kernel.ErrInput) {
			t.Errorf("factor %g: got %v, expected ErrInput", f, err)
		}
	}

	dec, err := k.Decimate(box, 0.25)
	if err != nil {
		t.Fatalf("Decimate failed: %v", err)
	}
	if got := k.Volume(dec); math.Abs(got-1000)/1000 > 0.1 {
		t.Errorf("decimated volume = %f, expected ~1000", got)
	}

	sm, err := k.Smooth(dec, 0.5)
	if err != nil {
		t.Fatalf("Smooth failed: %v", err)
	}
	if got := k.Volume(sm); math.Abs(got-1000)/1000 > 0.1 {
		t.Errorf("smoothed volume = %f, expected ~1000", got)
	}
}
