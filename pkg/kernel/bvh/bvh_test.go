package bvh

import (
	"math"
	"testing"

	"github.com/chazu/chopit/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plane builds a flat n x n grid of unit squares on z = 0.
func plane(n int) *kernel.Mesh {
	m := &kernel.Mesh{}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x, y := float64(i), float64(j)
			m.AddTriangle([3]float64{x, y, 0}, [3]float64{x + 1, y, 0}, [3]float64{x + 1, y + 1, 0})
			m.AddTriangle([3]float64{x, y, 0}, [3]float64{x + 1, y + 1, 0}, [3]float64{x, y + 1, 0})
		}
	}
	return m
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }

func TestNewRejectsEmptyMesh(t *testing.T) {
	_, err := New(&kernel.Mesh{})
	assert.ErrorIs(t, err, kernel.ErrInput)

	_, err = New(nil)
	assert.ErrorIs(t, err, kernel.ErrInput)

	flat := &kernel.Mesh{}
	flat.AddTriangle([3]float64{0, 0, 0}, [3]float64{1, 0, 0}, [3]float64{2, 0, 0})
	_, err = New(flat)
	assert.ErrorIs(t, err, kernel.ErrInput)
}

func TestNearestSingleTriangle(t *testing.T) {
	m := &kernel.Mesh{}
	m.AddTriangle([3]float64{0, 0, 0}, [3]float64{1, 0, 0}, [3]float64{0, 1, 0})
	ix, err := New(m)
	require.NoError(t, err)
	require.Equal(t, 1, ix.Len())

	tests := []struct {
		name  string
		p     [3]float64
		point [3]float64
		dist  float64
	}{
		{"above face", [3]float64{0.25, 0.25, 1}, [3]float64{0.25, 0.25, 0}, 1},
		{"beyond vertex", [3]float64{2, 0, 0}, [3]float64{1, 0, 0}, 1},
		{"behind origin", [3]float64{-1, -1, 0}, [3]float64{0, 0, 0}, math.Sqrt2},
		{"past hypotenuse", [3]float64{1, 1, 0}, [3]float64{0.5, 0.5, 0}, math.Sqrt(0.5)},
		{"below edge", [3]float64{0.5, -2, 0}, [3]float64{0.5, 0, 0}, 2},
		{"on surface", [3]float64{0.1, 0.1, 0}, [3]float64{0.1, 0.1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := ix.Nearest(tt.p)
			assert.InDelta(t, tt.dist, h.Distance, 1e-6)
			for i := 0; i < 3; i++ {
				assert.InDelta(t, tt.point[i], h.Point[i], 1e-6)
			}
			assert.Equal(t, 0, h.Triangle)
			assert.InDelta(t, 1.0, h.Normal[2], 1e-9)
		})
	}
}

func TestNearestOnPlane(t *testing.T) {
	ix, err := New(plane(10))
	require.NoError(t, err)
	require.Equal(t, 200, ix.Len())
	min, max := ix.Bounds()
	assert.Equal(t, [3]float64{0, 0, 0}, min)
	assert.Equal(t, [3]float64{10, 10, 0}, max)

	points := [][3]float64{
		{5.5, 5.5, 3},
		{0.2, 9.7, -1.5},
		{-4, 5, 2},
		{12, 13, 0.5},
		{3.3, -0.1, 0},
		{7.01, 2.99, 10},
	}
	for _, p := range points {
		want := [3]float64{clamp(p[0], 0, 10), clamp(p[1], 0, 10), 0}
		h := ix.Nearest(p)
		for i := 0; i < 3; i++ {
			assert.InDelta(t, want[i], h.Point[i], 1e-5, "point %v axis %d", p, i)
		}
		dx, dy, dz := p[0]-want[0], p[1]-want[1], p[2]
		assert.InDelta(t, math.Sqrt(dx*dx+dy*dy+dz*dz), ix.Distance(p), 1e-5, "point %v", p)
	}
}

func TestNearestMatchesBruteForce(t *testing.T) {
	// Two facing planes; the box-nearest triangle is often not the nearest.
	m := plane(6)
	for i := 0; i < 6; i++ {
		x := float64(i)
		m.AddTriangle([3]float64{x, 0, 4}, [3]float64{x, 6, 4}, [3]float64{x + 1, 6, 4})
		m.AddTriangle([3]float64{x, 0, 4}, [3]float64{x + 1, 6, 4}, [3]float64{x + 1, 0, 4})
	}
	ix, err := New(m)
	require.NoError(t, err)

	for _, p := range [][3]float64{{1, 1, 1}, {3, 3, 2.5}, {5.9, 0.1, 3.9}, {-2, 3, 2}, {8, 8, 6}} {
		best := math.Inf(1)
		for i := 0; i < m.TriangleCount(); i++ {
			v := m.Triangle(i)
			q := closestOnTriangle(p, v[0], v[1], v[2])
			best = math.Min(best, length(sub(p, q)))
		}
		assert.InDelta(t, best, ix.Distance(p), 1e-6, "point %v", p)
	}
}
