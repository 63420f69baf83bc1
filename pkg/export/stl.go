package export

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// Triangles returns the triangles of p with coincident corners dropped.
func Triangles(p Part) []*sdf.Triangle3 {
	return lo.FilterMap(lo.Range(p.Mesh.TriangleCount()), func(i, _ int) (*sdf.Triangle3, bool) {
		tri := p.Mesh.Triangle(i)
		t := &sdf.Triangle3{}
		for c, v := range tri {
			t[c] = v3.Vec{X: v[0], Y: v[1], Z: v[2]}
		}
		return t, !t.Degenerate(0)
	})
}

// SaveSTL writes p to a binary STL file at path.
func SaveSTL(path string, p Part) error {
	if err := render.SaveSTL(path, Triangles(p)); err != nil {
		return fmt.Errorf("export: stl %q: %w", p.Name, err)
	}
	return nil
}
