package export

import (
	"fmt"

	"github.com/hpinc/go3mf"
)

// Write3MF writes parts as the objects of one 3MF package, each placed on
// the build plate as its own item. Units are millimeters.
func Write3MF(path string, parts []Part) error {
	if len(parts) == 0 {
		return ErrNoParts
	}
	model := &go3mf.Model{Units: go3mf.UnitMillimeter}
	for i, p := range parts {
		id := uint32(i + 1)
		model.Resources.Objects = append(model.Resources.Objects, &go3mf.Object{
			ID:   id,
			Name: p.Name,
			Mesh: toMesh3MF(p),
		})
		model.Build.Items = append(model.Build.Items, &go3mf.Item{ObjectID: id})
	}

	w, err := go3mf.CreateWriter(path)
	if err != nil {
		return fmt.Errorf("export: 3mf: %w", err)
	}
	if err := w.Encode(model); err != nil {
		w.Close()
		return fmt.Errorf("export: 3mf: encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("export: 3mf: %w", err)
	}
	return nil
}

// toMesh3MF welds the unshared triangles of p into an indexed 3MF mesh.
// Triangles that collapse after welding are dropped.
func toMesh3MF(p Part) *go3mf.Mesh {
	mesh := new(go3mf.Mesh)
	mb := go3mf.NewMeshBuilder(mesh)
	for t := 0; t < p.Mesh.TriangleCount(); t++ {
		var idx [3]uint32
		for j, v := range p.Mesh.Triangle(t) {
			idx[j] = mb.AddVertex(go3mf.Point3D{float32(v[0]), float32(v[1]), float32(v[2])})
		}
		if idx[0] == idx[1] || idx[1] == idx[2] || idx[0] == idx[2] {
			continue
		}
		mesh.Triangles.Triangle = append(mesh.Triangles.Triangle, go3mf.Triangle{V1: idx[0], V2: idx[1], V3: idx[2]})
	}
	return mesh
}
