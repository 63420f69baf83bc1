// Package export writes decomposed parts to disk: printable meshes as
// 3MF or STL, wall paths as DXF and a fragment report as XLSX.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/chopit/pkg/kernel"
	"github.com/chazu/chopit/pkg/scene"
)

// ErrNoParts is returned when there is nothing to write.
var ErrNoParts = errors.New("export: no parts")

// Format is a mesh file format.
type Format string

const (
	Format3MF Format = "3mf"
	FormatSTL Format = "stl"
)

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Format3MF, FormatSTL:
		return f, nil
	}
	return "", fmt.Errorf("export: unknown format %q, expected 3mf or stl", s)
}

// Part is one named mesh ready for writing.
type Part struct {
	Name  string
	Color string
	Mesh  *kernel.Mesh
}

// Tessellate meshes every object with k. Objects that mesh to nothing
// are skipped.
func Tessellate(k kernel.Kernel, objs []*scene.Object) ([]Part, error) {
	parts := make([]Part, 0, len(objs))
	for _, o := range objs {
		m, err := k.ToMesh(o.Solid)
		if err != nil {
			return nil, fmt.Errorf("export: tessellate %q: %w", o.Name, err)
		}
		if m.IsEmpty() {
			continue
		}
		m.PartName = o.Name
		parts = append(parts, Part{Name: o.Name, Color: o.Color, Mesh: m})
	}
	return parts, nil
}

// Write writes parts into dir: a single output.3mf holding every part,
// or one <name>.stl per part. It returns the files written.
func Write(dir string, format Format, parts []Part) ([]string, error) {
	if len(parts) == 0 {
		return nil, ErrNoParts
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	switch format {
	case Format3MF:
		path := filepath.Join(dir, "output.3mf")
		if err := Write3MF(path, parts); err != nil {
			return nil, err
		}
		return []string{path}, nil
	case FormatSTL:
		files := make([]string, 0, len(parts))
		for _, p := range parts {
			path := filepath.Join(dir, fileName(p.Name)+".stl")
			if err := SaveSTL(path, p); err != nil {
				return files, err
			}
			files = append(files, path)
		}
		return files, nil
	}
	return nil, fmt.Errorf("export: unknown format %q", format)
}

// fileName makes a part name safe to use as a file name.
func fileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "part"
	}
	return name
}
