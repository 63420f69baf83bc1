package export

import (
	"fmt"

	"github.com/chazu/chopit/pkg/curvecut"
	"github.com/samber/lo"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"
)

// DXF layer names written by WritePaths.
const (
	LayerPath    = "path"
	LayerOutline = "outline"
	LayerRings   = "rings"
)

// WritePaths writes the walls of curve cuts as 3D line work: the refined
// path, the planar fill outline and the border rings, each on its own
// layer.
func WritePaths(path string, walls []*curvecut.Wall) error {
	if len(walls) == 0 {
		return ErrNoParts
	}
	d := dxf.NewDrawing()
	for _, l := range []struct {
		name string
		c    color.ColorNumber
	}{
		{LayerPath, color.Red},
		{LayerOutline, color.Green},
		{LayerRings, color.Magenta},
	} {
		if _, err := d.AddLayer(l.name, l.c, dxf.DefaultLineType, false); err != nil {
			return fmt.Errorf("export: dxf: layer %s: %w", l.name, err)
		}
	}

	for _, w := range walls {
		if err := polyline(d, LayerPath, w.Path, w.Closed); err != nil {
			return err
		}
		if err := polyline(d, LayerOutline, lo.Map(w.Outline, func(uv [2]float64, _ int) [3]float64 {
			return w.Frame.World(uv)
		}), w.Closed); err != nil {
			return err
		}
		for _, ring := range w.Rings {
			if err := polyline(d, LayerRings, lo.Map(ring, func(uv [2]float64, _ int) [3]float64 {
				return w.Frame.World(uv)
			}), true); err != nil {
				return err
			}
		}
	}

	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("export: dxf: %w", err)
	}
	return nil
}

// polyline draws pts as line segments on layer, joining the last point
// back to the first when closed.
func polyline(d *drawing.Drawing, layer string, pts [][3]float64, closed bool) error {
	if len(pts) < 2 {
		return nil
	}
	if err := d.ChangeLayer(layer); err != nil {
		return fmt.Errorf("export: dxf: %w", err)
	}
	n := len(pts)
	if !closed {
		n--
	}
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%len(pts)]
		if _, err := d.Line(a[0], a[1], a[2], b[0], b[1], b[2]); err != nil {
			return fmt.Errorf("export: dxf: %w", err)
		}
	}
	return nil
}
