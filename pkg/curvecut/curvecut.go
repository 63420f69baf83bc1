// Package curvecut splits a solid along a hand-drawn path.
//
// Strokes are pruned against the target surface, joined, refined onto the
// surface with a small standoff, turned into a thin wall that follows
// the path and subtracted from the target. The remainder is separated by
// connectivity.
package curvecut

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chazu/chopit/pkg/kernel"
	"github.com/chazu/chopit/pkg/kernel/bvh"
	"github.com/chazu/chopit/pkg/meshutil"
	"github.com/samber/lo"
)

// Params holds the tuned constants of the pipeline.
type Params struct {
	PruneDistance    float64 `toml:"prune_distance"`
	FineSpacing      float64 `toml:"fine_spacing"`
	CoarseSpacing    float64 `toml:"coarse_spacing"`
	Offset           float64 `toml:"offset"`
	SmoothFactor     float64 `toml:"smooth_factor"`
	SmoothIterations int     `toml:"smooth_iterations"`
	MergeDistance    float64 `toml:"merge_distance"`
	BorderThickness  float64 `toml:"border_thickness"`
	BorderStep       float64 `toml:"border_step"`
	FinalInset       float64 `toml:"final_inset"`
	ExtrudeOffset    float64 `toml:"extrude_offset"`
}

// DefaultParams returns the default tuning.
func DefaultParams() Params {
	return Params{
		PruneDistance:    0.5,
		FineSpacing:      0.1,
		CoarseSpacing:    0.3,
		Offset:           0.2,
		SmoothFactor:     0.5,
		SmoothIterations: 4,
		MergeDistance:    0.5,
		BorderThickness:  2.0,
		BorderStep:       0.1,
		FinalInset:       0.5,
		ExtrudeOffset:    0.01,
	}
}

// Cut is one path through the target, drawn as one or more strokes.
type Cut struct {
	Strokes []Stroke
	Close   bool // close the joined path into a loop
}

// Spec describes a freeform cut. Strokes and Close form the first cut;
// Cuts adds more. Every cut becomes its own wall and all walls are
// subtracted together.
type Spec struct {
	Strokes []Stroke
	Close   bool
	Cuts    []Cut
	Border  float64 // border thickness; zero keeps Params.BorderThickness
	Name    string  // source name recorded on fragments
}

// cuts returns every non-empty cut of s in order.
func (s Spec) cuts() []Cut {
	var out []Cut
	if len(s.Strokes) > 0 {
		out = append(out, Cut{Strokes: s.Strokes, Close: s.Close})
	}
	return append(out, lo.Filter(s.Cuts, func(c Cut, _ int) bool { return len(c.Strokes) > 0 })...)
}

// Result is the outcome of a freeform cut.
type Result struct {
	Fragments []meshutil.Fragment
	Paths     []Path // refined paths the walls were built from, one per cut
	Walls     []*Wall
}

// Decomposer runs freeform cuts against a kernel.
type Decomposer struct {
	k      kernel.Kernel
	params Params
	log    *slog.Logger
}

// New returns a Decomposer. A nil logger uses slog.Default.
func New(k kernel.Kernel, params Params, log *slog.Logger) *Decomposer {
	if log == nil {
		log = slog.Default()
	}
	return &Decomposer{k: k, params: params, log: log.With("component", "curvecut")}
}

// Decompose cuts target along the strokes of spec.
func (d *Decomposer) Decompose(ctx context.Context, target kernel.Solid, spec Spec) (*Result, error) {
	cuts := spec.cuts()
	if PointCount(lo.FlatMap(cuts, func(c Cut, _ int) []Stroke { return c.Strokes })) == 0 {
		return nil, fmt.Errorf("curvecut: %w: no stroke points", kernel.ErrInput)
	}
	params := d.params
	if spec.Border < 0 {
		return nil, fmt.Errorf("curvecut: %w: border thickness %g is negative", kernel.ErrInput, spec.Border)
	}
	if spec.Border > 0 {
		params.BorderThickness = spec.Border
	}

	mesh, err := d.k.ToMesh(target)
	if err != nil {
		return nil, fmt.Errorf("curvecut: tessellate target: %w", err)
	}
	index, err := bvh.New(mesh)
	if err != nil {
		return nil, fmt.Errorf("curvecut: index target: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{}
	chop := NewChopper(d.k, target, spec.Name)
	for i, c := range cuts {
		path, wall, err := d.wall(ctx, index, c, params)
		if err != nil {
			return nil, fmt.Errorf("curvecut: cut %d: %w", i+1, err)
		}
		d.log.Debug("built wall",
			"cut", i+1,
			"points", len(wall.Path),
			"rings", len(wall.Rings),
			"closed", wall.Closed)
		chop.AddWall(wall.Solid)
		res.Paths = append(res.Paths, path)
		res.Walls = append(res.Walls, wall)
	}

	frags, err := chop.Finalize(ctx)
	if err != nil {
		return nil, err
	}
	res.Fragments = frags
	d.log.Info("curve cut complete", "source", spec.Name, "walls", len(res.Walls), "fragments", len(frags))
	return res, nil
}

// wall refines the strokes of one cut onto the surface of index and
// builds its wall.
func (d *Decomposer) wall(ctx context.Context, index *bvh.Index, c Cut, params Params) (Path, *Wall, error) {
	strokes := Prune(index, c.Strokes, params.PruneDistance)
	d.log.Debug("pruned strokes",
		"strokes", len(strokes),
		"points", PointCount(strokes),
		"dropped", PointCount(c.Strokes)-PointCount(strokes))
	if len(strokes) == 0 {
		return Path{}, nil, fmt.Errorf("%w: every stroke point is farther than %g from the surface",
			kernel.ErrInput, params.PruneDistance)
	}

	path := Join(strokes)
	if c.Close {
		path = path.Close()
	}
	path = ProjectStroke(index, path, params)
	if err := ctx.Err(); err != nil {
		return Path{}, nil, err
	}

	wall, err := CurveToWall(d.k, index, path, params)
	if err != nil {
		return Path{}, nil, err
	}
	return path, wall, nil
}
