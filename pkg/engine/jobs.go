package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chazu/chopit/pkg/cubit"
	"github.com/chazu/chopit/pkg/curvecut"
	"github.com/chazu/chopit/pkg/hollow"
	"github.com/chazu/chopit/pkg/kernel"
	"github.com/chazu/chopit/pkg/meshutil"
	"github.com/chazu/chopit/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// runner carries the state of one evaluation.
type runner struct {
	ctx  context.Context
	k    kernel.Kernel
	opts Options
	log  *slog.Logger
	job  *Job

	strokes curvecut.Palette // stroke colors
	tints   curvecut.Palette // output object colors
	counts  map[string]int   // fragments emitted per source name
}

func newRunner(ctx context.Context, e *Engine) *runner {
	sc := scene.New()
	// A fresh scene has no collections, so this cannot fail.
	_ = sc.CreateCollection(OutputCollection)
	return &runner{
		ctx:    ctx,
		k:      e.k,
		opts:   e.opts,
		log:    e.log,
		job:    &Job{Scene: sc},
		counts: make(map[string]int),
	}
}

// emit registers frags as <source>.<n> in the output collection and
// removes the source object. The source stays when there are no
// fragments to replace it.
func (r *runner) emit(src *scene.Object, frags []meshutil.Fragment) (zygo.Sexp, error) {
	sc := r.job.Scene
	refs := make([]zygo.Sexp, 0, len(frags))
	for _, f := range frags {
		r.counts[src.Name]++
		o := sc.Add(fmt.Sprintf("%s.%d", src.Name, r.counts[src.Name]), f.Solid)
		o.Color = r.tints.Next().Hex
		if err := sc.Link(OutputCollection, o.ID); err != nil {
			return zygo.SexpNull, err
		}
		refs = append(refs, &sexpObjectRef{id: o.ID, name: o.Name})
	}
	if len(frags) == 0 {
		return zygo.MakeList(refs), nil
	}
	if err := sc.Remove(src.ID); err != nil {
		return zygo.SexpNull, err
	}
	return zygo.MakeList(refs), nil
}

// warn records a non-fatal problem on the job.
func (r *runner) warn(id scene.ObjectID, msg string) {
	r.log.Warn(msg, "object", id)
	r.job.Warnings = append(r.job.Warnings, EvalWarning{Message: msg, Object: id})
}

// registerJobBuiltins installs the orientation and decomposition builtins.
func registerJobBuiltins(env *zygo.Zlisp, r *runner) {
	k := r.k

	// objectArg resolves the leading positional argument of a builtin and
	// fails fast when the evaluation was canceled.
	objectArg := func(name string, pa kwArgs) (*scene.Object, error) {
		if err := r.ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if len(pa.positional) != 1 {
			return nil, fmt.Errorf("%s requires exactly 1 solid name, got %d", name, len(pa.positional))
		}
		o, err := r.toObject(pa.positional[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return o, nil
	}

	// -----------------------------------------------------------------------
	// (setup "name")
	// -----------------------------------------------------------------------
	env.AddFunction("setup", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		o, err := objectArg("setup", parseArgs(args))
		if err != nil {
			return zygo.SexpNull, err
		}
		if err := r.job.Scene.Replace(o.ID, meshutil.Setup(k, o.Solid)); err != nil {
			return zygo.SexpNull, fmt.Errorf("setup: %w", err)
		}
		return &sexpObjectRef{id: o.ID, name: o.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (scale-to-height "name" 200), height defaults to the model height
	// -----------------------------------------------------------------------
	env.AddFunction("scale_to_height", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 || len(args) > 2 {
			return zygo.SexpNull, fmt.Errorf("scale-to-height takes a solid name and an optional height")
		}
		o, err := objectArg("scale-to-height", kwArgs{positional: args[:1]})
		if err != nil {
			return zygo.SexpNull, err
		}
		h := r.opts.ModelHeight
		if len(args) == 2 {
			if h, err = toFloat64(args[1]); err != nil {
				return zygo.SexpNull, fmt.Errorf("scale-to-height: height: %w", err)
			}
		}
		s, err := meshutil.ScaleToHeight(k, o.Solid, h)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("scale-to-height %q: %w", o.Name, err)
		}
		if err := r.job.Scene.Replace(o.ID, s); err != nil {
			return zygo.SexpNull, fmt.Errorf("scale-to-height: %w", err)
		}
		return &sexpObjectRef{id: o.ID, name: o.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (output "name")
	// -----------------------------------------------------------------------
	env.AddFunction("output", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		o, err := objectArg("output", parseArgs(args))
		if err != nil {
			return zygo.SexpNull, err
		}
		if err := r.job.Scene.Link(OutputCollection, o.ID); err != nil {
			return zygo.SexpNull, fmt.Errorf("output: %w", err)
		}
		return &sexpObjectRef{id: o.ID, name: o.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (cubit "name" :size 100 :axes (list :x :y :z))
	// :size defaults to the printer size, :axes to x, y, z
	// -----------------------------------------------------------------------
	env.AddFunction("cubit", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		o, err := objectArg("cubit", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		spec := cubit.Spec{Name: o.Name}
		if spec.Size, err = pa.float("size", r.opts.ChunkSize); err != nil {
			return zygo.SexpNull, fmt.Errorf("cubit: %w", err)
		}
		if v, ok := pa.kw["axes"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cubit: axes: %w", err)
			}
			for _, it := range items {
				a, err := toAxis(it)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("cubit: axes: %w", err)
				}
				spec.Axes = append(spec.Axes, a)
			}
		}

		frags, err := cubit.New(k, r.job.Scene, r.opts.Cubit).Decompose(r.ctx, o.Solid, spec)
		var partial *cubit.PartialError
		switch {
		case errors.As(err, &partial):
			for _, f := range partial.Failures {
				r.warn(o.ID, fmt.Sprintf("cubit %q: %s pass, box %d failed: %v", o.Name, f.Axis, f.Box, f.Err))
			}
		case err != nil:
			return zygo.SexpNull, fmt.Errorf("cubit %q: %w", o.Name, err)
		}
		r.log.Info("cubit done", "source", o.Name, "size", spec.Size, "fragments", len(frags))
		return r.emit(o, frags)
	})

	// -----------------------------------------------------------------------
	// (stroke (vec3 ...) (vec3 ...) ...)
	// -----------------------------------------------------------------------
	env.AddFunction("stroke", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return zygo.SexpNull, fmt.Errorf("stroke requires at least 1 point")
		}
		points := make([][3]float64, 0, len(args))
		for i, a := range args {
			p, err := toVec3(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("stroke: point %d: %w", i, err)
			}
			points = append(points, p)
		}
		return &sexpStroke{stroke: r.strokes.NewStroke(points)}, nil
	})

	// -----------------------------------------------------------------------
	// (curve-cut "name" :strokes (list s1 s2) :border 2 :close true)
	// (curve-cut "name" :cuts (list (list s1 s2) (list s3)) :close true)
	// -----------------------------------------------------------------------
	env.AddFunction("curve_cut", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		o, err := objectArg("curve-cut", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		spec := curvecut.Spec{Name: o.Name}
		sv, hasStrokes := pa.kw["strokes"]
		cv, hasCuts := pa.kw["cuts"]
		if !hasStrokes && !hasCuts {
			return zygo.SexpNull, fmt.Errorf("curve-cut: :strokes or :cuts is required")
		}
		if hasStrokes {
			if spec.Strokes, err = strokeList(sv); err != nil {
				return zygo.SexpNull, fmt.Errorf("curve-cut: strokes: %w", err)
			}
		}
		if hasCuts {
			items, err := sexpListToSlice(cv)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("curve-cut: cuts: %w", err)
			}
			for i, it := range items {
				strokes, err := strokeList(it)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("curve-cut: cuts: item %d: %w", i, err)
				}
				spec.Cuts = append(spec.Cuts, curvecut.Cut{Strokes: strokes})
			}
		}
		if spec.Border, err = pa.float("border", 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("curve-cut: %w", err)
		}
		if spec.Close, err = pa.bool("close", false); err != nil {
			return zygo.SexpNull, fmt.Errorf("curve-cut: %w", err)
		}
		for i := range spec.Cuts {
			spec.Cuts[i].Close = spec.Close
		}

		res, err := curvecut.New(k, r.opts.CurveCut, r.opts.Logger).Decompose(r.ctx, o.Solid, spec)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("curve-cut %q: %w", o.Name, err)
		}
		r.job.Walls = append(r.job.Walls, res.Walls...)
		r.log.Info("curve cut done", "source", o.Name, "walls", len(res.Walls), "fragments", len(res.Fragments))
		return r.emit(o, res.Fragments)
	})

	// -----------------------------------------------------------------------
	// (hollow "name" :thickness 3)
	// -----------------------------------------------------------------------
	env.AddFunction("hollow", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		o, err := objectArg("hollow", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		t, err := pa.float("thickness", r.opts.ShellThickness)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("hollow: %w", err)
		}
		s, err := hollow.Hollow(r.ctx, k, o.Solid, t, r.opts.Hollow)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("hollow %q: %w", o.Name, err)
		}
		if err := r.job.Scene.Replace(o.ID, s); err != nil {
			return zygo.SexpNull, fmt.Errorf("hollow: %w", err)
		}
		r.log.Info("hollowed", "solid", o.Name, "thickness", t)
		return &sexpObjectRef{id: o.ID, name: o.Name}, nil
	})
}

// strokeList converts a list of stroke values.
func strokeList(v zygo.Sexp) ([]curvecut.Stroke, error) {
	items, err := sexpListToSlice(v)
	if err != nil {
		return nil, err
	}
	out := make([]curvecut.Stroke, 0, len(items))
	for i, it := range items {
		st, ok := it.(*sexpStroke)
		if !ok {
			return nil, fmt.Errorf("item %d: expected stroke, got %T", i, it)
		}
		out = append(out, st.stroke)
	}
	return out, nil
}
