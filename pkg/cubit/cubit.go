// Package cubit cuts a solid into axis-aligned chunks no larger than a
// chunk size, one axis pass at a time.
//
// Every pass intersects each input fragment with a row of cutting boxes
// and separates the results by connectivity. The fragments of one pass
// are the inputs of the next. Fragments of a pass are held in a transient
// scene collection named after the axis ("x parts") that is consumed and
// deleted before the next pass starts.
package cubit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/chazu/chopit/pkg/kernel"
	"github.com/chazu/chopit/pkg/meshutil"
	"github.com/chazu/chopit/pkg/scene"
	"github.com/samber/lo"
)

// DefaultAxes is the pass order used when a spec names no axes.
var DefaultAxes = []kernel.Axis{kernel.AxisX, kernel.AxisY, kernel.AxisZ}

// Spec describes one grid decomposition.
type Spec struct {
	Size float64       // maximum chunk size along each cut axis
	Axes []kernel.Axis // pass order; empty means DefaultAxes
	Name string        // source name recorded on fragments
}

// Options holds the tuned constants of the decomposer.
type Options struct {
	// RelativeOffset is the step between cutting boxes as a multiple of
	// the chunk size.
	RelativeOffset float64 `toml:"relative_offset"`
	// Margin is how far cutting boxes overhang the input on the axes not
	// being cut.
	Margin float64 `toml:"margin"`
	// Enumerate, when set, is applied to the final fragments.
	Enumerate func([]meshutil.Fragment) []meshutil.Fragment `toml:"-"`
	Logger    *slog.Logger                                  `toml:"-"`
}

// DefaultOptions returns the default tuning.
func DefaultOptions() Options {
	return Options{
		RelativeOffset: -1.001,
		Margin:         1,
	}
}

// Decomposer runs grid decompositions against a kernel and a scene.
type Decomposer struct {
	k    kernel.Kernel
	sc   *scene.Scene
	opts Options
	log  *slog.Logger
}

// New returns a Decomposer. A nil scene gets a private one.
func New(k kernel.Kernel, sc *scene.Scene, opts Options) *Decomposer {
	if sc == nil {
		sc = scene.New()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Decomposer{k: k, sc: sc, opts: opts, log: log.With("component", "cubit")}
}

// Failure records one cutting box whose boolean or separation failed.
type Failure struct {
	Source string
	Axis   kernel.Axis
	Box    int
	Err    error
}

// PartialError reports the boxes that failed during a decomposition. The
// fragments returned with it are valid.
type PartialError struct {
	Failures []Failure
}

func (e *PartialError) Error() string {
	msgs := lo.Map(e.Failures, func(f Failure, _ int) string {
		return fmt.Sprintf("%s pass, box %d of %q: %v", f.Axis, f.Box, f.Source, f.Err)
	})
	return fmt.Sprintf("cubit: %d cutting boxes failed: %s", len(e.Failures), strings.Join(msgs, "; "))
}

// Unwrap exposes kernel.ErrGeometry and every underlying failure.
func (e *PartialError) Unwrap() []error {
	errs := []error{kernel.ErrGeometry}
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Validate checks a spec before any geometry is built.
func (s Spec) Validate() error {
	if !(s.Size > 0) || math.IsInf(s.Size, 0) {
		return fmt.Errorf("cubit: %w: chunk size %g must be positive", kernel.ErrInput, s.Size)
	}
	for _, a := range s.Axes {
		if !a.Valid() {
			return fmt.Errorf("cubit: %w: invalid axis %v", kernel.ErrInput, a)
		}
	}
	return nil
}

// Decompose cuts s into fragments no larger than spec.Size along every
// pass axis. When some cutting boxes fail, the fragments that were
// produced are returned together with a *PartialError.
func (d *Decomposer) Decompose(ctx context.Context, s kernel.Solid, spec Spec) ([]meshutil.Fragment, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	axes := spec.Axes
	if len(axes) == 0 {
		axes = DefaultAxes
	}

	frags := []meshutil.Fragment{meshutil.NewFragment(s, spec.Name, "")}
	var failures []Failure
	for _, axis := range axes {
		next, failed, err := d.pass(ctx, frags, axis, spec.Size)
		if err != nil {
			return nil, err
		}
		failures = append(failures, failed...)
		d.log.Info("pass complete",
			"axis", axis.String(),
			"inputs", len(frags),
			"fragments", len(next),
			"failures", len(failed))
		frags = next
	}

	if d.opts.Enumerate != nil {
		frags = d.opts.Enumerate(frags)
	}
	if len(failures) > 0 {
		return frags, &PartialError{Failures: failures}
	}
	return frags, nil
}

// pass runs one axis pass through a transient collection.
func (d *Decomposer) pass(ctx context.Context, inputs []meshutil.Fragment, axis kernel.Axis, size float64) (out []meshutil.Fragment, failed []Failure, err error) {
	coll := axis.String() + " parts"
	if err := d.sc.CreateCollection(coll); err != nil {
		return nil, nil, fmt.Errorf("cubit: %w", err)
	}
	defer func() {
		if derr := d.sc.DeleteCollection(coll); derr != nil && err == nil {
			err = fmt.Errorf("cubit: %w", derr)
		}
	}()

	produced := make(map[scene.ObjectID]meshutil.Fragment)
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		pieces, fails := d.cut(in, axis, size)
		failed = append(failed, fails...)
		for _, p := range pieces {
			obj := d.sc.Add(p.Source, p.Solid)
			if err := d.sc.Link(coll, obj.ID); err != nil {
				return nil, nil, fmt.Errorf("cubit: %w", err)
			}
			produced[obj.ID] = p
		}
	}

	objs, err := d.sc.Consume(coll)
	if err != nil {
		return nil, nil, fmt.Errorf("cubit: %w", err)
	}
	out = make([]meshutil.Fragment, 0, len(objs))
	for _, o := range objs {
		out = append(out, produced[o.ID])
		if err := d.sc.Remove(o.ID); err != nil {
			return nil, nil, fmt.Errorf("cubit: %w", err)
		}
	}
	return out, failed, nil
}

// cut splits one fragment along axis. A fragment that already fits along
// the axis is only separated.
func (d *Decomposer) cut(in meshutil.Fragment, axis kernel.Axis, size float64) ([]meshutil.Fragment, []Failure) {
	dims := meshutil.Dimensions(in.Solid)
	if dims[axis] <= size {
		frags, _, err := meshutil.Separate(d.k, in.Solid, in.Source, axis.String())
		if err != nil {
			return nil, []Failure{{Source: in.Source, Axis: axis, Box: 0, Err: err}}
		}
		return frags, nil
	}

	boxes := CuttingBoxes(meshutil.BoxCenter(in.Solid), dims, axis, size, d.opts.RelativeOffset, d.opts.Margin)
	var out []meshutil.Fragment
	var failed []Failure
	for i, b := range boxes {
		piece := d.k.Intersection(in.Solid, b.Solid(d.k))
		frags, _, err := meshutil.Separate(d.k, piece, in.Source, axis.String())
		if err != nil {
			d.log.Warn("cutting box failed", "axis", axis.String(), "box", i, "source", in.Source, "err", err)
			failed = append(failed, Failure{Source: in.Source, Axis: axis, Box: i, Err: err})
			continue
		}
		d.log.Debug("cutting box", "axis", axis.String(), "box", i, "fragments", len(frags))
		out = append(out, frags...)
	}
	return out, failed
}
