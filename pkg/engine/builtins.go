package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/chopit/pkg/curvecut"
	"github.com/chazu/chopit/pkg/kernel"
	"github.com/chazu/chopit/pkg/meshutil"
	"github.com/chazu/chopit/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpSolid wraps an anonymous kernel.Solid built by a primitive,
// transform or boolean.
type sexpSolid struct {
	s kernel.Solid
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	d := meshutil.Dimensions(s.s)
	return fmt.Sprintf("(solid %.1fx%.1fx%.1f)", d[0], d[1], d[2])
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// sexpObjectRef names a scene object so later builtins can find it even
// after its solid is replaced.
type sexpObjectRef struct {
	id   scene.ObjectID
	name string
}

func (r *sexpObjectRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(objectref %q)", r.name)
}
func (r *sexpObjectRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a point or vector.
type sexpVec3 struct {
	vec [3]float64
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpStroke wraps a colored cut stroke.
type sexpStroke struct {
	stroke curvecut.Stroke
}

func (s *sexpStroke) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(stroke %s %d points)", s.stroke.Color.Name, len(s.stroke.Points))
}
func (s *sexpStroke) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			// Trailing keyword: a flag with no value.
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// float returns the keyword value key as a number, or def when absent.
func (a kwArgs) float(key string, def float64) (float64, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// bool returns the keyword value key as a boolean, or def when absent.
// A trailing flag with no value counts as true.
func (a kwArgs) bool(key string, def bool) (bool, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	if v == zygo.SexpNull {
		return true, nil
	}
	b, ok := v.(*zygo.SexpBool)
	if !ok {
		return false, fmt.Errorf("%s: expected boolean, got %T (%s)", key, v, v.SexpString(nil))
	}
	return b.Val, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a plain string from a Sexp. Keywords are rejected.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok && !strings.HasPrefix(str.S, kwPrefix) {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toAxis converts a keyword or string to a kernel.Axis.
func toAxis(s zygo.Sexp) (kernel.Axis, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected axis keyword (:x, :y, :z): %w", err)
	}
	return kernel.ParseAxis(name)
}

// toVec3 extracts a point from a sexpVec3.
func toVec3(s zygo.Sexp) ([3]float64, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return [3]float64{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toObject resolves a scene object from an object reference or a name.
func (r *runner) toObject(s zygo.Sexp) (*scene.Object, error) {
	switch v := s.(type) {
	case *sexpObjectRef:
		if o := r.job.Scene.Get(v.id); o != nil {
			return o, nil
		}
		return nil, fmt.Errorf("solid %q no longer exists", v.name)
	case *zygo.SexpStr:
		name, err := toString(v)
		if err != nil {
			return nil, err
		}
		if o := r.job.Scene.Lookup(name); o != nil {
			return o, nil
		}
		return nil, fmt.Errorf("unknown solid %q", name)
	}
	return nil, fmt.Errorf("expected solid name or reference, got %T (%s)", s, s.SexpString(nil))
}

// toSolid accepts an anonymous solid, an object reference or a name.
func (r *runner) toSolid(s zygo.Sexp) (kernel.Solid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v.s, nil
	}
	o, err := r.toObject(s)
	if err != nil {
		return nil, err
	}
	return o.Solid, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the job script builtins into a zygomys
// environment. Geometry is built with the runner's kernel and registered
// in the runner's scene.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, r *runner) {
	k := r.k

	// -----------------------------------------------------------------------
	// (vec3 x y z)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: component %d: %w", i, err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// -----------------------------------------------------------------------
	// (box x y z) or (box size)
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 && len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("box requires 1 or 3 dimensions, got %d", len(args))
		}
		var d [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: dimension %d: %w", i, err)
			}
			d[i] = f
		}
		if len(args) == 1 {
			d[1], d[2] = d[0], d[0]
		}
		return &sexpSolid{s: k.Box(d[0], d[1], d[2])}, nil
	})

	// -----------------------------------------------------------------------
	// (cylinder :height 20 :radius 5)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		h, err := pa.float("height", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		rad, err := pa.float("radius", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		seg, err := pa.float("segments", 64)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		return &sexpSolid{s: k.Cylinder(h, rad, int(seg))}, nil
	})

	// -----------------------------------------------------------------------
	// (sphere r)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("sphere requires a radius")
		}
		rad, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
		}
		return &sexpSolid{s: k.Sphere(rad)}, nil
	})

	// -----------------------------------------------------------------------
	// (translate s (vec3 ...)) and (rotate s (vec3 ...)), degrees
	// -----------------------------------------------------------------------
	vecTransforms := map[string]func(kernel.Solid, float64, float64, float64) kernel.Solid{
		"translate": k.Translate,
		"rotate":    k.Rotate,
	}
	for fname, apply := range vecTransforms {
		env.AddFunction(fname, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires a solid and a vec3", fname)
			}
			s, err := r.toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fname, err)
			}
			v, err := toVec3(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fname, err)
			}
			return &sexpSolid{s: apply(s, v[0], v[1], v[2])}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (scale s factor)
	// -----------------------------------------------------------------------
	env.AddFunction("scale", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("scale requires a solid and a factor")
		}
		s, err := r.toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("scale: %w", err)
		}
		f, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("scale: factor: %w", err)
		}
		if !(f > 0) {
			return zygo.SexpNull, fmt.Errorf("scale: factor %g must be positive", f)
		}
		return &sexpSolid{s: k.Scale(s, f)}, nil
	})

	// -----------------------------------------------------------------------
	// (union a b ...) (difference a b ...) (intersect a b ...)
	// -----------------------------------------------------------------------
	booleans := map[string]func(a, b kernel.Solid) kernel.Solid{
		"union":      k.Union,
		"difference": k.Difference,
		"intersect":  k.Intersection,
	}
	for fname, op := range booleans {
		env.AddFunction(fname, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) < 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least 2 solids, got %d", fname, len(args))
			}
			acc, err := r.toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: operand 0: %w", fname, err)
			}
			for i, a := range args[1:] {
				s, err := r.toSolid(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: operand %d: %w", fname, i+1, err)
				}
				acc = op(acc, s)
			}
			return &sexpSolid{s: acc}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (defsolid "name" solid)
	// -----------------------------------------------------------------------
	env.AddFunction("defsolid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("defsolid requires a name and a solid")
		}
		solidName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid: name: %w", err)
		}
		if solidName == "" {
			return zygo.SexpNull, fmt.Errorf("defsolid: name must not be empty")
		}
		s, err := r.toSolid(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid %q: %w", solidName, err)
		}
		o := r.job.Scene.Add(solidName, s)
		return &sexpObjectRef{id: o.ID, name: o.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (solid "name")
	// -----------------------------------------------------------------------
	env.AddFunction("solid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("solid requires exactly 1 argument (name)")
		}
		o, err := r.toObject(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("solid: %w", err)
		}
		return &sexpObjectRef{id: o.ID, name: o.Name}, nil
	})

	registerJobBuiltins(env, r)
}
