// Package hollow turns a solid into a shell of a given wall thickness.
//
// An inner core is grown inward from the surface in small steps, trimmed
// against a coarse inward-offset limit and subtracted from the original.
package hollow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/chazu/chopit/pkg/kernel"
	"github.com/chazu/chopit/pkg/meshutil"
)

// Params holds the tuned constants of the hollowing pipeline.
type Params struct {
	Steps         int          `toml:"steps"`          // inset sub-steps for the core
	SmoothFactor  float64      `toml:"smooth_factor"`  // smoothing after each sub-step
	VoxelSize     float64      `toml:"voxel_size"`     // remesh voxel for core and limit
	DecimateRatio float64      `toml:"decimate_ratio"` // face ratio of the limit
	Logger        *slog.Logger `toml:"-"`
}

// DefaultParams returns the default tuning.
func DefaultParams() Params {
	return Params{
		Steps:         10,
		SmoothFactor:  0.5,
		VoxelSize:     1.0,
		DecimateRatio: 0.5,
	}
}

func (p Params) validate() error {
	switch {
	case p.Steps < 1:
		return fmt.Errorf("hollow: %w: steps %d must be at least 1", kernel.ErrInput, p.Steps)
	case !(p.VoxelSize > 0):
		return fmt.Errorf("hollow: %w: voxel size %g must be positive", kernel.ErrInput, p.VoxelSize)
	case !(p.DecimateRatio > 0 && p.DecimateRatio <= 1):
		return fmt.Errorf("hollow: %w: decimate ratio %g must be in (0, 1]", kernel.ErrInput, p.DecimateRatio)
	case !(p.SmoothFactor >= 0 && p.SmoothFactor <= 1):
		return fmt.Errorf("hollow: %w: smoothing factor %g must be in [0, 1]", kernel.ErrInput, p.SmoothFactor)
	}
	return nil
}

// Hollow returns s with its interior removed, leaving a wall thickness
// thick. The input solid is never modified.
func Hollow(ctx context.Context, k kernel.Kernel, s kernel.Solid, thickness float64, params Params) (kernel.Solid, error) {
	if !(thickness > 0) || math.IsInf(thickness, 0) {
		return nil, fmt.Errorf("hollow: %w: thickness %g must be positive", kernel.ErrInput, thickness)
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	dims := meshutil.Dimensions(s)
	if smallest := math.Min(dims[0], math.Min(dims[1], dims[2])); thickness >= smallest/2 {
		return nil, fmt.Errorf("hollow: %w: thickness %g reaches the middle of a solid %g thick",
			kernel.ErrToleranceExceeded, thickness, smallest)
	}
	log := params.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "hollow")

	core, err := insetCore(ctx, k, s, thickness, params)
	if err != nil {
		return nil, err
	}
	log.Debug("core built", "thickness", thickness)

	limit, err := k.Decimate(s, params.DecimateRatio)
	if err != nil {
		return nil, fmt.Errorf("hollow: decimate limit: %w", err)
	}
	limit, err = k.Remesh(k.Offset(limit, -thickness), params.VoxelSize)
	if err != nil {
		return nil, tolerance("limit", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trimmed, err := k.Smooth(k.Intersection(core, limit), params.SmoothFactor)
	if err != nil {
		return nil, tolerance("trimmed core", err)
	}
	if k.Volume(trimmed) == 0 {
		return nil, fmt.Errorf("hollow: %w: trimmed core is empty", kernel.ErrToleranceExceeded)
	}

	log.Info("hollowed", "thickness", thickness, "core_volume", k.Volume(trimmed))
	return k.Difference(s, trimmed), nil
}

// insetCore shrinks s by thickness in params.Steps equal steps, smoothing
// the resampled field after each one, and remeshes the result.
func insetCore(ctx context.Context, k kernel.Kernel, s kernel.Solid, thickness float64, params Params) (kernel.Solid, error) {
	step := thickness / float64(params.Steps)
	core := s
	for i := 0; i < params.Steps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		core, err = k.Smooth(k.Offset(core, -step), params.SmoothFactor)
		if err != nil {
			return nil, tolerance(fmt.Sprintf("core step %d", i+1), err)
		}
	}
	core, err := k.Remesh(core, params.VoxelSize)
	if err != nil {
		return nil, tolerance("core", err)
	}
	return core, nil
}

// tolerance reports a core that vanished as a thickness the solid cannot
// hold.
func tolerance(stage string, err error) error {
	if errors.Is(err, kernel.ErrGeometry) {
		return fmt.Errorf("hollow: %s: %w: %v", stage, kernel.ErrToleranceExceeded, err)
	}
	return fmt.Errorf("hollow: %s: %w", stage, err)
}
