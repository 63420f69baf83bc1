package curvecut

import (
	"context"
	"fmt"

	"github.com/chazu/chopit/pkg/kernel"
	"github.com/chazu/chopit/pkg/meshutil"
)

// Chopper holds a target solid and the cutting walls recorded against it.
// Walls are only subtracted when the cut is finalized.
type Chopper struct {
	k      kernel.Kernel
	target kernel.Solid
	name   string
	walls  []kernel.Solid
}

// NewChopper starts a cut of target, recorded under name.
func NewChopper(k kernel.Kernel, target kernel.Solid, name string) *Chopper {
	return &Chopper{k: k, target: target, name: name}
}

// AddWall records a wall to subtract.
func (c *Chopper) AddWall(w kernel.Solid) {
	c.walls = append(c.walls, w)
}

// Pending returns the number of walls not yet applied.
func (c *Chopper) Pending() int {
	return len(c.walls)
}

// Target returns the solid the walls will be cut from.
func (c *Chopper) Target() kernel.Solid {
	return c.target
}

// Finalize subtracts every pending wall from the target and separates the
// result into fragments. The target itself is not modified.
func (c *Chopper) Finalize(ctx context.Context) ([]meshutil.Fragment, error) {
	cut := c.target
	for _, w := range c.walls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cut = c.k.Difference(cut, w)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frags, _, err := meshutil.Separate(c.k, cut, c.name, "curve")
	if err != nil {
		return nil, fmt.Errorf("curvecut: finalize: %w", err)
	}
	if len(frags) == 0 {
		return nil, fmt.Errorf("curvecut: finalize: %w: cut left no solid", kernel.ErrGeometry)
	}
	c.walls = nil
	return frags, nil
}
