package cubit

import (
	"math"

	"github.com/chazu/chopit/pkg/kernel"
)

// Box is an axis-aligned cutting box given by its center and extents.
type Box struct {
	Center [3]float64
	Size   [3]float64
}

// CuttingBoxes tiles the extent dims (centered on center) along axis with
// boxes of width size. The first box sits at the positive end of the
// extent and box i is shifted by i*relativeOffset*size, so an offset just
// below -1 leaves a sliver gap between neighbors. On the other axes the
// boxes overhang the extent by margin.
func CuttingBoxes(center, dims [3]float64, axis kernel.Axis, size, relativeOffset, margin float64) []Box {
	a := int(axis)
	count := int(math.Floor(dims[a]/size)) + 1

	first := center
	first[a] = center[a] - size/2 + dims[a]/2

	ext := [3]float64{dims[0] + margin, dims[1] + margin, dims[2] + margin}
	ext[a] = size

	boxes := make([]Box, count)
	for i := range boxes {
		c := first
		c[a] += float64(i) * relativeOffset * size
		boxes[i] = Box{Center: c, Size: ext}
	}
	return boxes
}

// Solid builds the cutting box with k.
func (b Box) Solid(k kernel.Kernel) kernel.Solid {
	return k.Translate(k.Box(b.Size[0], b.Size[1], b.Size[2]), b.Center[0], b.Center[1], b.Center[2])
}
