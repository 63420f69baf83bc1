package kernel

import "errors"

// Error taxonomy shared by every package. Call sites wrap these with
// context; callers test with errors.Is.
var (
	// ErrInput reports an invalid cut specification or parameter. It is
	// always raised before any solid is built.
	ErrInput = errors.New("invalid input")

	// ErrGeometry reports a degenerate, empty or unresolvable result from
	// a geometry operation.
	ErrGeometry = errors.New("geometry error")

	// ErrToleranceExceeded reports a parameter that is incompatible with
	// the local thickness of a solid.
	ErrToleranceExceeded = errors.New("tolerance exceeded")
)
