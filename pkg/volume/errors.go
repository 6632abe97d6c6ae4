package volume

import "fmt"

// ShapeMismatchError reports two volumes or arrays with differing
// dimensions passed to an operation that requires equal shape.
type ShapeMismatchError struct {
	Want Shape
	Got  Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: want %dx%dx%d, got %dx%dx%d",
		e.Want.Width, e.Want.Height, e.Want.Depth,
		e.Got.Width, e.Got.Height, e.Got.Depth)
}

// EmptyMaskError reports a label selection that covers zero voxels, so
// no bounding box or seeds can be derived from it.
type EmptyMaskError struct{}

func (e *EmptyMaskError) Error() string {
	return "mask selects no voxels"
}

// InvalidThresholdError reports a threshold or quantile parameter
// outside its allowed range or ordering.
type InvalidThresholdError struct {
	Param   string
	Value   float64
	Allowed string
}

func (e *InvalidThresholdError) Error() string {
	return fmt.Sprintf("invalid parameter %s = %g, allowed %s", e.Param, e.Value, e.Allowed)
}

// CapacityExceededError reports that the observed label range would
// require statistics arrays larger than the configured ceiling.
type CapacityExceededError struct {
	Labels int
	Limit  int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("label capacity exceeded: %d labels, limit %d", e.Labels, e.Limit)
}
