package random

import "fmt"

// EmptyInputError is returned when a pick is requested from an empty
// collection.
type EmptyInputError struct {
	Op string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s: empty input", e.Op)
}

// InvalidRangeError is returned when the upper bound of a range is below
// its lower bound.
type InvalidRangeError struct {
	Op       string
	Min, Max any
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("%s: invalid range [%v, %v]", e.Op, e.Min, e.Max)
}

// InvalidWeightsError is returned for negative weights or a non-positive
// weight sum.
type InvalidWeightsError struct {
	Reason string
}

func (e *InvalidWeightsError) Error() string {
	return "weighted pick: " + e.Reason
}
