package embed

import (
	"errors"
	"fmt"
)

// Domain errors for embedding operations.
var (
	// ErrDimensionMismatch indicates matrices or vectors whose shapes disagree.
	ErrDimensionMismatch = errors.New("embed: dimension mismatch")

	// ErrInvalidWeight indicates a non-positive or non-finite particle weight.
	ErrInvalidWeight = errors.New("embed: weights must be positive and finite")

	// ErrInvalidConfig indicates schedule parameters outside their valid range.
	ErrInvalidConfig = errors.New("embed: invalid configuration")

	// ErrEmpty indicates a matrix with no rows or no columns.
	ErrEmpty = errors.New("embed: empty matrix")
)

// ContractError reports a broken shape invariant detected mid-simulation.
// It is raised with panic, never returned.
type ContractError struct {
	What     string
	Got      [2]int
	Expected [2]int
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("embed: contract violation: %s is %dx%d, expected %dx%d",
		e.What, e.Got[0], e.Got[1], e.Expected[0], e.Expected[1])
}

func (e *ContractError) Unwrap() error {
	return ErrDimensionMismatch
}
