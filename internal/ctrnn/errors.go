package ctrnn

import (
	"errors"
	"fmt"
)

// Domain errors for network simulation.
var (
	// ErrShapeMismatch indicates input dimensions disagree with the configured sizes.
	ErrShapeMismatch = errors.New("ctrnn: input shape mismatch")

	// ErrEmptyBatch indicates a forward call with no sequences or no timesteps.
	ErrEmptyBatch = errors.New("ctrnn: empty input batch")

	// ErrInvalidConfig indicates a non-positive size or time constant.
	ErrInvalidConfig = errors.New("ctrnn: invalid configuration")
)

// ShapeError wraps ErrShapeMismatch with the offending position.
type ShapeError struct {
	Seq  int
	Step int
	Want int
	Got  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("ctrnn: sequence %d step %d: want %d values, got %d", e.Seq, e.Step, e.Want, e.Got)
}

func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}
