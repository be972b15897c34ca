package store

import "fmt"

// ErrDimensionMismatch indicates an embedding whose length does not match the
// store's configured dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// ErrInvalidCapacity indicates an invalid per-class retention bound.
type ErrInvalidCapacity struct {
	MaxPerClass int
}

func (e *ErrInvalidCapacity) Error() string {
	return fmt.Sprintf("invalid max samples per class: %d", e.MaxPerClass)
}
