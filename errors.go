package fewshot

import (
	"errors"
	"fmt"

	"github.com/hupe1980/fewshot/persistence"
	"github.com/hupe1980/fewshot/store"
)

// ErrNoExtractor is returned by the byte-input operations when the
// classifier was built without an Extractor.
var ErrNoExtractor = errors.New("no extractor configured")

// ErrShapeMismatch indicates an embedding whose dimensionality does not match
// the classifier's configured dimension.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrShapeMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrShapeMismatch) Error() string {
	return fmt.Sprintf("embedding shape mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrShapeMismatch) Unwrap() error { return e.cause }

// ErrValidation indicates an invalid argument or option value.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrValidation struct {
	Field  string
	Reason string
	cause  error
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ErrValidation) Unwrap() error { return e.cause }

// ErrCorruptArchive indicates a model archive that failed structural or
// checksum validation.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrCorruptArchive struct {
	Path  string
	cause error
}

func (e *ErrCorruptArchive) Error() string {
	return fmt.Sprintf("corrupt model archive: %s", e.Path)
}

func (e *ErrCorruptArchive) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Shape normalization.
	var dm *store.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrShapeMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	return err
}

func translateLoadError(path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrCorrupt) {
		return &ErrCorruptArchive{Path: path, cause: err}
	}
	return translateError(err)
}
