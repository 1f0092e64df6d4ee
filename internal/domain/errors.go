package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrEmbeddingUnavailable is returned when the embedding provider call fails.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrDimensionMismatch is matched by every *DimensionMismatchError.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrDegenerateVector is returned for fingerprints whose similarity is
	// undefined: empty, zero magnitude, or holding non-finite values.
	ErrDegenerateVector = errors.New("degenerate vector")

	// ErrArtifactMissing is returned when a matched entry has no stored artifact.
	ErrArtifactMissing = errors.New("artifact missing for stored entry")

	// ErrStoreUnavailable is returned when a row or blob store call fails.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDuplicateID is returned when an id is re-registered with different text.
	ErrDuplicateID = errors.New("id already registered with different text")

	// ErrRenderFailed is returned when the renderer cannot encode the text.
	ErrRenderFailed = errors.New("render failed")

	ErrNotFound = errors.New("not found")
)

// ValidationError describes a malformed or out-of-range request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// DimensionMismatchError indicates two fingerprints of different length.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }
