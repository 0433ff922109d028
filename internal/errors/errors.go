// Package errors defines the failure kinds raised while measuring features.
//
// Per-component failures (MalformedContour, DegenerateMeasurement) are local:
// the caller skips the component and keeps scanning. Structural failures
// (DimensionMismatch, MissingInput, InvalidInput) abort the run.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind represents different categories of analysis failures
type Kind string

const (
	KindMalformedContour      Kind = "malformed_contour"
	KindDegenerateMeasurement Kind = "degenerate_measurement"
	KindDimensionMismatch     Kind = "dimension_mismatch"
	KindMissingInput          Kind = "missing_input"
	KindInvalidInput          Kind = "invalid_input"
	KindInternal              Kind = "internal"
)

// AnalysisError represents a structured analysis failure
type AnalysisError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// Local reports whether the failure only affects the component it was raised for.
func (e *AnalysisError) Local() bool {
	return e.Kind == KindMalformedContour || e.Kind == KindDegenerateMeasurement
}

// NewMalformedContour creates a failure for a boundary with too few points
func NewMalformedContour(message string) *AnalysisError {
	return &AnalysisError{Kind: KindMalformedContour, Message: message}
}

// NewDegenerateMeasurement creates a failure for an estimator with no valid samples
func NewDegenerateMeasurement(message string) *AnalysisError {
	return &AnalysisError{Kind: KindDegenerateMeasurement, Message: message}
}

// NewDimensionMismatch creates a failure for two grids of different shape
func NewDimensionMismatch(wantRows, wantCols, gotRows, gotCols int) *AnalysisError {
	return &AnalysisError{
		Kind:    KindDimensionMismatch,
		Message: fmt.Sprintf("expected %dx%d, got %dx%d", wantRows, wantCols, gotRows, gotCols),
	}
}

// NewMissingInput creates a failure for a persisted input that could not be read
func NewMissingInput(message string, cause error) *AnalysisError {
	return &AnalysisError{Kind: KindMissingInput, Message: message, Cause: cause}
}

// NewInvalidInput creates a failure for a bad argument or configuration value
func NewInvalidInput(message string, cause error) *AnalysisError {
	return &AnalysisError{Kind: KindInvalidInput, Message: message, Cause: cause}
}

// NewInternal creates a failure for an unexpected condition
func NewInternal(message string, cause error) *AnalysisError {
	return &AnalysisError{Kind: KindInternal, Message: message, Cause: cause}
}

// IsKind checks if err, or any error it wraps, is an AnalysisError of the given kind
func IsKind(err error, kind Kind) bool {
	var ae *AnalysisError
	if stderrors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// KindOf extracts the failure kind, or KindInternal for foreign errors
func KindOf(err error) Kind {
	var ae *AnalysisError
	if stderrors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsLocal reports whether err should only skip the current component.
func IsLocal(err error) bool {
	var ae *AnalysisError
	return stderrors.As(err, &ae) && ae.Local()
}
