package domain

import "fmt"

// RowErrorKind enumerates the fatal error kinds a row can terminate
// with, §7.
type RowErrorKind string

const (
	ErrUnknownUnit          RowErrorKind = "UnknownUnit"
	ErrNoCandidates         RowErrorKind = "NoCandidates"
	ErrLLMTransport         RowErrorKind = "LLMTransport"
	ErrLLMMalformed         RowErrorKind = "LLMMalformed"
	ErrDecompositionInvalid RowErrorKind = "DecompositionInvalid"
	ErrUnitConversionFailed RowErrorKind = "UnitConversionFailed"
	ErrComponentFailed      RowErrorKind = "ComponentFailed"
	ErrCancelled            RowErrorKind = "Cancelled"
	ErrOutputTooLong        RowErrorKind = "OutputTooLong"
)

// RowError is the typed error every row-terminating failure is
// wrapped in, so the scheduler and job store can record both the kind
// (for metrics/branching) and the underlying cause (for logs).
type RowError struct {
	Kind RowErrorKind
	Err  error
}

func (e *RowError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// NewRowError builds a RowError wrapping the given cause under kind.
func NewRowError(kind RowErrorKind, err error) *RowError {
	return &RowError{Kind: kind, Err: err}
}

// NewRowErrorf builds a RowError with a formatted message as the
// cause.
func NewRowErrorf(kind RowErrorKind, format string, args ...interface{}) *RowError {
	return &RowError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the RowErrorKind from err, if it (or something it
// wraps) is a *RowError.
func KindOf(err error) (RowErrorKind, bool) {
	var rowErr *RowError
	for err != nil {
		if re, ok := err.(*RowError); ok {
			rowErr = re
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if rowErr == nil {
		return "", false
	}
	return rowErr.Kind, true
}
