// Package simerr provides the coded error taxonomy shared by the simulator.
//
// Callers match errors by code with errors.Is against the exported sentinels:
//
//	if errors.Is(err, simerr.ErrNoSpace) { ... }
package simerr

import "fmt"

// Code is a machine-readable error class.
type Code string

const (
	// CodeConfiguration marks malformed or missing configuration.
	CodeConfiguration Code = "CONFIGURATION"

	// CodePlacementExhausted marks a bounded placement or division search
	// that found no free grid cell.
	CodePlacementExhausted Code = "PLACEMENT_EXHAUSTED"

	// CodeInvariantViolation marks a parameter or runtime value outside its
	// permitted domain. Always fatal.
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"
)

// Sentinels for errors.Is matching.
var (
	ErrConfiguration = &Error{Code: CodeConfiguration, Message: "configuration error"}
	ErrNoSpace       = &Error{Code: CodePlacementExhausted, Message: "no space available"}
	ErrInvariant     = &Error{Code: CodeInvariantViolation, Message: "invariant violation"}
)

// Error is the coded simulator error.
type Error struct {
	Code    Code   // Machine-readable class
	Field   string // Offending parameter or component, if known
	Message string // Human-readable detail
	Cause   error  // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Configf creates a configuration error for field.
func Configf(field, format string, args ...any) *Error {
	return &Error{Code: CodeConfiguration, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Invariantf creates an invariant violation for field.
func Invariantf(field, format string, args ...any) *Error {
	return &Error{Code: CodeInvariantViolation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NoSpace creates a placement exhaustion error describing what was being placed.
func NoSpace(what string, format string, args ...any) *Error {
	return &Error{Code: CodePlacementExhausted, Field: what, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CheckProbability returns an invariant violation unless p lies in [0,1].
func CheckProbability(field string, p float64) error {
	if p < 0 || p > 1 || p != p {
		return Invariantf(field, "probability must be in [0,1], got %v", p)
	}
	return nil
}
