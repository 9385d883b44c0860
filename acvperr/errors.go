// Package acvperr defines the failure taxonomy for the ACVP client.
//
// Every error that aborts a run maps to exactly one FailureClass. The class is
// printed with the diagnostic so that a failed gate can be triaged without
// reading the whole log.
package acvperr

import (
	"errors"
	"fmt"
)

// FailureClass is a stable failure category.
type FailureClass string

const (
	Load                  FailureClass = "LOAD_ERROR"
	UnsupportedParameters FailureClass = "UNSUPPORTED_PARAMETER_SET"
	Invocation            FailureClass = "INVOCATION_ERROR"
	Timeout               FailureClass = "TIMEOUT"
	MalformedOutput       FailureClass = "MALFORMED_OUTPUT"
	ComparisonMismatch    FailureClass = "COMPARISON_MISMATCH"
	Usage                 FailureClass = "USAGE_ERROR"
	InternalIO            FailureClass = "INTERNAL_IO"
	InternalError         FailureClass = "INTERNAL_ERROR"
)

// Classes lists every failure class.
func Classes() []FailureClass {
	return []FailureClass{
		Load, UnsupportedParameters, Invocation, Timeout, MalformedOutput,
		ComparisonMismatch, Usage, InternalIO, InternalError,
	}
}

// ExitCode returns the process exit code for this failure class. The gate is
// binary: anything that aborts a run exits 1.
func (fc FailureClass) ExitCode() int {
	return 1
}

// Error is the structured error type for all aborting failures.
type Error struct {
	Class   FailureClass
	Message string
	// Detail carries multi-line diagnostics (captured stderr, diffs). It is
	// not part of Error() so that one-line logs stay one line.
	Detail string
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("acvp: %s: %s: %v", e.Class, e.Message, e.Cause)
	}
	return fmt.Sprintf("acvp: %s: %s", e.Class, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given class and message.
func New(class FailureClass, message string) *Error {
	return &Error{Class: class, Message: message}
}

// Newf creates a new Error with a formatted message.
func Newf(class FailureClass, format string, args ...any) *Error {
	return &Error{Class: class, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(class FailureClass, message string, cause error) *Error {
	return &Error{Class: class, Message: message, Cause: cause}
}

// WithDetail returns e after attaching detail.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// ClassOf returns the class of the first *Error in err's chain, or
// InternalError when err is unclassified.
func ClassOf(err error) FailureClass {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return InternalError
}

// Is reports whether err carries the given class.
func Is(err error, class FailureClass) bool {
	var e *Error
	return errors.As(err, &e) && e.Class == class
}
