// Package errs defines the error taxonomy shared by the dashboard's data
// sources and its configuration layer.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes an error for propagation decisions.
type Kind string

const (
	// NetworkFailure is a rejected request or a non-2xx response.
	NetworkFailure Kind = "NETWORK"
	// MalformedResponse is a body that does not match the expected shape.
	// Callers treat it exactly like NetworkFailure.
	MalformedResponse Kind = "MALFORMED"
	// SensorUnavailable marks a metric the source cannot provide. It is
	// informational and never fails a fetch.
	SensorUnavailable Kind = "SENSOR"
	// Config is an invalid or unreadable configuration.
	Config Kind = "CONFIG"
)

// Error is a categorized error with the operation that produced it.
type Error struct {
	Kind    Kind
	Op      string // e.g. "metrics/history"
	Message string
	Cause   error
}

// New creates an error without an underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap attaches a kind and operation to err.
func Wrap(err error, kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsFetchFailure reports whether err should fail a fetch: both transport
// and shape problems count.
func IsFetchFailure(err error) bool {
	return Is(err, NetworkFailure) || Is(err, MalformedResponse)
}
