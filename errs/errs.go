// Package errs defines the failure taxonomy shared by every component.
//
// An Error carries a Kind; errors.Is matches two Errors by Kind so callers can
// test err against the Err* values regardless of message or cause.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable failure class.
type Kind string

const (
	// KindConnection: attach denied or the process is gone. Non-fatal, surfaced as a boolean.
	KindConnection Kind = "connection"
	// KindConfigNotFound: the offset catalog document does not exist.
	KindConfigNotFound Kind = "config_not_found"
	// KindConfigParse: the offset catalog document is malformed or inconsistent.
	KindConfigParse Kind = "config_parse"
	// KindRead: a memory read failed or transferred fewer bytes than requested.
	KindRead Kind = "read"
	// KindResolution: a required module, thread or pointer could not be located.
	KindResolution Kind = "resolution"
)

var (
	ErrConnection     = &Error{Kind: KindConnection}
	ErrConfigNotFound = &Error{Kind: KindConfigNotFound}
	ErrConfigParse    = &Error{Kind: KindConfigParse}
	ErrRead           = &Error{Kind: KindRead}
	ErrResolution     = &Error{Kind: KindResolution}
)

// Error is the component-qualified error type.
type Error struct {
	Kind    Kind   // Failure class
	Op      string // Component operation, e.g. "memaccess.ReadBytes"
	Message string // Human-readable detail
	Cause   error  // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an error without a cause.
func New(kind Kind, op string, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an error that wraps an underlying cause.
func Wrap(kind Kind, op string, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// KindOf returns the kind of the first Error in the chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
