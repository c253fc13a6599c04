// Package fault classifies failures of the access gate and the object store.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the failure classification surfaced to callers.
type Kind int

const (
	// Internal is an unexpected fault inside the gate/store logic itself.
	Internal Kind = iota
	Unauthenticated
	Forbidden
	NotFound
	PreconditionMissing
	Transport
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case PreconditionMissing:
		return "precondition_missing"
	case Transport:
		return "transport_failure"
	default:
		return "internal_fault"
	}
}

// Status returns the HTTP status a handler should respond with.
func (k Kind) Status() int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case PreconditionMissing:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the stable machine-readable response code.
func (k Kind) Code() string {
	switch k {
	case Unauthenticated:
		return "AUTH_REQUIRED"
	case Forbidden:
		return "FORBIDDEN"
	case NotFound:
		return "NOT_FOUND"
	case PreconditionMissing:
		return "MISSING_PARAMETERS"
	case Transport:
		return "STORAGE_ERROR"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "upload"
	Message string // human-readable summary
	Err     error  // underlying cause, if any
}

// New returns a classified error without an underlying cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Message: msg}
}

// Wrap classifies err.
func Wrap(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

func (e *Error) Error() string {
	var s string
	switch {
	case e.Op != "" && e.Message != "":
		s = fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Op != "":
		s = e.Op + ": " + e.Kind.String()
	case e.Message != "":
		s = e.Message
	default:
		s = e.Kind.String()
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Detail returns the underlying error text, empty when there is none.
func (e *Error) Detail() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// KindOf returns the kind of err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// As returns the classified error, wrapping unclassified errors as Internal.
func As(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return Wrap(Internal, "", "internal server error", err)
}
