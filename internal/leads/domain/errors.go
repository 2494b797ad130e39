// Package domain holds the lead-management types shared by the parser, the
// state machine, the dispatcher and the storage layer.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindValidation indicates user input that cannot be accepted.
	KindValidation
	// KindNotFound indicates the client record is missing or deleted.
	KindNotFound
	// KindExternal indicates a failure of the store, the gateway or the broker.
	KindExternal
	// KindProtocol indicates malformed postback data.
	KindProtocol
	// KindConflict indicates a clash with existing state (duplicate phone).
	KindConflict
)

var kindNames = map[Kind]string{
	KindUnknown:    "unknown",
	KindValidation: "validation",
	KindNotFound:   "not_found",
	KindExternal:   "external",
	KindProtocol:   "protocol",
	KindConflict:   "conflict",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is a domain error with a typed Kind.
// Message is user-facing for Validation and Protocol errors.
type Error struct {
	Kind    Kind
	Message string
	Op      string // Operation that failed (optional)
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Code is used as err_code in handler summaries.
func (e *Error) Code() string { return e.Kind.String() }

// HTTPStatus returns the HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindProtocol:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the operation and returns e.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// Validation creates a validation error.
func Validation(message string) *Error { return New(KindValidation, message) }

// NotFound creates a not found error.
func NotFound(message string) *Error { return New(KindNotFound, message) }

// Protocol creates a protocol error.
func Protocol(message string) *Error { return New(KindProtocol, message) }

// Conflict creates a conflict error.
func Conflict(message string) *Error { return New(KindConflict, message) }

// External wraps a dependency failure.
func External(op string, err error) *Error {
	return &Error{Kind: KindExternal, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// MessageOf returns the user-facing message carried by err, if any.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
