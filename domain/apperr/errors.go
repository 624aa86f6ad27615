// Package apperr defines the error kinds shared by every module.
//
// An *Error survives the JSON encoding used by mono request-reply services,
// so callers on the far side of a service container can still match it with
// errors.Is and map it to a transport status.
package apperr

import "errors"

// Kind classifies an error for the transport layer.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindDuplicate      Kind = "duplicate"
	KindAuthentication Kind = "authentication"
	KindNotFound       Kind = "not_found"
	KindInternal       Kind = "internal"
)

// InternalMessage is the only text an internal error exposes to callers.
const InternalMessage = "internal server error"

// Error is an error with a kind.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target carries the same kind and message. Two errors
// decoded from separate replies compare equal to the sentinel they came from.
func (e *Error) Is(target error) bool {
	var t *Error
	if e == nil || !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// KindOf returns the kind of err, or KindInternal for errors without one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// From converts err into a value safe to return to a caller. Errors without a
// kind collapse to a generic internal error so no detail leaks.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return &Error{Kind: e.Kind, Message: e.Message}
	}
	return &Error{Kind: KindInternal, Message: InternalMessage}
}

// Internal wraps an unexpected failure.
func Internal() *Error {
	return New(KindInternal, InternalMessage)
}
