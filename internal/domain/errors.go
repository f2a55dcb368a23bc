package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every coded error unwraps to exactly one of these so transports can map status codes with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalid         = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrPrecondition    = errors.New("precondition failed")
	ErrTooManyRequests = errors.New("too many requests")
)

// Error is a domain failure with a stable machine code.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func NewError(kind error, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Is matches any *Error carrying the same code, so sentinels still match after Withf.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Withf returns a copy with a formatted message and the same kind and code.
func (e *Error) Withf(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code of the first *Error in the chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MessageOf returns the *Error message when present, otherwise err.Error().
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HasKind reports whether err carries any of the domain kinds.
func HasKind(err error) bool {
	for _, k := range []error{ErrNotFound, ErrInvalid, ErrConflict, ErrForbidden, ErrUnauthorized, ErrPrecondition, ErrTooManyRequests} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
