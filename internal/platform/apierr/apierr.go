// Package apierr defines the closed error taxonomy shared by every service in
// studyforge. Handlers never invent HTTP status codes themselves: they translate
// a *apierr.Error's Kind at the edge, via StatusFor.
package apierr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	BadInput        Kind = "bad_input"
	NotFound        Kind = "not_found"
	Conflict        Kind = "conflict"
	UpstreamTimeout Kind = "upstream_timeout"
	UpstreamError   Kind = "upstream_error"
	Generation      Kind = "generation_error"
	Internal        Kind = "internal_error"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Newf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func BadInputf(format string, args ...any) *Error {
	return &Error{Kind: BadInput, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: Conflict, Message: fmt.Sprintf(format, args...)}
}

func UpstreamTimeoutf(err error, format string, args ...any) *Error {
	return &Error{Kind: UpstreamTimeout, Message: fmt.Sprintf(format, args...), Err: err}
}

func UpstreamErrorf(err error, format string, args ...any) *Error {
	return &Error{Kind: UpstreamError, Message: fmt.Sprintf(format, args...), Err: err}
}

func Generationf(format string, args ...any) *Error {
	return &Error{Kind: Generation, Message: fmt.Sprintf(format, args...)}
}

func Internalf(err error, format string, args ...any) *Error {
	return &Error{Kind: Internal, Message: fmt.Sprintf(format, args...), Err: err}
}

// As extracts a *Error from an error chain, the way errors.As would.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the taxonomy kind for err, defaulting to Internal when err
// does not carry one.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Internal
}

// StatusFor maps a taxonomy Kind to its HTTP status code per the error
// handling contract. The API layer is the only place this is consulted.
func StatusFor(kind Kind) int {
	switch kind {
	case BadInput:
		return 400
	case NotFound:
		return 404
	case Conflict:
		return 409
	case UpstreamTimeout:
		return 504
	case UpstreamError:
		return 502
	case Generation:
		return 422
	default:
		return 500
	}
}
