// Package apperr is the error taxonomy shared by services and the HTTP layer.
package apperr

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindConflict
	KindNotFound
	KindDownstream
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindDownstream:
		return "downstream"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindDownstream:
		return http.StatusBadGateway
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error { return New(KindValidation, msg) }
func Unauthenticated() *Error { return New(KindUnauthenticated, "authentication required") }
func Forbidden() *Error { return New(KindForbidden, "access denied") }
func Conflict(msg string) *Error { return New(KindConflict, msg) }
func NotFound(msg string) *Error { return New(KindNotFound, msg) }

// Downstream hides the cause from callers; the cause stays available for logging.
func Downstream(err error) *Error {
	return Wrap(KindDownstream, err, "upstream service failed")
}

func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage is what may be shown to a caller.
func PublicMessage(err error) string {
	var e *Error
	if !stderrors.As(err, &e) {
		return "internal error"
	}
	switch e.Kind {
	case KindDownstream:
		return "upstream service failed"
	case KindInternal:
		return "internal error"
	}
	return e.Message
}
