package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindReference    Kind = "reference"
	KindNotFound     Kind = "not_found"
	KindUnavailable  Kind = "unavailable"
	KindIntegrity    Kind = "integrity"
	KindBadRequest   Kind = "bad_request"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

// Error is the typed error returned across package boundaries. The Kind decides
// how a caller (or the REST layer) reacts to it.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperror.NotFound(""))
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func Validation(msg string) error { return newError(KindValidation, msg, nil) }
func Reference(msg string, cause error) error { return newError(KindReference, msg, cause) }
func NotFound(msg string) error { return newError(KindNotFound, msg, nil) }
func Unavailable(msg string, cause error) error { return newError(KindUnavailable, msg, cause) }
func Integrity(msg string) error { return newError(KindIntegrity, msg, nil) }
func BadRequest(msg string) error { return newError(KindBadRequest, msg, nil) }
func Unauthorized(msg string) error { return newError(KindUnauthorized, msg, nil) }
func Internal(msg string) error { return newError(KindInternal, msg, nil) }
func InternalError(msg string, cause error) error { return newError(KindInternal, msg, cause) }

func Validationf(format string, args ...any) error {
	return newError(KindValidation, fmt.Sprintf(format, args...), nil)
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindReference, KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
