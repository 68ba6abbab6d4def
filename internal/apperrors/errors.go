package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kinds. Compare with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrValidation        = errors.New("validation failed")
	ErrUnavailable       = errors.New("upstream unavailable")
)

// Error carries a kind, the operation that raised it and a message safe to
// show to API callers.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func newf(kind error, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...interface{}) *Error {
	return newf(ErrNotFound, op, format, args...)
}

func InvalidState(op, format string, args ...interface{}) *Error {
	return newf(ErrInvalidState, op, format, args...)
}

func Conflict(op, format string, args ...interface{}) *Error {
	return newf(ErrConflict, op, format, args...)
}

func InsufficientStock(op, format string, args ...interface{}) *Error {
	return newf(ErrInsufficientStock, op, format, args...)
}

func Unauthorized(op, format string, args ...interface{}) *Error {
	return newf(ErrUnauthorized, op, format, args...)
}

func Forbidden(op, format string, args ...interface{}) *Error {
	return newf(ErrForbidden, op, format, args...)
}

func Validation(op, format string, args ...interface{}) *Error {
	return newf(ErrValidation, op, format, args...)
}

// Unavailable wraps a failure of an external collaborator such as the mail
// transport.
func Unavailable(op string, err error, format string, args ...interface{}) *Error {
	e := newf(ErrUnavailable, op, format, args...)
	e.Err = err
	return e
}

// Message returns the caller-facing message of err, falling back to
// err.Error() for errors that did not originate here.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return e.Kind.Error()
	}
	return err.Error()
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrInsufficientStock):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
