package response

import (
	"errors"
)

// Error is a domain error that carries the HTTP status it should surface as.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

// IsClientError reports whether err maps to a 4xx status.
func IsClientError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code >= 400 && e.Code < 500
}

func NewError(code int, err string) error {
	return &Error{code, errors.New(err)}
}
