package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorLocationUnavailable  ErrorCode = "LOCATION_UNAVAILABLE"
	ErrorGeocodeNotFound      ErrorCode = "GEOCODE_NOT_FOUND"
	ErrorNoCandidateLocations ErrorCode = "NO_CANDIDATE_LOCATIONS"
	ErrorBackendUnreachable   ErrorCode = "BACKEND_UNREACHABLE"
	ErrorInputRejected        ErrorCode = "INPUT_REJECTED"
	ErrorSuperseded           ErrorCode = "SUPERSEDED"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// NewInputRejected reports a submission that was ignored by admission control.
func NewInputRejected(reason string) *Error {
	return newError(ErrorInputRejected, reason, nil)
}

// CodeOf returns the ErrorCode carried by err, or ErrorBackendUnreachable for
// any error that did not originate in this package.
func CodeOf(err error) ErrorCode {
	var ucErr *Error
	if errors.As(err, &ucErr) {
		return ucErr.Code
	}
	return ErrorBackendUnreachable
}
