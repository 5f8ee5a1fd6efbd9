// Package api defines the error bodies returned by the snapshot read API
package api

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Status sentinels; an Error matches the one for its own status with errors.Is
var (
	ErrBadRequest          = errors.New(http.StatusText(http.StatusBadRequest))
	ErrNotFound            = errors.New(http.StatusText(http.StatusNotFound))
	ErrInternalServerError = errors.New(http.StatusText(http.StatusInternalServerError))
)

var statusSentinels = map[int]error{
	http.StatusBadRequest:          ErrBadRequest,
	http.StatusNotFound:            ErrNotFound,
	http.StatusInternalServerError: ErrInternalServerError,
}

// Error is an API error. Client errors show their cause to the caller;
// server errors show only the status text and keep the cause for the logs.
type Error struct {
	status int
	public string
	cause  error
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) HTTPCode() int { return e.status }
func (e *Error) Error() string { return e.public }
func (e *Error) Cause() error  { return e.cause }
func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Is(target error) bool {
	sentinel, ok := statusSentinels[e.status]
	return ok && target == sentinel
}

func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorBody{Code: e.status, Message: e.public})
}

func BadRequest(cause error) *Error {
	return exposed(http.StatusBadRequest, cause)
}

func NotFound(cause error) *Error {
	return exposed(http.StatusNotFound, cause)
}

func InternalServerError(cause error) *Error {
	return &Error{
		status: http.StatusInternalServerError,
		public: http.StatusText(http.StatusInternalServerError),
		cause:  cause,
	}
}

// Wrap returns the API error inside err, or hides err behind InternalServerError
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return InternalServerError(err)
}

func exposed(status int, cause error) *Error {
	return &Error{status: status, public: cause.Error(), cause: cause}
}
