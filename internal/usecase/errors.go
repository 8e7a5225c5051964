package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorNotFound     ErrorCode = "NOT_FOUND"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
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

func NewError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// ErrorBody is the JSON body both transports send for a failed request.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (e *Error) Body() ErrorBody {
	return ErrorBody{Error: string(e.Code), Details: e.Reason}
}

// Classify maps any error returned by the service to an HTTP status and the
// usecase error describing it. Unknown errors become INTERNAL_ERROR.
func Classify(err error) (int, *Error) {
	var ue *Error
	if !errors.As(err, &ue) {
		ue = NewError(ErrorInternal, "unexpected_error", err)
	}
	switch ue.Code {
	case ErrorInvalidInput:
		return http.StatusBadRequest, ue
	case ErrorNotFound:
		return http.StatusNotFound, ue
	case ErrorUpstream:
		return http.StatusBadGateway, ue
	default:
		return http.StatusInternalServerError, ue
	}
}
