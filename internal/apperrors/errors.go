package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorType represents the category of an application error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeUpstream     ErrorType = "UPSTREAM"
	ErrorTypeInternal     ErrorType = "INTERNAL"
)

// AppError is an error with a category, an optional offending field and,
// for upstream failures, the raw upstream body.
type AppError struct {
	Type    ErrorType
	Message string
	Field   string
	Payload json.RawMessage
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may repeat the operation unchanged.
func (e *AppError) Retryable() bool {
	return e.Type == ErrorTypeUpstream
}

func NotFound(err error) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: err.Error(), Err: err}
}

func Validation(field string, err error) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: err.Error(), Field: field, Err: err}
}

func Conflict(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeConflict, Message: message, Err: err}
}

func Unauthorized(message string) *AppError {
	return &AppError{Type: ErrorTypeUnauthorized, Message: message}
}

func Forbidden(message string) *AppError {
	return &AppError{Type: ErrorTypeForbidden, Message: message}
}

func Upstream(message string, payload json.RawMessage, err error) *AppError {
	return &AppError{Type: ErrorTypeUpstream, Message: message, Payload: payload, Err: err}
}

func Internal(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// TypeOf returns the category of err, INTERNAL when it carries none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// HTTPStatus maps an error to its response status code.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeForbidden:
		return http.StatusForbidden
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as a JSON error body. Internal errors are not echoed to the client.
func Respond(c echo.Context, err error) error {
	status := HTTPStatus(err)
	body := echo.Map{}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type != ErrorTypeInternal {
		body["error"] = appErr.Message
		if appErr.Field != "" {
			body["field"] = appErr.Field
		}
		if len(appErr.Payload) > 0 {
			body["gateway_response"] = appErr.Payload
		}
	} else {
		body["error"] = "internal server error"
	}
	return c.JSON(status, body)
}
