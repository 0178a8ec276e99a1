// ABOUTME: Closed set of application error kinds with fixed HTTP status and code
// ABOUTME: Provides constructors, fluent context helpers, and the JSON error body

package apperr

import (
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error identifier.
type Code string

const (
	CodeNotFound     Code = "NOT_FOUND"
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeDuplicate    Code = "DUPLICATE_ENTRY"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// statusByCode is the single source of truth for code -> HTTP status.
var statusByCode = map[Code]int{
	CodeNotFound:     http.StatusNotFound,
	CodeBadRequest:   http.StatusBadRequest,
	CodeUnauthorized: http.StatusUnauthorized,
	CodeForbidden:    http.StatusForbidden,
	CodeValidation:   http.StatusBadRequest,
	CodeDuplicate:    http.StatusBadRequest,
	CodeInternal:     http.StatusInternalServerError,
}

// StatusFromCode returns the HTTP status for a code. Unknown codes map to 500.
func StatusFromCode(code Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FieldError describes one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error is the application error type surfaced at HTTP and gRPC boundaries.
type Error struct {
	Message    string
	Code       Code
	HTTPStatus int
	Context    map[string]any
	Fields     []FieldError
	cause      error
}

func newError(code Code, msg string) *Error {
	return &Error{
		Message:    msg,
		Code:       code,
		HTTPStatus: StatusFromCode(code),
	}
}

// NotFound reports a missing resource.
func NotFound(msg string) *Error { return newError(CodeNotFound, msg) }

// BadRequest reports a malformed or semantically invalid request.
func BadRequest(msg string) *Error { return newError(CodeBadRequest, msg) }

// Unauthorized reports a missing or invalid identity.
func Unauthorized(msg string) *Error { return newError(CodeUnauthorized, msg) }

// Forbidden reports an identity lacking permission.
func Forbidden(msg string) *Error { return newError(CodeForbidden, msg) }

// Duplicate reports a uniqueness violation.
func Duplicate(msg string) *Error { return newError(CodeDuplicate, msg) }

// Internal reports an unexpected failure.
func Internal(msg string) *Error { return newError(CodeInternal, msg) }

// Validation reports one or more field-level violations.
func Validation(msg string, fields ...FieldError) *Error {
	e := newError(CodeValidation, msg)
	e.Fields = fields
	return e
}

// NotFoundf formats a NotFound message.
func NotFoundf(format string, args ...any) *Error {
	return NotFound(fmt.Sprintf(format, args...))
}

// BadRequestf formats a BadRequest message.
func BadRequestf(format string, args ...any) *Error {
	return BadRequest(fmt.Sprintf(format, args...))
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.Code, e.HTTPStatus, e.Message, e.cause)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.HTTPStatus, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// WithCause records the underlying error and returns the receiver.
func (e *Error) WithCause(err error) *Error {
	if e == nil {
		return nil
	}
	e.cause = err
	return e
}

// WithContext sets a structured logging value and returns the receiver.
func (e *Error) WithContext(key string, value any) *Error {
	if e == nil {
		return nil
	}
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ErrorBody is the "error" member of a failure response.
type ErrorBody struct {
	Message string       `json:"message"`
	Code    Code         `json:"code"`
	Status  int          `json:"status"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// Response is the failure envelope written to HTTP clients.
type Response struct {
	Status string     `json:"status"`
	Data   any        `json:"data"`
	Error  *ErrorBody `json:"error"`
}

// Body builds the failure envelope for this error.
func (e *Error) Body() Response {
	return Response{
		Status: "error",
		Data:   nil,
		Error: &ErrorBody{
			Message: e.Message,
			Code:    e.Code,
			Status:  e.HTTPStatus,
			Errors:  e.Fields,
		},
	}
}

// LogAttrs returns slog key/value pairs describing the error.
func (e *Error) LogAttrs() []any {
	attrs := []any{"code", string(e.Code), "status", e.HTTPStatus, "message", e.Message}
	if e.cause != nil {
		attrs = append(attrs, "cause", e.cause.Error())
	}
	for k, v := range e.Context {
		attrs = append(attrs, k, v)
	}
	if len(e.Fields) > 0 {
		attrs = append(attrs, "field_errors", len(e.Fields))
	}
	return attrs
}
