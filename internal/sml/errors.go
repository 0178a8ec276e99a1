// ABOUTME: Registry error family with one machine code per failure kind
// ABOUTME: Maps onto the application taxonomy through AppError

package sml

import (
	"fmt"
	"strings"

	"github.com/2389/sml-gateway/internal/apperr"
)

// ErrorCode identifies a registry failure.
type ErrorCode string

const (
	CodeNotFound              ErrorCode = "SML_NOT_FOUND"
	CodeRegistryLocked        ErrorCode = "SML_REGISTRY_LOCKED"
	CodeValidationFailed      ErrorCode = "SML_VALIDATION_FAILED"
	CodeExecutionFailed       ErrorCode = "SML_EXECUTION_FAILED"
	CodePermissionDenied      ErrorCode = "SML_PERMISSION_DENIED"
	CodeDuplicateRegistration ErrorCode = "SML_DUPLICATE_REGISTRATION"
	CodeInvalidDefinition     ErrorCode = "SML_INVALID_DEFINITION"
)

// Error is returned by every failing registry call.
type Error struct {
	Code       ErrorCode
	Path       string
	Message    string
	Violations []Violation
	cause      error
}

var _ apperr.Provider = (*Error)(nil)

func newError(code ErrorCode, path, format string, args ...any) *Error {
	return &Error{Code: code, Path: path, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports that nothing is registered at path.
func NotFoundError(path, kind string) *Error {
	return newError(CodeNotFound, path, "%s %s not found", kind, path)
}

// ValidationError reports every violation found for path.
func ValidationError(path string, violations []Violation) *Error {
	names := make([]string, len(violations))
	for i, v := range violations {
		names[i] = v.Param
	}
	err := newError(CodeValidationFailed, path, "invalid parameters for %s: %s", path, strings.Join(names, ", "))
	err.Violations = violations
	return err
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Code, e.Path, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches another *Error with the same code, so errors.Is(err, sml.ErrLocked) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Path == "" && t.Code == e.Code
}

// Sentinels for errors.Is comparisons by code.
var (
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrLocked            = &Error{Code: CodeRegistryLocked}
	ErrValidation        = &Error{Code: CodeValidationFailed}
	ErrExecution         = &Error{Code: CodeExecutionFailed}
	ErrPermissionDenied  = &Error{Code: CodePermissionDenied}
	ErrDuplicate         = &Error{Code: CodeDuplicateRegistration}
	ErrInvalidDefinition = &Error{Code: CodeInvalidDefinition}
)

// AppError maps the registry failure onto the application taxonomy.
// Execution failures return nil so the handler's own error is translated.
func (e *Error) AppError() *apperr.Error {
	var out *apperr.Error
	switch e.Code {
	case CodeNotFound:
		out = apperr.NotFound(e.Message)
	case CodeValidationFailed:
		fields := make([]apperr.FieldError, 0, len(e.Violations))
		for _, v := range e.Violations {
			fields = append(fields, apperr.FieldError{Field: v.Param, Message: v.Message, Code: v.Code})
		}
		out = apperr.Validation(e.Message, fields...)
	case CodePermissionDenied:
		out = apperr.Forbidden(e.Message)
	case CodeExecutionFailed:
		return nil
	default:
		out = apperr.Internal(e.Message)
	}
	return out.WithContext("sml_code", string(e.Code)).WithContext("sml_path", e.Path).WithCause(e)
}
