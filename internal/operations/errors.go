// ABOUTME: Helpers building taxonomy errors for handler-level parameter problems
// ABOUTME: Used when a check cannot be expressed in the declarative schema

package operations

import (
	"fmt"

	"github.com/2389/sml-gateway/internal/apperr"
)

func badParam(param, format string, args ...any) *apperr.Error {
	msg := fmt.Sprintf(format, args...)
	return apperr.Validation(msg, apperr.FieldError{Field: param, Message: msg, Code: "invalid"})
}
