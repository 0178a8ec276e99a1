// ABOUTME: Error translation pipeline mapping arbitrary errors onto the taxonomy
// ABOUTME: One adapter per external error source; unknown errors become INTERNAL_ERROR

package apperr

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/2389/sml-gateway/internal/store"
)

// genericInternalMessage is what production clients see for unexpected errors.
const genericInternalMessage = "Internal server error"

// Options controls how unrecognized errors are reported.
type Options struct {
	// Production hides the original message of unexpected errors.
	Production bool
}

// Provider is implemented by error families that know their own taxonomy
// mapping. AppError may return nil to defer to the wrapped cause.
type Provider interface {
	AppError() *Error
}

// adapter converts one family of external errors. It returns nil when the
// error does not belong to its family.
type adapter func(err error) *Error

// adapters run in order; the first match wins.
var adapters = []adapter{
	fromProvider,
	fromAppError,
	fromSQLite,
	fromValidator,
	fromJSON,
	fromGRPC,
}

// Translate maps err onto the taxonomy. It returns nil for a nil error.
func Translate(err error, opts Options) *Error {
	if err == nil {
		return nil
	}
	for _, a := range adapters {
		if appErr := a(err); appErr != nil {
			return appErr
		}
	}
	return internalFrom(err, opts)
}

func internalFrom(err error, opts Options) *Error {
	if opts.Production {
		return Internal(genericInternalMessage).WithCause(err)
	}
	return Internal(err.Error()).WithContext("detail", err.Error()).WithCause(err)
}

// fromProvider walks the chain and uses the first provider that returns a
// mapping. A provider returning nil defers to the errors it wraps.
func fromProvider(err error) *Error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if p, ok := e.(Provider); ok {
			if appErr := p.AppError(); appErr != nil {
				return appErr
			}
		}
	}
	return nil
}

func fromAppError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// fromSQLite maps store and driver errors: uniqueness violations become
// DUPLICATE_ENTRY, missing rows become NOT_FOUND.
func fromSQLite(err error) *Error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
		return NotFound("record not found").WithCause(err)
	}

	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		code := sqlErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return Duplicate("a record with the same unique value already exists").WithCause(err)
		}
		if code&0xff == sqlite3.SQLITE_CONSTRAINT && isUniqueMessage(sqlErr.Error()) {
			return Duplicate("a record with the same unique value already exists").WithCause(err)
		}
		return nil
	}

	// Wrapped driver errors without the concrete type still carry the message.
	if isUniqueMessage(err.Error()) {
		return Duplicate("a record with the same unique value already exists").WithCause(err)
	}
	return nil
}

func isUniqueMessage(msg string) bool {
	return strings.Contains(msg, "UNIQUE constraint failed")
}

// fromValidator maps go-playground/validator errors to VALIDATION_ERROR with
// one FieldError per failing field.
func fromValidator(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Message: validatorMessage(fe),
			Code:    fe.Tag(),
		})
	}
	return Validation("request validation failed", fields...).WithCause(err)
}

func validatorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag())
	}
}

// fromJSON maps request body decoding failures to VALIDATION_ERROR.
func fromJSON(err error) *Error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return Validation(fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)).WithCause(err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return Validation("invalid field type", FieldError{
			Field:   field,
			Message: fmt.Sprintf("expected %s, got %s", typeErr.Type.String(), typeErr.Value),
			Code:    "type",
		}).WithCause(err)
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Validation("request body is empty or truncated").WithCause(err)
	}
	return nil
}

// fromGRPC maps gRPC status errors from downstream services.
func fromGRPC(err error) *Error {
	st, ok := status.FromError(err)
	if !ok {
		return nil
	}
	msg := st.Message()
	switch st.Code() {
	case codes.NotFound:
		return NotFound(msg).WithCause(err)
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return BadRequest(msg).WithCause(err)
	case codes.Unauthenticated:
		return Unauthorized(msg).WithCause(err)
	case codes.PermissionDenied:
		return Forbidden(msg).WithCause(err)
	case codes.AlreadyExists:
		return Duplicate(msg).WithCause(err)
	default:
		// Fall through to the generic internal mapping so production
		// hides the downstream message.
		return nil
	}
}
