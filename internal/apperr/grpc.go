// ABOUTME: Maps taxonomy errors onto gRPC status codes at the gRPC boundary
// ABOUTME: Mirror of the gRPC adapter used by Translate

package apperr

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var grpcCodeByCode = map[Code]codes.Code{
	CodeNotFound:     codes.NotFound,
	CodeBadRequest:   codes.InvalidArgument,
	CodeUnauthorized: codes.Unauthenticated,
	CodeForbidden:    codes.PermissionDenied,
	CodeValidation:   codes.InvalidArgument,
	CodeDuplicate:    codes.AlreadyExists,
	CodeInternal:     codes.Internal,
}

// ToGRPCStatus converts an *Error into a gRPC status error.
func ToGRPCStatus(e *Error) error {
	if e == nil {
		return nil
	}
	code, ok := grpcCodeByCode[e.Code]
	if !ok {
		code = codes.Internal
	}
	return status.Error(code, e.Message)
}
