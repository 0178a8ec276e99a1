// Package apperr defines the application error taxonomy for sml-gateway.
//
// # Taxonomy
//
// Every client-visible failure is an *Error built by one of the constructors:
//
//	NotFound(msg)       404 NOT_FOUND
//	BadRequest(msg)     400 BAD_REQUEST
//	Unauthorized(msg)   401 UNAUTHORIZED
//	Forbidden(msg)      403 FORBIDDEN
//	Validation(msg, f)  400 VALIDATION_ERROR (carries field errors)
//	Duplicate(msg)      400 DUPLICATE_ENTRY
//	Internal(msg)       500 INTERNAL_ERROR
//
// The code fixes the HTTP status; there is no way to build an *Error whose
// status disagrees with its code.
//
// # Translation
//
// Translate converts any error into an *Error. Each external error source has
// exactly one adapter (SQLite driver, request validator, JSON decoder, gRPC
// status). Unrecognized errors become INTERNAL_ERROR, and their message is
// only surfaced when Options.Production is false.
//
//	appErr := apperr.Translate(err, apperr.Options{Production: true})
//	w.WriteHeader(appErr.HTTPStatus)
//	json.NewEncoder(w).Encode(appErr.Body())
package apperr
