// ABOUTME: Tests for the error taxonomy constructors and wire body
// ABOUTME: Verifies each constructor maps to exactly one HTTP status

package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_StatusAndCode(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		code   Code
		status int
	}{
		{"not found", NotFound("x"), CodeNotFound, http.StatusNotFound},
		{"bad request", BadRequest("x"), CodeBadRequest, http.StatusBadRequest},
		{"unauthorized", Unauthorized("x"), CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden("x"), CodeForbidden, http.StatusForbidden},
		{"validation", Validation("x"), CodeValidation, http.StatusBadRequest},
		{"duplicate", Duplicate("x"), CodeDuplicate, http.StatusBadRequest},
		{"internal", Internal("x"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.status, StatusFromCode(tt.code))
		})
	}
}

func TestStatusFromCode_Unknown(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusFromCode("SOMETHING_ELSE"))
}

func TestFormattedConstructors(t *testing.T) {
	assert.Equal(t, "user u1 not found", NotFoundf("user %s not found", "u1").Message)
	assert.Equal(t, "bad limit -1", BadRequestf("bad limit %d", -1).Message)
}

func TestError_CauseAndContext(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Internal("boom").WithCause(cause).WithContext("user", "u1")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "INTERNAL_ERROR")
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Equal(t, "u1", err.Context["user"])

	attrs := err.LogAttrs()
	assert.Contains(t, attrs, "cause")
	assert.Contains(t, attrs, "user")
}

func TestError_Body(t *testing.T) {
	err := Validation("bad input", FieldError{Field: "email", Message: "email is required", Code: "required"})

	raw, jerr := json.Marshal(err.Body())
	require.NoError(t, jerr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "error", decoded["status"])
	assert.Nil(t, decoded["data"])

	body := decoded["error"].(map[string]any)
	assert.Equal(t, "bad input", body["message"])
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Equal(t, float64(400), body["status"])
	require.Len(t, body["errors"], 1)
}

func TestError_BodyOmitsEmptyFieldErrors(t *testing.T) {
	raw, err := json.Marshal(NotFound("gone").Body())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"errors"`)
}
