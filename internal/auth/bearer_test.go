// ABOUTME: Unit tests for bearer token extraction
// ABOUTME: Tests missing, malformed, and valid Authorization headers

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", nil},
		{"lowercase scheme", "bearer abc", "abc", nil},
		{"missing", "", "", ErrMissingHeader},
		{"basic auth", "Basic dXNlcjpwYXNz", "", ErrHeaderFormat},
		{"scheme only", "Bearer ", "", ErrEmptyToken},
		{"too short", "Bear", "", ErrHeaderFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBearerToken(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
