// ABOUTME: Bearer token extraction from Authorization header values
// ABOUTME: Shared by the HTTP middleware and the gRPC interceptor

package auth

import (
	"errors"
	"strings"
)

// Header errors
var (
	ErrMissingHeader = errors.New("missing authorization header")
	ErrHeaderFormat  = errors.New("invalid authorization header format")
	ErrEmptyToken    = errors.New("empty token")
)

const bearerPrefix = "Bearer "

// ExtractBearerToken extracts a bearer token from an Authorization header value.
func ExtractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingHeader
	}
	if len(authHeader) < len(bearerPrefix) || !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", ErrHeaderFormat
	}
	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}
