// ABOUTME: Resolves the caller identity from an Authorization header value
// ABOUTME: Every failure degrades to the anonymous identity

package reqctx

import (
	"context"

	"github.com/2389/sml-gateway/internal/auth"
)

// IdentityLookup confirms a token subject still exists and returns its
// current identity. Implementations return an error for unknown subjects.
type IdentityLookup interface {
	LookupIdentity(ctx context.Context, id string) (*auth.Identity, error)
}

// ResolveIdentity returns the identity for the header. It never fails: a
// missing or malformed header, an invalid or expired token, a nil verifier,
// or a lookup miss all return auth.Anonymous().
func ResolveIdentity(ctx context.Context, header string, verifier auth.TokenVerifier, lookup IdentityLookup) *auth.Identity {
	if verifier == nil {
		return auth.Anonymous()
	}

	token, err := auth.ExtractBearerToken(header)
	if err != nil {
		return auth.Anonymous()
	}

	id, err := verifier.Verify(token)
	if err != nil || id == nil {
		return auth.Anonymous()
	}

	if lookup == nil {
		return id
	}

	current, err := lookup.LookupIdentity(ctx, id.ID)
	if err != nil || current == nil || current.IsAnonymous() {
		return auth.Anonymous()
	}
	// Store roles win over token roles; token-scoped rules are kept.
	if len(current.Rules) == 0 {
		current.Rules = id.Rules
	}
	return current
}
