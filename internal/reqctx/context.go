// ABOUTME: Per-request context holding identity, ids, client info, and a binding bag
// ABOUTME: Provides With/From/MustFrom for propagating it via context.Context

package reqctx

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/sml-gateway/internal/auth"
)

// RequestContext is the per-request state. One instance per request, never shared.
type RequestContext struct {
	ID        string
	StartTime time.Time
	User      *auth.Identity
	RequestID string
	IPAddress string
	Path      string
	Method    string
	UserAgent string

	mu     sync.RWMutex
	values map[string]any
}

// New returns a RequestContext with a fresh id, the current time, and an
// anonymous user.
func New() *RequestContext {
	id := uuid.New().String()
	return &RequestContext{
		ID:        id,
		StartTime: time.Now(),
		User:      auth.Anonymous(),
		RequestID: id,
		IPAddress: unknownIP,
	}
}

// Set binds an arbitrary value for the rest of the request.
func (rc *RequestContext) Set(key string, value any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.values == nil {
		rc.values = make(map[string]any)
	}
	rc.values[key] = value
}

// Get returns a value bound with Set.
func (rc *RequestContext) Get(key string) (any, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	v, ok := rc.values[key]
	return v, ok
}

// Elapsed returns the time since the request started.
func (rc *RequestContext) Elapsed() time.Duration {
	return time.Since(rc.StartTime)
}

// UserID returns the caller's id, empty for anonymous callers.
func (rc *RequestContext) UserID() string {
	if rc == nil || rc.User == nil {
		return ""
	}
	return rc.User.ID
}

type requestContextKey struct{}

// With returns a new context with the RequestContext attached.
func With(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// From retrieves the RequestContext from the context, returning nil if not present.
func From(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc
}

// MustFrom retrieves the RequestContext from the context, panicking if not present.
func MustFrom(ctx context.Context) *RequestContext {
	rc := From(ctx)
	if rc == nil {
		panic("reqctx: RequestContext not found in context")
	}
	return rc
}

// UserFrom returns the caller's identity, anonymous when no RequestContext is bound.
func UserFrom(ctx context.Context) *auth.Identity {
	if rc := From(ctx); rc != nil && rc.User != nil {
		return rc.User
	}
	return auth.Anonymous()
}
