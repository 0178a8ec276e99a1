// ABOUTME: HTTP middleware that builds the RequestContext for every request
// ABOUTME: Resolves identity, client IP, and request id; never rejects a request

package reqctx

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/2389/sml-gateway/internal/auth"
)

// RequestIDHeader is read from requests and echoed on responses.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds client-supplied request ids.
const maxRequestIDLength = 128

// Middleware creates the per-request context before any other handler runs.
func Middleware(verifier auth.TokenVerifier, lookup IdentityLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reqctx")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := New()
			rc.Path = r.URL.Path
			rc.Method = r.Method
			rc.UserAgent = r.UserAgent()
			rc.IPAddress = ClientIP(r)
			if reqID := sanitizeRequestID(r.Header.Get(RequestIDHeader)); reqID != "" {
				rc.RequestID = reqID
			}
			rc.User = ResolveIdentity(r.Context(), r.Header.Get("Authorization"), verifier, lookup)

			w.Header().Set(RequestIDHeader, rc.RequestID)

			next.ServeHTTP(w, r.WithContext(With(r.Context(), rc)))

			logger.Debug("request completed",
				"request_id", rc.RequestID,
				"method", rc.Method,
				"path", rc.Path,
				"ip", rc.IPAddress,
				"user", rc.UserID(),
				"elapsed", rc.Elapsed(),
			)
		})
	}
}

func sanitizeRequestID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > maxRequestIDLength {
		return ""
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return ""
		}
	}
	return id
}
