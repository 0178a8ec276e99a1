// Package reqctx carries per-request state through context.Context.
//
// Middleware builds exactly one RequestContext for every HTTP request. It
// holds a fresh id, the start time, the caller's identity (anonymous when
// no valid bearer token is present), the client IP, the request id, and a
// small key/value bag for downstream bindings. Handlers and services read
// it with From or MustFrom:
//
//	rc := reqctx.From(ctx)
//	if rc.User.IsAdmin() { ... }
//
// UnaryServerInterceptor does the same for gRPC calls using the
// "authorization" and "x-request-id" metadata keys.
//
// Identity resolution never fails a request: a missing header, a bad
// token, or an unknown user all resolve to auth.Anonymous().
package reqctx
