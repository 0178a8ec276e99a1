// ABOUTME: gRPC interceptors that build the RequestContext from call metadata
// ABOUTME: Mirrors Middleware: identity from "authorization", peer address as client IP

package reqctx

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"

	"github.com/2389/sml-gateway/internal/auth"
)

// UnaryServerInterceptor attaches a RequestContext to every unary call.
func UnaryServerInterceptor(verifier auth.TokenVerifier, lookup IdentityLookup, logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reqctx")

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		rc := fromIncoming(ctx, info.FullMethod, verifier, lookup)
		resp, err := handler(With(ctx, rc), req)
		logger.Debug("rpc completed",
			"request_id", rc.RequestID,
			"method", rc.Path,
			"user", rc.UserID(),
			"elapsed", rc.Elapsed(),
		)
		return resp, err
	}
}

// StreamServerInterceptor attaches a RequestContext to every streaming call.
func StreamServerInterceptor(verifier auth.TokenVerifier, lookup IdentityLookup) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		rc := fromIncoming(ss.Context(), info.FullMethod, verifier, lookup)
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: With(ss.Context(), rc)})
	}
}

func fromIncoming(ctx context.Context, fullMethod string, verifier auth.TokenVerifier, lookup IdentityLookup) *RequestContext {
	rc := New()
	rc.Path = fullMethod
	rc.Method = "GRPC"

	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			rc.IPAddress = host
		} else {
			rc.IPAddress = p.Addr.String()
		}
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		header = first(md, "authorization")
		if reqID := sanitizeRequestID(first(md, "x-request-id")); reqID != "" {
			rc.RequestID = reqID
		}
		rc.UserAgent = first(md, "user-agent")
	}
	rc.User = ResolveIdentity(ctx, header, verifier, lookup)
	return rc
}

func first(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// wrappedServerStream wraps a grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
