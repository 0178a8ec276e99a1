// ABOUTME: gRPC unary interceptor applying wrapper logging and translation
// ABOUTME: Errors leave as gRPC status errors mapped from the taxonomy

package wrap

import (
	"context"
	"path"

	"google.golang.org/grpc"

	"github.com/2389/sml-gateway/internal/apperr"
)

// UnaryServerInterceptor wraps every unary RPC. The method name is the last
// element of the full method, so "/grpc.health.v1.Health/Check" is "Check".
func (w *Wrapper) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		name := path.Base(info.FullMethod)
		if w.Excluded(name) {
			return handler(ctx, req)
		}

		logger := w.callLogger(ctx, name).With("rpc", info.FullMethod)
		logger.Debug("rpc call")

		resp, err := invoke(ctx, func(ctx context.Context) (any, error) {
			return handler(ctx, req)
		})
		if err != nil {
			return nil, apperr.ToGRPCStatus(w.fail(logger, name, err))
		}
		w.succeed(logger, name)
		return resp, nil
	}
}
