// ABOUTME: gRPC server construction with keepalive, interceptors, and health
// ABOUTME: Request context is attached before the wrapper logs and translates

package api

import (
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/2389/sml-gateway/internal/reqctx"
)

// healthService is the name probes ask about in addition to the empty name.
const healthService = "sml.Gateway"

func (s *Server) newGRPCServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    15 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(
			reqctx.UnaryServerInterceptor(s.verifier, s.users, s.logger),
			s.wrapper("grpc").UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			reqctx.StreamServerInterceptor(s.verifier, s.users),
		),
	)

	hs := health.NewServer()
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.registry.Locked() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	hs.SetServingStatus("", status)
	hs.SetServingStatus(healthService, status)
	healthpb.RegisterHealthServer(srv, hs)

	return srv, hs
}
