// ABOUTME: Server orchestrator owning every component and both listeners
// ABOUTME: New assembles and locks the registry; Run serves until ctx is canceled

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/2389/sml-gateway/internal/auth"
	"github.com/2389/sml-gateway/internal/config"
	"github.com/2389/sml-gateway/internal/events"
	"github.com/2389/sml-gateway/internal/metrics"
	"github.com/2389/sml-gateway/internal/operations"
	"github.com/2389/sml-gateway/internal/sml"
	"github.com/2389/sml-gateway/internal/store"
	"github.com/2389/sml-gateway/internal/users"
	"github.com/2389/sml-gateway/internal/workflow"
	"github.com/2389/sml-gateway/internal/wrap"
)

// Server is the gateway process.
type Server struct {
	config  *config.Config
	version string
	logger  *slog.Logger

	store    *store.SQLiteStore
	registry *sml.Registry
	bus      *events.Bus
	metrics  *metrics.Collector
	verifier *auth.JWTVerifier
	users    *users.Service
	runner   *workflow.Runner

	handler    http.Handler
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates a Server from cfg. The registry is fully populated and locked
// when New returns.
func New(cfg *config.Config, version string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("creating token verifier: %w", err)
	}

	s := &Server{
		config:   cfg,
		version:  version,
		logger:   logger.With("component", "api"),
		store:    st,
		registry: sml.NewRegistry(logger),
		metrics:  metrics.NewCollector(),
		verifier: verifier,
	}
	s.bus = events.NewBus(s.registry, s.metrics, logger)

	s.users = users.NewService(users.Config{
		Store:     st,
		Issuer:    verifier,
		TokenTTL:  cfg.Auth.TokenTTL,
		Publisher: s.bus,
		Wrapper:   s.wrapper("users.service"),
		Logger:    logger,
	})

	if err := operations.RegisterAll(s.registry, operations.Deps{
		Config:    cfg,
		Store:     st,
		Users:     s.users,
		Publisher: s.bus,
		Metrics:   s.metrics,
		Version:   version,
		Logger:    logger,
	}); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("registering operations: %w", err)
	}
	s.registry.Lock()

	s.runner, err = workflow.NewRunner(s.registry, s.bus, cfg.Workflows, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("creating workflow runner: %w", err)
	}

	s.handler = s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.grpcServer, s.health = s.newGRPCServer()

	s.logger.Info("server assembled",
		"version", version,
		"operations", len(s.registry.Meta().Owners),
		"workflows", len(cfg.Workflows),
		"environment", cfg.Server.Environment,
	)
	return s, nil
}

// wrapper creates a Wrapper sharing the server's production flag and metrics.
func (s *Server) wrapper(component string) *wrap.Wrapper {
	return wrap.New(component, s.logger,
		wrap.WithProduction(s.config.IsProduction()),
		wrap.WithMetrics(s.metrics),
	)
}

// Handler returns the HTTP handler with every route mounted.
func (s *Server) Handler() http.Handler { return s.handler }

// Registry returns the locked operation registry.
func (s *Server) Registry() *sml.Registry { return s.registry }

// Bus returns the event bus.
func (s *Server) Bus() *events.Bus { return s.bus }

// Users returns the users service.
func (s *Server) Users() *users.Service { return s.users }

// setupListeners opens the HTTP listener and, when configured, the gRPC one.
func (s *Server) setupListeners() (httpLn, grpcLn net.Listener, err error) {
	httpLn, err = net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	if s.config.Server.GRPCAddr == "" {
		return httpLn, nil, nil
	}
	grpcLn, err = net.Listen("tcp", s.config.Server.GRPCAddr)
	if err != nil {
		_ = httpLn.Close()
		return nil, nil, fmt.Errorf("listening on gRPC address: %w", err)
	}
	return httpLn, grpcLn, nil
}

// startServers serves on the listeners in goroutines. grpcLn may be nil.
func (s *Server) startServers(httpLn, grpcLn net.Listener) chan error {
	errCh := make(chan error, 2)

	go func() {
		s.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := s.httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	if grpcLn != nil {
		go func() {
			s.logger.Info("gRPC server listening", "addr", grpcLn.Addr().String())
			if err := s.grpcServer.Serve(grpcLn); err != nil {
				errCh <- fmt.Errorf("gRPC server: %w", err)
			}
		}()
	}
	return errCh
}

// Run starts the servers and the workflow runner and blocks until ctx is
// canceled or a server fails. Returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	httpLn, grpcLn, err := s.setupListeners()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.runner.Run(runCtx); err != nil {
			s.logger.Error("workflow runner stopped", "error", err)
		}
	}()

	errCh := s.startServers(httpLn, grpcLn)
	s.publishBoot(runCtx)

	serverErr := s.waitForShutdownSignal(ctx, errCh)
	cancel()
	wg.Wait()

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// publishBoot announces that the server is listening.
func (s *Server) publishBoot(ctx context.Context) {
	_, err := s.bus.Publish(ctx, operations.EventBoot, map[string]any{
		"version":    s.version,
		"operations": len(s.registry.Meta().Owners),
	})
	if err != nil {
		s.logger.Warn("publishing boot event failed", "error", err)
	}
}

// waitForShutdownSignal waits for context cancellation or server error.
func (s *Server) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		return err
	}
}

// gracefulShutdown uses a fresh context since the run context is already done.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops both servers and releases resources. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.logger.Info("shutting down server")

		var errs []error
		errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))
		s.shutdownGRPCServer(ctx)
		s.bus.Close()
		errs = appendCloseError(errs, "store close", s.store.Close())

		s.shutdownErr = errors.Join(errs...)
	})
	return s.shutdownErr
}

// shutdownGRPCServer stops gracefully, or forcefully once ctx expires.
func (s *Server) shutdownGRPCServer(ctx context.Context) {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
}

func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}
