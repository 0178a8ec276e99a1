// ABOUTME: HTTP router: request context, panic recovery, health, metrics, and APIs
// ABOUTME: Health endpoints are plain text so probes need no JSON parsing

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389/sml-gateway/internal/reqctx"
	"github.com/2389/sml-gateway/internal/users"
)

// readyTimeout bounds the store ping of the readiness probe.
const readyTimeout = 2 * time.Second

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(reqctx.Middleware(s.verifier, s.users, s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/health/ready", s.handleReady)

	if s.config.Metrics.Enabled {
		r.Method(http.MethodGet, s.config.Metrics.Path, s.metrics.Handler())
	}

	users.NewController(s.users, s.wrapper("users.controller")).Routes(r)
	newSMLController(s.registry, s.wrapper("sml.controller")).Routes(r)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.registry.Locked() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("registry not locked"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "store unavailable: %v", err)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d operations)", len(s.registry.Meta().Owners))
}
