// ABOUTME: Wrapper type shared by controller, service, and gRPC decoration
// ABOUTME: Holds component name, logger, exclusions, production flag, and metrics

package wrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/2389/sml-gateway/internal/apperr"
	"github.com/2389/sml-gateway/internal/metrics"
	"github.com/2389/sml-gateway/internal/reqctx"
)

// Call outcomes reported to metrics.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
	outcomePanic = "panic"
)

// Wrapper applies the same cross-cutting behavior to every method of one component.
type Wrapper struct {
	component  string
	logger     *slog.Logger
	exclude    map[string]bool
	production bool
	metrics    *metrics.Collector
}

// Option configures a Wrapper.
type Option func(*Wrapper)

// WithExclude lists method names that bypass wrapping.
func WithExclude(names ...string) Option {
	return func(w *Wrapper) {
		for _, n := range names {
			w.exclude[n] = true
		}
	}
}

// WithProduction hides the message of unexpected errors from clients.
func WithProduction(production bool) Option {
	return func(w *Wrapper) { w.production = production }
}

// WithMetrics counts every wrapped call.
func WithMetrics(c *metrics.Collector) Option {
	return func(w *Wrapper) { w.metrics = c }
}

// New creates a Wrapper for component.
func New(component string, logger *slog.Logger, opts ...Option) *Wrapper {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Wrapper{
		component: component,
		logger:    logger.With("component", component),
		exclude:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Component returns the component name.
func (w *Wrapper) Component() string { return w.component }

// Excluded reports whether name bypasses wrapping.
func (w *Wrapper) Excluded(name string) bool { return w.exclude[name] }

// HandleError translates err into the taxonomy using the wrapper's production flag.
func (w *Wrapper) HandleError(err error) *apperr.Error {
	return apperr.Translate(err, apperr.Options{Production: w.production})
}

// panicError carries a recovered panic value and its stack.
type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

func recovered(v any) *panicError {
	return &panicError{value: v, stack: debug.Stack()}
}

// callLogger returns a logger annotated with the method and request details.
func (w *Wrapper) callLogger(ctx context.Context, method string) *slog.Logger {
	attrs := []any{"method", method}
	if rc := reqctx.From(ctx); rc != nil {
		attrs = append(attrs, "request_id", rc.RequestID, "path", rc.Path, "user", rc.UserID())
	}
	return w.logger.With(attrs...)
}

// fail logs err, records the outcome, and returns its translation.
func (w *Wrapper) fail(logger *slog.Logger, method string, err error) *apperr.Error {
	appErr := w.HandleError(err)

	outcome := outcomeError
	attrs := appErr.LogAttrs()
	if p, ok := err.(*panicError); ok {
		outcome = outcomePanic
		attrs = append(attrs, "stack", string(p.stack))
	}
	w.metrics.ObserveCall(w.component, method, outcome)

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("call failed", attrs...)
	} else {
		logger.Warn("call rejected", attrs...)
	}
	return appErr
}

func (w *Wrapper) succeed(logger *slog.Logger, method string) {
	w.metrics.ObserveCall(w.component, method, outcomeOK)
	logger.Debug("call succeeded")
}
