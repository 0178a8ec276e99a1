// ABOUTME: Event-triggered operation runner driven by configured workflows
// ABOUTME: Resolves param references against the event and executes with a workflow context

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/sml-gateway/internal/auth"
	"github.com/2389/sml-gateway/internal/config"
	"github.com/2389/sml-gateway/internal/events"
	"github.com/2389/sml-gateway/internal/sml"
)

// ErrUnknownOperation is returned when a workflow targets an unregistered operation.
var ErrUnknownOperation = errors.New("workflow targets unknown operation")

const (
	refPayloadPrefix = "$."
	refTrace         = "$trace"
	refEvent         = "$event"
)

// Runner executes workflow targets for matching events.
type Runner struct {
	registry  *sml.Registry
	bus       *events.Bus
	workflows []config.WorkflowConfig
	logger    *slog.Logger

	// onDone is called after each execution; used by tests.
	onDone func(name string, result any, err error)
}

// NewRunner checks every workflow's pattern and target and returns a runner.
func NewRunner(reg *sml.Registry, bus *events.Bus, workflows []config.WorkflowConfig, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, wf := range workflows {
		if err := events.ValidatePattern(wf.On); err != nil {
			return nil, fmt.Errorf("workflow %s: %w", wf.Name, err)
		}
		if !reg.Has(wf.Run) {
			return nil, fmt.Errorf("workflow %s: %w: %s", wf.Name, ErrUnknownOperation, wf.Run)
		}
	}
	return &Runner{
		registry:  reg,
		bus:       bus,
		workflows: workflows,
		logger:    logger.With("component", "workflow"),
	}, nil
}

// Run subscribes every workflow and processes events until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, wf := range r.workflows {
		ch, subID, err := r.bus.Subscribe(ctx, wf.On)
		if err != nil {
			return fmt.Errorf("subscribing workflow %s: %w", wf.Name, err)
		}
		r.logger.Info("workflow subscribed", "workflow", wf.Name, "on", wf.On, "run", wf.Run, "sub_id", subID)

		wg.Add(1)
		go func(wf config.WorkflowConfig) {
			defer wg.Done()
			for ev := range ch {
				r.handle(ctx, wf, ev)
			}
		}(wf)
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

func (r *Runner) handle(ctx context.Context, wf config.WorkflowConfig, ev *events.Event) {
	ec := &sml.ExecContext{
		User: auth.Anonymous(),
		Workflow: &sml.WorkflowContext{
			ID:    uuid.New().String(),
			Name:  wf.Name,
			Event: ev.Path,
		},
		TraceID: ev.TraceID,
		System:  true,
	}
	params := ResolveParams(wf.Params, ev)

	logger := r.logger.With("workflow", wf.Name, "event", ev.Path, "run", wf.Run, "trace_id", ev.TraceID)
	result, err := r.registry.Execute(events.WithTraceID(ctx, ev.TraceID), wf.Run, params, ec)
	if err != nil {
		logger.Error("workflow execution failed", "error", err)
	} else {
		logger.Debug("workflow executed")
	}
	if r.onDone != nil {
		r.onDone(wf.Name, result, err)
	}
}

// ResolveParams substitutes event references in params. References that
// resolve to nothing leave the param absent.
func ResolveParams(params map[string]any, ev *events.Event) sml.Params {
	out := make(sml.Params, len(params))
	for k, v := range params {
		if resolved, ok := resolveValue(v, ev); ok {
			out[k] = resolved
		}
	}
	return out
}

func resolveValue(v any, ev *events.Event) (any, bool) {
	switch val := v.(type) {
	case string:
		switch {
		case val == refTrace:
			return ev.TraceID, true
		case val == refEvent:
			return ev.Path, true
		case strings.HasPrefix(val, refPayloadPrefix):
			return lookup(ev.Payload, strings.TrimPrefix(val, refPayloadPrefix))
		}
		return val, true
	case map[string]any:
		nested := make(map[string]any, len(val))
		for k, item := range val {
			if resolved, ok := resolveValue(item, ev); ok {
				nested[k] = resolved
			}
		}
		return nested, true
	default:
		return v, true
	}
}

// lookup walks dotted keys through nested maps.
func lookup(payload map[string]any, key string) (any, bool) {
	var cur any = payload
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}
