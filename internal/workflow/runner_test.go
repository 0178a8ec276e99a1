// ABOUTME: Tests for the workflow runner and param reference resolution
// ABOUTME: Publishes events on a real bus and checks the executed operation

package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/sml-gateway/internal/config"
	"github.com/2389/sml-gateway/internal/events"
	"github.com/2389/sml-gateway/internal/sml"
)

type call struct {
	params sml.Params
	ec     *sml.ExecContext
}

type fixture struct {
	reg   *sml.Registry
	bus   *events.Bus
	mu    sync.Mutex
	calls []call
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{reg: sml.NewRegistry(nil)}

	record := func(_ context.Context, p sml.Params, ec *sml.ExecContext) (any, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls = append(f.calls, call{params: p, ec: ec})
		return "done", nil
	}
	require.NoError(t, f.reg.Register("actions.users.welcome", sml.Operation{
		Handler: record,
		Schema: sml.Schema{Params: map[string]sml.ParamSpec{
			"userId": {Type: sml.TypeString, Required: true},
		}},
	}, sml.Options{Visibility: sml.VisibilityHidden}))
	require.NoError(t, f.reg.Register("notifications.send", sml.Operation{Handler: record}, sml.Options{Visibility: sml.VisibilityInternal}))
	require.NoError(t, f.reg.Register("fail.always", sml.Operation{
		Handler: func(context.Context, sml.Params, *sml.ExecContext) (any, error) {
			return nil, errors.New("nope")
		},
	}, sml.Options{}))
	require.NoError(t, f.reg.DeclareEvent("data.models.User.created", sml.EventSchema{Type: sml.EventDomain}, sml.Options{}))
	require.NoError(t, f.reg.DeclareEvent("system.boot", sml.EventSchema{Type: sml.EventSystem}, sml.Options{}))
	f.reg.Lock()

	f.bus = events.NewBus(f.reg, nil, nil)
	t.Cleanup(f.bus.Close)
	return f
}

func (f *fixture) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

// start runs r in the background and waits until it has subscribed.
func start(t *testing.T, f *fixture, r *Runner, subs int) {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, r.Run(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool { return f.bus.SubscriberCount() == subs }, time.Second, 5*time.Millisecond)
}

func TestRunner_ExecutesWorkflowOnEvent(t *testing.T) {
	f := newFixture(t)
	r, err := NewRunner(f.reg, f.bus, []config.WorkflowConfig{{
		Name:   "welcome",
		On:     "data.models.User.created",
		Run:    "actions.users.welcome",
		Params: map[string]any{"userId": "$.id", "trace": "$trace", "source": "$event", "kind": "welcome"},
	}}, nil)
	require.NoError(t, err)
	start(t, f, r, 1)

	ctx := events.WithTraceID(t.Context(), "trace-9")
	_, err = f.bus.Publish(ctx, "data.models.User.created", map[string]any{"id": "u1"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(f.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	got := f.snapshot()[0]

	assert.Equal(t, "u1", got.params["userId"])
	assert.Equal(t, "trace-9", got.params["trace"])
	assert.Equal(t, "data.models.User.created", got.params["source"])
	assert.Equal(t, "welcome", got.params["kind"])

	require.NotNil(t, got.ec.Workflow)
	assert.Equal(t, "welcome", got.ec.Workflow.Name)
	assert.Equal(t, "data.models.User.created", got.ec.Workflow.Event)
	assert.NotEmpty(t, got.ec.Workflow.ID)
	assert.Equal(t, "trace-9", got.ec.TraceID)
	assert.True(t, got.ec.System)
}

func TestRunner_FailuresDoNotStopRunner(t *testing.T) {
	f := newFixture(t)
	r, err := NewRunner(f.reg, f.bus, []config.WorkflowConfig{
		{Name: "broken", On: "system.*", Run: "fail.always"},
		{Name: "missing-param", On: "system.boot", Run: "actions.users.welcome", Params: map[string]any{"userId": "$.nobody"}},
		{Name: "notify", On: "system.**", Run: "notifications.send"},
	}, nil)
	require.NoError(t, err)

	var mu sync.Mutex
	errs := map[string]error{}
	r.onDone = func(name string, _ any, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs[name] = err
	}
	start(t, f, r, 3)

	for i := 0; i < 2; i++ {
		_, err = f.bus.Publish(t.Context(), "system.boot", nil)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(f.snapshot()) == 2 && len(errs) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorIs(t, errs["broken"], sml.ErrExecution)
	assert.ErrorIs(t, errs["missing-param"], sml.ErrValidation)
	assert.NoError(t, errs["notify"])
}

func TestNewRunner_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := NewRunner(f.reg, f.bus, []config.WorkflowConfig{{Name: "x", On: "a.**.b", Run: "notifications.send"}}, nil)
	assert.ErrorIs(t, err, events.ErrInvalidPattern)

	_, err = NewRunner(f.reg, f.bus, []config.WorkflowConfig{{Name: "x", On: "system.boot", Run: "no.such.op"}}, nil)
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestRunner_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	r, err := NewRunner(f.reg, f.bus, []config.WorkflowConfig{{Name: "n", On: "system.boot", Run: "notifications.send"}}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	require.Eventually(t, func() bool { return f.bus.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestResolveParams(t *testing.T) {
	ev := &events.Event{
		Path:    "data.models.User.updated",
		TraceID: "t1",
		Payload: map[string]any{
			"id":      "u1",
			"profile": map[string]any{"name": "Ada"},
			"count":   3,
		},
	}

	got := ResolveParams(map[string]any{
		"id":      "$.id",
		"name":    "$.profile.name",
		"count":   "$.count",
		"missing": "$.nope",
		"deep":    "$.profile.name.first",
		"trace":   "$trace",
		"nested":  map[string]any{"who": "$.id", "literal": true},
		"limit":   10,
	}, ev)

	assert.Equal(t, sml.Params{
		"id":     "u1",
		"name":   "Ada",
		"count":  3,
		"trace":  "t1",
		"nested": map[string]any{"who": "u1", "literal": true},
		"limit":  10,
	}, got)
}
