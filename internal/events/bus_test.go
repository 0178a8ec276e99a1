// ABOUTME: Tests for the declared-event bus
// ABOUTME: Covers declaration checks, payload validation, fan-out, and cleanup

package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/sml-gateway/internal/metrics"
	"github.com/2389/sml-gateway/internal/sml"
)

func newTestBus(t *testing.T) (*Bus, *metrics.Collector) {
	t.Helper()
	reg := sml.NewRegistry(nil)
	require.NoError(t, reg.DeclareEvent("data.models.User.created", sml.EventSchema{
		Type:    sml.EventDomain,
		Payload: map[string]sml.ParamSpec{"id": {Type: sml.TypeString, Required: true}},
	}, sml.Options{Owner: "users"}))
	require.NoError(t, reg.DeclareEvent("data.models.User.deleted", sml.EventSchema{Type: sml.EventDomain}, sml.Options{}))
	require.NoError(t, reg.DeclareEvent("system.boot", sml.EventSchema{Type: sml.EventSystem}, sml.Options{}))
	reg.Lock()

	collector := metrics.NewCollector()
	b := NewBus(reg, collector, nil)
	t.Cleanup(b.Close)
	return b, collector
}

func receive(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %s", ev.Path)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_PublishToMatchingSubscribers(t *testing.T) {
	b, collector := newTestBus(t)
	ctx := t.Context()

	exact, _, err := b.Subscribe(ctx, "data.models.User.created")
	require.NoError(t, err)
	wild, _, err := b.Subscribe(ctx, "data.**")
	require.NoError(t, err)
	other, _, err := b.Subscribe(ctx, "system.*")
	require.NoError(t, err)

	published, err := b.Publish(WithTraceID(ctx, "trace-1"), "data.models.User.created", map[string]any{"id": "u1"})
	require.NoError(t, err)
	assert.NotEmpty(t, published.ID)
	assert.Equal(t, sml.EventDomain, published.Type)
	assert.Equal(t, "trace-1", published.TraceID)

	got := receive(t, exact)
	assert.Equal(t, published.ID, got.ID)
	assert.Equal(t, "u1", got.Payload["id"])
	assert.Equal(t, published.ID, receive(t, wild).ID)
	assertNoEvent(t, other)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.EventsPublished.WithLabelValues("data.models.User.created")))
}

func TestBus_PublishUndeclared(t *testing.T) {
	b, _ := newTestBus(t)

	_, err := b.Publish(t.Context(), "data.models.User.renamed", nil)
	var smlErr *sml.Error
	require.ErrorAs(t, err, &smlErr)
	assert.Equal(t, sml.CodeNotFound, smlErr.Code)
}

func TestBus_PublishValidatesPayload(t *testing.T) {
	b, _ := newTestBus(t)
	ch, _, err := b.Subscribe(t.Context(), "**")
	require.NoError(t, err)

	_, err = b.Publish(t.Context(), "data.models.User.created", map[string]any{"id": 42})
	var smlErr *sml.Error
	require.ErrorAs(t, err, &smlErr)
	assert.Equal(t, sml.CodeValidationFailed, smlErr.Code)
	require.Len(t, smlErr.Violations, 1)
	assert.Equal(t, "id", smlErr.Violations[0].Param)
	assertNoEvent(t, ch)
}

func TestBus_PublishAssignsTraceAndEmptyPayload(t *testing.T) {
	b, _ := newTestBus(t)

	ev, err := b.Publish(t.Context(), "system.boot", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, ev.TraceID)
	assert.NotNil(t, ev.Payload)
}

func TestBus_PayloadIsCopied(t *testing.T) {
	b, _ := newTestBus(t)
	ch, _, err := b.Subscribe(t.Context(), "data.models.User.created")
	require.NoError(t, err)

	payload := map[string]any{"id": "u1"}
	_, err = b.Publish(t.Context(), "data.models.User.created", payload)
	require.NoError(t, err)
	payload["id"] = "changed"

	assert.Equal(t, "u1", receive(t, ch).Payload["id"])
}

func TestBus_SubscribeInvalidPattern(t *testing.T) {
	b, _ := newTestBus(t)

	_, _, err := b.Subscribe(t.Context(), "data.**.created")
	assert.ErrorIs(t, err, ErrInvalidPattern)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBus_ContextCancelUnsubscribes(t *testing.T) {
	b, _ := newTestBus(t)
	ctx, cancel := context.WithCancel(t.Context())

	ch, _, err := b.Subscribe(ctx, "system.boot")
	require.NoError(t, err)
	assert.Equal(t, 1, b.SubscriberCount())

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "expected closed channel")
	case <-time.After(time.Second):
		t.Fatal("subscription not cleaned up")
	}
	assert.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	b, _ := newTestBus(t)

	_, subID, err := b.Subscribe(t.Context(), "system.boot")
	require.NoError(t, err)

	b.Unsubscribe(subID)
	assert.NotPanics(t, func() { b.Unsubscribe(subID) })
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBus_SlowSubscriberDropsEvents(t *testing.T) {
	b, collector := newTestBus(t)
	ctx := t.Context()

	slow, _, err := b.Subscribe(ctx, "system.boot")
	require.NoError(t, err)

	total := subscriberBufferSize + 5
	for i := 0; i < total; i++ {
		_, err := b.Publish(ctx, "system.boot", nil)
		require.NoError(t, err)
	}

	assert.Len(t, slow, subscriberBufferSize)
	assert.Equal(t, 5.0, testutil.ToFloat64(collector.EventsDropped))
}

func TestBus_Close(t *testing.T) {
	b, _ := newTestBus(t)

	ch, _, err := b.Subscribe(t.Context(), "**")
	require.NoError(t, err)
	b.Close()

	_, ok := <-ch
	assert.False(t, ok)

	_, err = b.Publish(t.Context(), "system.boot", nil)
	assert.NoError(t, err)

	late, _, err := b.Subscribe(t.Context(), "**")
	require.NoError(t, err)
	_, ok = <-late
	assert.False(t, ok)
}

func TestBus_ConcurrentPublishAndSubscribe(t *testing.T) {
	b, _ := newTestBus(t)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			subCtx, subCancel := context.WithCancel(ctx)
			ch, _, err := b.Subscribe(subCtx, "data.**")
			assert.NoError(t, err)
			subCancel()
			for range ch {
			}
		}()
		go func() {
			defer wg.Done()
			_, err := b.Publish(ctx, "data.models.User.deleted", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
