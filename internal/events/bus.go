// ABOUTME: In-memory fan-out bus for declared registry events
// ABOUTME: Validates payloads on publish and delivers to pattern subscribers

package events

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/sml-gateway/internal/metrics"
	"github.com/2389/sml-gateway/internal/sml"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// Event is one published occurrence of a declared event.
type Event struct {
	ID      string         `json:"id"`
	Path    string         `json:"path"`
	Type    sml.EventType  `json:"type"`
	Payload map[string]any `json:"payload"`
	TraceID string         `json:"traceId,omitempty"`
	At      time.Time      `json:"at"`
}

type subscriber struct {
	pattern pattern
	ch      chan *Event
}

// Bus publishes declared events to subscribers.
type Bus struct {
	registry *sml.Registry
	metrics  *metrics.Collector
	logger   *slog.Logger

	mu          sync.RWMutex
	subscribers map[string]*subscriber // subID -> subscriber
	closed      bool
}

// NewBus creates a bus for the events declared in reg. Pass nil logger for
// default and nil collector to skip metrics.
func NewBus(reg *sml.Registry, collector *metrics.Collector, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		registry:    reg,
		metrics:     collector,
		logger:      logger.With("component", "events"),
		subscribers: make(map[string]*subscriber),
	}
}

type traceKey struct{}

// WithTraceID attaches the trace id that published events should carry.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceIDFrom returns the trace id set by WithTraceID.
func TraceIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// Publish validates payload against the declaration at path and delivers
// the event to every matching subscriber. It returns SML_NOT_FOUND for
// undeclared paths and SML_VALIDATION_FAILED for bad payloads.
func (b *Bus) Publish(ctx context.Context, path string, payload map[string]any) (*Event, error) {
	schema, ok := b.registry.Event(path)
	if !ok {
		return nil, sml.NotFoundError(path, "event")
	}
	if violations := sml.ValidateParams(schema.Payload, payload); len(violations) > 0 {
		return nil, sml.ValidationError(path, violations)
	}

	traceID := TraceIDFrom(ctx)
	if traceID == "" {
		traceID = uuid.New().String()
	}
	event := &Event{
		ID:      uuid.New().String(),
		Path:    path,
		Type:    schema.Type,
		Payload: maps.Clone(payload),
		TraceID: traceID,
		At:      time.Now().UTC(),
	}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}

	dropped := b.deliver(event)
	b.metrics.ObservePublish(path, dropped)
	b.logger.Debug("event published", "path", path, "event_id", event.ID, "trace_id", traceID)
	return event, nil
}

// deliver fans the event out and returns the number of dropped deliveries.
// Sends happen under the read lock so Unsubscribe cannot close a channel
// mid-send; every send is non-blocking.
func (b *Bus) deliver(event *Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0
	}

	dropped := 0
	for subID, sub := range b.subscribers {
		if !sub.pattern.match(event.Path) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			dropped++
			b.logger.Debug("dropped event for slow subscriber",
				"path", event.Path,
				"event_id", event.ID,
				"sub_id", subID)
		}
	}
	return dropped
}

// Subscribe registers for events whose path matches pattern. It returns a
// channel that receives events and a subscription ID for later
// unsubscription. The subscription is cleaned up when ctx is done.
func (b *Bus) Subscribe(ctx context.Context, patternStr string) (<-chan *Event, string, error) {
	p, err := parsePattern(patternStr)
	if err != nil {
		return nil, "", err
	}

	subID := uuid.New().String()
	ch := make(chan *Event, subscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID, nil
	}
	b.subscribers[subID] = &subscriber{pattern: p, ch: ch}
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "pattern", patternStr, "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(subID)
	}()

	return ch, subID, nil
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	close(sub.ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes every subscriber channel. Later publishes deliver nothing.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subID, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, subID)
	}
	b.closed = true

	b.logger.Debug("bus closed")
}
