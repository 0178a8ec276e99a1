// ABOUTME: Pack type grouping operations and event declarations under one owner
// ABOUTME: Install registers a pack and stops at the first failure

package operations

import (
	"context"
	"fmt"

	"github.com/2389/sml-gateway/internal/events"
	"github.com/2389/sml-gateway/internal/sml"
)

// OperationDef is one operation of a pack.
type OperationDef struct {
	Path       string
	Visibility sml.Visibility
	Schema     sml.Schema
	Handler    sml.Handler
}

// EventDef is one event declaration of a pack.
type EventDef struct {
	Path   string
	Schema sml.EventSchema
}

// Pack is a set of operations and events registered by one owner.
type Pack struct {
	Owner      string
	Operations []OperationDef
	Events     []EventDef
}

// Install registers every operation and event of p.
func Install(reg *sml.Registry, p *Pack) error {
	opts := sml.Options{Owner: p.Owner}
	for _, ev := range p.Events {
		if err := reg.DeclareEvent(ev.Path, ev.Schema, opts); err != nil {
			return fmt.Errorf("pack %s: declaring %s: %w", p.Owner, ev.Path, err)
		}
	}
	for _, op := range p.Operations {
		opOpts := opts
		opOpts.Visibility = op.Visibility
		if err := reg.Register(op.Path, sml.Operation{Handler: op.Handler, Schema: op.Schema}, opOpts); err != nil {
			return fmt.Errorf("pack %s: registering %s: %w", p.Owner, op.Path, err)
		}
	}
	return nil
}

// traced carries the execution trace id into events published by the handler.
func traced(ctx context.Context, ec *sml.ExecContext) context.Context {
	if ec == nil || ec.TraceID == "" {
		return ctx
	}
	return events.WithTraceID(ctx, ec.TraceID)
}

// stringSlice converts a decoded JSON array to strings.
func stringSlice(v any) ([]string, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return s, nil
	case []any:
		out := make([]string, 0, len(s))
		for i, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, not a string", i, item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an array of strings, got %T", v)
	}
}

func optionalString(p sml.Params, key string) *string {
	if !p.Has(key) {
		return nil
	}
	s := p.String(key)
	return &s
}
