// ABOUTME: Operation, schema, event, and execution context types for the registry
// ABOUTME: Params helpers coerce JSON-decoded values for handlers

package sml

import (
	"context"
	"fmt"

	"github.com/2389/sml-gateway/internal/auth"
)

// Visibility is the access tier of an operation.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityInternal Visibility = "internal"
	VisibilityAdmin    Visibility = "admin"
	VisibilityHidden   Visibility = "hidden"
)

// Valid reports whether v is one of the known tiers.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityInternal, VisibilityAdmin, VisibilityHidden:
		return true
	}
	return false
}

// ParamType is a parameter type tag. Tags other than the constants below
// are accepted and never type-checked.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
	TypeArray   ParamType = "array"
	TypeDate    ParamType = "Date"
)

// ParamSpec constrains one named parameter.
type ParamSpec struct {
	Type        ParamType `json:"type"`
	Required    bool      `json:"required,omitempty"`
	Nullable    bool      `json:"nullable,omitempty"`
	Enum        []any     `json:"enum,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Schema describes an operation's inputs and output.
type Schema struct {
	Description string               `json:"description,omitempty"`
	Params      map[string]ParamSpec `json:"params,omitempty"`
	Returns     string               `json:"returns,omitempty"`
}

// Params are the named arguments of a call.
type Params map[string]any

// String returns the string at key, or "" when absent or not a string.
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Number returns the numeric value at key.
func (p Params) Number(key string) (float64, bool) {
	return toFloat(p[key])
}

// Int returns the numeric value at key truncated to an int, or def when absent.
func (p Params) Int(key string, def int) int {
	if f, ok := toFloat(p[key]); ok {
		return int(f)
	}
	return def
}

// Bool returns the boolean at key.
func (p Params) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// Has reports whether key is present and non-null.
func (p Params) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// Handler executes an operation.
type Handler func(ctx context.Context, params Params, ec *ExecContext) (any, error)

// Operation pairs a handler with its schema.
type Operation struct {
	Handler Handler
	Schema  Schema
}

// Options are registration metadata.
type Options struct {
	Owner      string
	Visibility Visibility // defaults to public
}

// EventType classifies declared events.
type EventType string

const (
	EventSystem      EventType = "system"
	EventDomain      EventType = "domain"
	EventIntegration EventType = "integration"
	EventUI          EventType = "ui"
	EventInternal    EventType = "internal"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventSystem, EventDomain, EventIntegration, EventUI, EventInternal:
		return true
	}
	return false
}

// EventSchema declares an event. Events have no handler.
type EventSchema struct {
	Description string               `json:"description,omitempty"`
	Type        EventType            `json:"type"`
	Payload     map[string]ParamSpec `json:"payload,omitempty"`
}

// WorkflowContext identifies the workflow that triggered an execution.
type WorkflowContext struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Event string `json:"event,omitempty"`
}

// ExecContext is the caller context of one execution.
type ExecContext struct {
	User      *auth.Identity
	Workflow  *WorkflowContext
	TraceID   string
	RequestID string

	// System marks trusted in-process calls. Only system calls may run
	// hidden operations.
	System bool
}

// ActorID returns the user id, empty for anonymous callers.
func (ec *ExecContext) ActorID() string {
	if ec == nil || ec.User == nil {
		return ""
	}
	return ec.User.ID
}

func (ec *ExecContext) String() string {
	return fmt.Sprintf("user=%q workflow=%v trace=%s system=%t", ec.ActorID(), ec.Workflow != nil, ec.TraceID, ec.System)
}
