// ABOUTME: Thread-safe, write-once registry of operations and declared events
// ABOUTME: Handles registration, locking, lookup, and visibility-gated execution

package sml

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/sml-gateway/internal/auth"
)

// Execution outcomes reported to observers.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
	OutcomeInvalid = "invalid"
)

var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type opEntry struct {
	path       string
	op         Operation
	owner      string
	visibility Visibility
}

type eventEntry struct {
	path   string
	schema EventSchema
	owner  string
}

// ExecRecord describes one finished execution.
type ExecRecord struct {
	Path      string
	Outcome   string
	ErrorCode ErrorCode
	Duration  time.Duration
	TraceID   string
	ActorID   string
	At        time.Time
}

// Observer is notified after every execution of a registered operation.
type Observer func(ctx context.Context, rec ExecRecord)

// Registry maps paths to operations and declared events.
type Registry struct {
	mu        sync.RWMutex
	ops       map[string]*opEntry
	events    map[string]*eventEntry
	locked    bool
	observers []Observer
	logger    *slog.Logger
}

// NewRegistry creates an open registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		ops:    make(map[string]*opEntry),
		events: make(map[string]*eventEntry),
		logger: logger.With("component", "sml"),
	}
}

// ValidPath reports whether path is one or more non-empty dot segments of
// letters, digits, '_' or '-'.
func ValidPath(path string) bool {
	if path == "" {
		return false
	}
	for _, seg := range strings.Split(path, ".") {
		if !segmentPattern.MatchString(seg) {
			return false
		}
	}
	return true
}

// Register adds an operation. It fails when the registry is locked, when the
// path is already registered, or when the definition is invalid.
func (r *Registry) Register(path string, op Operation, opts Options) error {
	if !ValidPath(path) {
		return newError(CodeInvalidDefinition, path, "invalid operation path %q", path)
	}
	if op.Handler == nil {
		return newError(CodeInvalidDefinition, path, "operation has no handler")
	}
	vis := opts.Visibility
	if vis == "" {
		vis = VisibilityPublic
	}
	if !vis.Valid() {
		return newError(CodeInvalidDefinition, path, "unknown visibility %q", vis)
	}
	if err := validateSpecs(op.Schema.Params); err != nil {
		return newError(CodeInvalidDefinition, path, "%v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.locked {
		return newError(CodeRegistryLocked, path, "registry is locked; cannot register operation")
	}
	if existing, exists := r.ops[path]; exists {
		return newError(CodeDuplicateRegistration, path, "operation already registered by %q", existing.owner)
	}

	op.Schema = cloneSchema(op.Schema)
	r.ops[path] = &opEntry{path: path, op: op, owner: opts.Owner, visibility: vis}

	r.logger.Debug("operation registered", "path", path, "owner", opts.Owner, "visibility", vis)
	return nil
}

// DeclareEvent adds an event declaration. Events are a separate namespace
// from operations with the same write-once rules.
func (r *Registry) DeclareEvent(path string, schema EventSchema, opts Options) error {
	if !ValidPath(path) {
		return newError(CodeInvalidDefinition, path, "invalid event path %q", path)
	}
	if !schema.Type.Valid() {
		return newError(CodeInvalidDefinition, path, "unknown event type %q", schema.Type)
	}
	if err := validateSpecs(schema.Payload); err != nil {
		return newError(CodeInvalidDefinition, path, "%v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.locked {
		return newError(CodeRegistryLocked, path, "registry is locked; cannot declare event")
	}
	if existing, exists := r.events[path]; exists {
		return newError(CodeDuplicateRegistration, path, "event already declared by %q", existing.owner)
	}

	schema.Payload = maps.Clone(schema.Payload)
	r.events[path] = &eventEntry{path: path, schema: schema, owner: opts.Owner}

	r.logger.Debug("event declared", "path", path, "owner", opts.Owner, "type", schema.Type)
	return nil
}

// Lock forbids further registrations. Calling it again has no effect.
func (r *Registry) Lock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locked {
		return
	}
	r.locked = true
	r.logger.Info("registry locked", "operations", len(r.ops), "events", len(r.events))
}

// Locked reports whether Lock has been called.
func (r *Registry) Locked() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locked
}

// OnExecute adds an observer for finished executions.
func (r *Registry) OnExecute(obs Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, obs)
}

// Has reports whether an operation is registered at path.
func (r *Registry) Has(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ops[path]
	return ok
}

// HasEvent reports whether an event is declared at path.
func (r *Registry) HasEvent(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.events[path]
	return ok
}

// Event returns the declaration at path.
func (r *Registry) Event(path string) (EventSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[path]
	if !ok {
		return EventSchema{}, false
	}
	return e.schema, true
}

// GetOwner returns the owner of the operation or event at path.
func (r *Registry) GetOwner(path string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.ops[path]; ok {
		return e.owner, true
	}
	if e, ok := r.events[path]; ok {
		return e.owner, true
	}
	return "", false
}

// GetByOwner returns the sorted operation paths registered by owner.
func (r *Registry) GetByOwner(owner string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var paths []string
	for path, e := range r.ops {
		if e.owner == owner {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

// GetVisibility returns the visibility of the operation at path.
func (r *Registry) GetVisibility(path string) (Visibility, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.ops[path]; ok {
		return e.visibility, true
	}
	return "", false
}

// List returns the sorted immediate child segments under prefix, or the
// top-level domains when prefix is empty. Operations and events both count.
func (r *Registry) List(prefix string) []string {
	return r.list(prefix, nil)
}

// ListVisible is List restricted to operations with one of the given
// visibilities. Events are always included.
func (r *Registry) ListVisible(prefix string, visibilities ...Visibility) []string {
	return r.list(prefix, func(v Visibility) bool { return slices.Contains(visibilities, v) })
}

func (r *Registry) list(prefix string, allow func(Visibility) bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	add := func(path string) {
		if seg, ok := childSegment(prefix, path); ok {
			seen[seg] = true
		}
	}
	for path, e := range r.ops {
		if allow == nil || allow(e.visibility) {
			add(path)
		}
	}
	for path := range r.events {
		add(path)
	}

	out := slices.Collect(maps.Keys(seen))
	sort.Strings(out)
	return out
}

// childSegment returns the segment of path directly below prefix.
func childSegment(prefix, path string) (string, bool) {
	rest := path
	if prefix != "" {
		if !strings.HasPrefix(path, prefix+".") {
			return "", false
		}
		rest = path[len(prefix)+1:]
	}
	seg, _, _ := strings.Cut(rest, ".")
	return seg, seg != ""
}

// Resolution kinds.
const (
	KindOperation = "operation"
	KindEvent     = "event"
	KindNamespace = "namespace"
)

// Resolution describes what a path names.
type Resolution struct {
	Exists      bool         `json:"exists"`
	Path        string       `json:"path"`
	Kind        string       `json:"kind,omitempty"`
	Owner       string       `json:"owner,omitempty"`
	Schema      *Schema      `json:"schema,omitempty"`
	EventSchema *EventSchema `json:"eventSchema,omitempty"`
	Visibility  Visibility   `json:"visibility,omitempty"`
	Children    []string     `json:"children,omitempty"`
}

// Resolve looks up path. Operations take precedence over events, and events
// over namespaces. An unknown path that is not a namespace resolves with
// Exists false.
func (r *Registry) Resolve(path string) Resolution {
	r.mu.RLock()
	if e, ok := r.ops[path]; ok {
		schema := cloneSchema(e.op.Schema)
		r.mu.RUnlock()
		return Resolution{
			Exists:     true,
			Path:       path,
			Kind:       KindOperation,
			Owner:      e.owner,
			Schema:     &schema,
			Visibility: e.visibility,
		}
	}
	if e, ok := r.events[path]; ok {
		schema := e.schema
		schema.Payload = maps.Clone(schema.Payload)
		r.mu.RUnlock()
		return Resolution{
			Exists:      true,
			Path:        path,
			Kind:        KindEvent,
			Owner:       e.owner,
			EventSchema: &schema,
		}
	}
	r.mu.RUnlock()

	if path != "" {
		if children := r.List(path); len(children) > 0 {
			return Resolution{Exists: true, Path: path, Kind: KindNamespace, Children: children}
		}
	}
	return Resolution{Exists: false, Path: path}
}

// Execute runs the operation at path. It checks visibility against ec,
// validates params against the schema, and then calls the handler. A fresh
// trace id is assigned when ec has none. Handler errors and panics are
// returned as SML_EXECUTION_FAILED wrapping the original error.
func (r *Registry) Execute(ctx context.Context, path string, params Params, ec *ExecContext) (any, error) {
	r.mu.RLock()
	e, ok := r.ops[path]
	observers := r.observers
	r.mu.RUnlock()

	if !ok {
		return nil, NotFoundError(path, "operation")
	}

	exec := ExecContext{}
	if ec != nil {
		exec = *ec
	}
	if exec.User == nil {
		exec.User = auth.Anonymous()
	}
	if exec.TraceID == "" {
		exec.TraceID = uuid.New().String()
	}
	if params == nil {
		params = Params{}
	}

	start := time.Now()
	result, err := r.run(ctx, e, params, &exec)
	duration := time.Since(start)

	rec := ExecRecord{
		Path:     path,
		Outcome:  OutcomeSuccess,
		Duration: duration,
		TraceID:  exec.TraceID,
		ActorID:  exec.ActorID(),
		At:       start,
	}
	if err != nil {
		rec.ErrorCode = err.Code
		rec.Outcome = outcomeFor(err.Code)
	}
	for _, obs := range observers {
		obs(ctx, rec)
	}

	logger := r.logger.With("path", path, "trace_id", exec.TraceID, "duration", duration)
	if err != nil {
		logger.Warn("operation failed", "code", err.Code, "error", err.Message)
		return nil, err
	}
	logger.Debug("operation executed")
	return result, nil
}

func (r *Registry) run(ctx context.Context, e *opEntry, params Params, ec *ExecContext) (any, *Error) {
	if err := authorize(e, ec); err != nil {
		return nil, err
	}

	if violations := ValidateParams(e.op.Schema.Params, params); len(violations) > 0 {
		return nil, ValidationError(e.path, violations)
	}

	return invokeHandler(ctx, e, params, ec)
}

func invokeHandler(ctx context.Context, e *opEntry, params Params, ec *ExecContext) (result any, execErr *Error) {
	defer func() {
		if p := recover(); p != nil {
			execErr = newError(CodeExecutionFailed, e.path, "operation %s panicked: %v", e.path, p)
			execErr.cause = fmt.Errorf("panic: %v", p)
		}
	}()

	result, err := e.op.Handler(ctx, params, ec)
	if err != nil {
		execErr = newError(CodeExecutionFailed, e.path, "operation %s failed: %s", e.path, err.Error())
		execErr.cause = err
		return nil, execErr
	}
	return result, nil
}

// authorize enforces the operation's visibility tier.
func authorize(e *opEntry, ec *ExecContext) *Error {
	if ec.System {
		return nil
	}
	switch e.visibility {
	case VisibilityPublic:
		return nil
	case VisibilityInternal:
		if !ec.User.IsAnonymous() || ec.Workflow != nil {
			return nil
		}
		return newError(CodePermissionDenied, e.path, "operation %s requires an authenticated user or workflow", e.path)
	case VisibilityAdmin:
		if ec.User.IsAdmin() {
			return nil
		}
		return newError(CodePermissionDenied, e.path, "operation %s requires an admin role", e.path)
	default:
		return newError(CodePermissionDenied, e.path, "operation %s is not externally callable", e.path)
	}
}

func outcomeFor(code ErrorCode) string {
	switch code {
	case CodePermissionDenied:
		return OutcomeDenied
	case CodeValidationFailed:
		return OutcomeInvalid
	default:
		return OutcomeFailure
	}
}

func cloneSchema(s Schema) Schema {
	s.Params = maps.Clone(s.Params)
	return s
}
