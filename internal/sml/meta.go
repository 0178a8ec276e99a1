// ABOUTME: Introspection snapshots of the registry for tooling and discovery
// ABOUTME: The public variant never carries ownership or visibility data

package sml

import (
	"maps"
	"slices"
	"sort"
	"strings"
)

const (
	modelsPrefix       = "data.models."
	integrationsPrefix = "integrations."
)

// OperationMeta describes one operation in a snapshot.
type OperationMeta struct {
	Path        string               `json:"path"`
	Description string               `json:"description,omitempty"`
	Params      map[string]ParamSpec `json:"params,omitempty"`
	Returns     string               `json:"returns,omitempty"`
}

// EventMeta describes one declared event in a snapshot.
type EventMeta struct {
	Path        string               `json:"path"`
	Description string               `json:"description,omitempty"`
	Type        EventType            `json:"type"`
	Payload     map[string]ParamSpec `json:"payload,omitempty"`
}

// Node is one segment of the operation tree. Operation is set on leaves;
// a path can be both an operation and a namespace.
type Node struct {
	Operation *OperationMeta   `json:"operation,omitempty"`
	Children  map[string]*Node `json:"children,omitempty"`
}

// Meta is a snapshot of the registry.
type Meta struct {
	Domains      []string         `json:"domains"`
	Tree         map[string]*Node `json:"tree"`
	Models       []string         `json:"models"`
	Integrations []string         `json:"integrations"`
	Events       []EventMeta      `json:"events"`

	// Only set by Registry.Meta.
	Owners     map[string]string     `json:"owners,omitempty"`
	Visibility map[string]Visibility `json:"visibility,omitempty"`
}

// Meta returns the full snapshot including ownership and visibility maps.
func (r *Registry) Meta() Meta {
	m := r.snapshot(nil)
	r.mu.RLock()
	defer r.mu.RUnlock()
	m.Owners = make(map[string]string, len(r.ops))
	m.Visibility = make(map[string]Visibility, len(r.ops))
	for path, e := range r.ops {
		m.Owners[path] = e.owner
		m.Visibility[path] = e.visibility
	}
	return m
}

// PublicMeta returns a snapshot of public operations, plus admin ones when
// includeAdmin is set. It carries no ownership or visibility data.
func (r *Registry) PublicMeta(includeAdmin bool) Meta {
	allowed := []Visibility{VisibilityPublic}
	if includeAdmin {
		allowed = append(allowed, VisibilityAdmin)
	}
	return r.snapshot(func(v Visibility) bool { return slices.Contains(allowed, v) })
}

func (r *Registry) snapshot(allow func(Visibility) bool) Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := Meta{
		Domains:      []string{},
		Tree:         make(map[string]*Node),
		Models:       []string{},
		Integrations: []string{},
		Events:       []EventMeta{},
	}

	domains := make(map[string]bool)
	models := make(map[string]bool)
	integrations := make(map[string]bool)

	for _, path := range slices.Sorted(maps.Keys(r.ops)) {
		e := r.ops[path]
		if allow != nil && !allow(e.visibility) {
			continue
		}

		segments := strings.Split(path, ".")
		domains[segments[0]] = true
		if name, ok := segmentAfter(path, modelsPrefix); ok {
			models[name] = true
		}
		if name, ok := segmentAfter(path, integrationsPrefix); ok {
			integrations[name] = true
		}

		insert(m.Tree, segments, &OperationMeta{
			Path:        path,
			Description: e.op.Schema.Description,
			Params:      maps.Clone(e.op.Schema.Params),
			Returns:     e.op.Schema.Returns,
		})
	}

	for _, path := range slices.Sorted(maps.Keys(r.events)) {
		e := r.events[path]
		m.Events = append(m.Events, EventMeta{
			Path:        path,
			Description: e.schema.Description,
			Type:        e.schema.Type,
			Payload:     maps.Clone(e.schema.Payload),
		})
	}

	m.Domains = sortedKeys(domains)
	m.Models = sortedKeys(models)
	m.Integrations = sortedKeys(integrations)
	return m
}

func insert(tree map[string]*Node, segments []string, op *OperationMeta) {
	level := tree
	for i, seg := range segments {
		node, ok := level[seg]
		if !ok {
			node = &Node{}
			level[seg] = node
		}
		if i == len(segments)-1 {
			node.Operation = op
			return
		}
		if node.Children == nil {
			node.Children = make(map[string]*Node)
		}
		level = node.Children
	}
}

// segmentAfter returns the segment following prefix when path continues past it.
func segmentAfter(path, prefix string) (string, bool) {
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	name, _, _ := strings.Cut(path[len(prefix):], ".")
	return name, name != ""
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
