// Package registry holds addon operation specifications: for each namespace,
// the ordered operations it provides and their declared inputs and outputs.
//
// Lookups are exact. A Registry is built once (Builtin plus optional YAML
// files) and treated as read-only during validation.
package registry

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Specification types
// ---------------------------------------------------------------------------

// FieldSpec describes one input or output field of an operation.
type FieldSpec struct {
	Name          string `yaml:"name"                    json:"name"                    jsonschema:"required"`
	Documentation string `yaml:"documentation,omitempty" json:"documentation,omitempty"`
	Optional      bool   `yaml:"optional,omitempty"      json:"optional,omitempty"`
}

// OperationSpec describes one addon operation. Matcher is the operation name
// as written after "::" in an action type.
type OperationSpec struct {
	Matcher       string      `yaml:"name"                    json:"name"                    jsonschema:"required"`
	Documentation string      `yaml:"documentation,omitempty" json:"documentation,omitempty"`
	Inputs        []FieldSpec `yaml:"inputs,omitempty"        json:"inputs,omitempty"`
	Outputs       []FieldSpec `yaml:"outputs,omitempty"       json:"outputs,omitempty"`
}

// OutputNames returns declared output names in order.
func (o *OperationSpec) OutputNames() []string {
	names := make([]string, 0, len(o.Outputs))
	for _, f := range o.Outputs {
		names = append(names, f.Name)
	}
	return names
}

// HasOutput reports whether name is a declared output.
func (o *OperationSpec) HasOutput(name string) bool {
	for _, f := range o.Outputs {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Addon is a namespace and its operations.
type Addon struct {
	Namespace     string          `yaml:"namespace"               json:"namespace"               jsonschema:"required"`
	Documentation string          `yaml:"documentation,omitempty" json:"documentation,omitempty"`
	DocsURL       string          `yaml:"docs_url,omitempty"      json:"docs_url,omitempty"`
	Operations    []OperationSpec `yaml:"operations"              json:"operations"`
}

// File is the on-disk registry format.
type File struct {
	Addons []Addon `yaml:"addons" json:"addons" jsonschema:"required"`
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// Registry maps namespaces to ordered operation lists.
type Registry struct {
	addons []*Addon
	byNS   map[string]*Addon
}

// New creates a registry from the given addons.
func New(addons ...Addon) *Registry {
	r := &Registry{byNS: make(map[string]*Addon)}
	for _, a := range addons {
		r.Add(a)
	}
	return r
}

// Add registers an addon. Adding an existing namespace merges operations:
// an operation with the same name replaces the previous one in place, new
// operations are appended.
func (r *Registry) Add(a Addon) {
	existing, ok := r.byNS[a.Namespace]
	if !ok {
		cp := a
		cp.Operations = append([]OperationSpec(nil), a.Operations...)
		r.addons = append(r.addons, &cp)
		r.byNS[a.Namespace] = &cp
		return
	}
	if a.Documentation != "" {
		existing.Documentation = a.Documentation
	}
	if a.DocsURL != "" {
		existing.DocsURL = a.DocsURL
	}
	for _, op := range a.Operations {
		replaced := false
		for i := range existing.Operations {
			if existing.Operations[i].Matcher == op.Matcher {
				existing.Operations[i] = op
				replaced = true
				break
			}
		}
		if !replaced {
			existing.Operations = append(existing.Operations, op)
		}
	}
}

// HasNamespace reports whether ns is registered.
func (r *Registry) HasNamespace(ns string) bool {
	_, ok := r.byNS[ns]
	return ok
}

// Namespaces returns registered namespaces sorted by name.
func (r *Registry) Namespaces() []string {
	out := make([]string, 0, len(r.addons))
	for _, a := range r.addons {
		out = append(out, a.Namespace)
	}
	sort.Strings(out)
	return out
}

// Addon returns the addon registered under ns.
func (r *Registry) Addon(ns string) (*Addon, bool) {
	a, ok := r.byNS[ns]
	return a, ok
}

// Operations returns the operations of ns in registration order.
func (r *Registry) Operations(ns string) []OperationSpec {
	a, ok := r.byNS[ns]
	if !ok {
		return nil
	}
	return a.Operations
}

// Lookup finds an operation by exact namespace and matcher.
func (r *Registry) Lookup(ns, op string) (*OperationSpec, bool) {
	a, ok := r.byNS[ns]
	if !ok {
		return nil, false
	}
	for i := range a.Operations {
		if a.Operations[i].Matcher == op {
			return &a.Operations[i], true
		}
	}
	return nil, false
}

// ActionsLink returns the documentation page listing the actions of ns.
func (r *Registry) ActionsLink(ns string) string {
	if a, ok := r.byNS[ns]; ok && a.DocsURL != "" {
		return a.DocsURL
	}
	return fmt.Sprintf("https://docs.txtx.sh/addons/%s/actions", ns)
}

// DocLink returns the documentation anchor for one operation, or "" when the
// addon publishes no documentation.
func (r *Registry) DocLink(ns, op string) string {
	a, ok := r.byNS[ns]
	if !ok || a.DocsURL == "" {
		return ""
	}
	return a.DocsURL + "#" + op
}
