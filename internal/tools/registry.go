package tools

import "fmt"

// Registry holds tool definitions keyed by name, preserving registration order.
type Registry struct {
	defs  []Definition
	index map[string]int
}

// NewRegistry returns a registry holding defs. Duplicate names panic.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{index: make(map[string]int)}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a definition. Names must be unique and non-empty.
func (r *Registry) Register(d Definition) error {
	if d.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if d.Function == nil {
		return fmt.Errorf("tool %s has no function", d.Name)
	}
	if _, ok := r.index[d.Name]; ok {
		return fmt.Errorf("tool %s already registered", d.Name)
	}
	r.index[d.Name] = len(r.defs)
	r.defs = append(r.defs, d)
	return nil
}

// Lookup returns the definition with the given name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	i, ok := r.index[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// Definitions returns all tools in registration order.
func (r *Registry) Definitions() []Definition {
	if r == nil {
		return nil
	}
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.defs))
	for i, d := range r.defs {
		names[i] = d.Name
	}
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.defs)
}
