package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory builds an engine instance from backend-specific options.
type Factory func(ctx context.Context, opts map[string]any) (Engine, error)

// Descriptor describes a registered backend for listings.
type Descriptor struct {
	Name        string
	Description string
}

// Registry maps backend names to factories. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	descs     map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		descs:     make(map[string]string),
	}
}

// Register adds a named backend. Names are unique; re-registering returns
// ErrDuplicateName.
func (r *Registry) Register(name, description string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("register engine: empty name")
	}
	if factory == nil {
		return fmt.Errorf("register engine %s: nil factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	r.factories[name] = factory
	r.descs[name] = description
	return nil
}

// Unregister removes a backend; unknown names are a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, name)
	delete(r.descs, name)
}

// Resolve instantiates the named backend.
func (r *Registry) Resolve(ctx context.Context, name string, opts map[string]any) (Engine, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
	}
	return factory(ctx, opts)
}

// List returns the registered backends sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, Descriptor{Name: name, Description: r.descs[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var defaultRegistry = NewRegistry()

// Default is the process-wide registry that backends register into from
// their init functions.
func Default() *Registry { return defaultRegistry }
