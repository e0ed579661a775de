package engine

import (
	"fmt"
	"sync"
)

// Registry is the explicit collector units register into. It replaces a
// process-wide subclass registry: tests construct isolated registries and
// the host injects one at composition time. Registration order is the
// traversal order for everything downstream.
type Registry struct {
	mu    sync.RWMutex
	order []*Engine
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a unit. Units register once, at definition time, and are
// never removed for the process lifetime. Registering the same instance
// twice is a no-op; a different instance under a taken name is an error.
func (r *Registry) Register(e *Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := e.Name()
	for _, existing := range r.order {
		if existing == e {
			return nil
		}
		if existing.Name() == name {
			return fmt.Errorf("registry: engine %q already registered", name)
		}
	}
	r.order = append(r.order, e)
	return nil
}

// All returns every registered unit in registration order.
func (r *Registry) All() []*Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Engine(nil), r.order...)
}

// Get returns a unit by engine name. Names are read live, so a unit
// isolated after registration is found under its derived name.
func (r *Registry) Get(name string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.order {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
