package transform

import (
	"fmt"
	"log/slog"
	"sort"
)

// Module is the interface every bundled transform package implements.
type Module interface {
	Register(r *Registry)
}

// Registry maps transform names used in pipeline files to steps.
type Registry struct {
	steps map[string]Step
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{steps: make(map[string]Step)}
}

// Register adds a step under name. Registering a name twice is a programmer
// error and panics.
func (r *Registry) Register(name string, step Step) {
	if _, exists := r.steps[name]; exists {
		panic(fmt.Sprintf("transform with name '%s' already registered", name))
	}
	slog.Debug("Registering transform.", "name", name)
	r.steps[name] = step
}

// Lookup returns the step registered under name.
func (r *Registry) Lookup(name string) (Step, bool) {
	s, ok := r.steps[name]
	return s, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.steps[name]
	return ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.steps))
	for n := range r.steps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
