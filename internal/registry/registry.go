package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/specialistvlad/assetgridgo/internal/task"
)

// Registry holds all task definitions for a single pipeline.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]*task.Task
	order  []string
	frozen bool
}

// New creates and initializes a new, empty Registry.
func New() *Registry {
	return &Registry{
		tasks: make(map[string]*task.Task),
	}
}

// Define registers a single task.
func (r *Registry) Define(name string, c task.Composition) error {
	return r.DefineAll(&task.Task{Name: name, Composition: c})
}

// DefineAll registers a batch of tasks atomically. Members may reference
// each other regardless of their order in the batch. On error nothing from
// the batch is stored.
func (r *Registry) DefineAll(tasks ...*task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrFrozen
	}

	batch := make(map[string]*task.Task, len(tasks))
	for _, t := range tasks {
		if t == nil || t.Name == "" {
			return errors.New("task name must not be empty")
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("task '%s': %w", t.Name, err)
		}
		if _, exists := r.tasks[t.Name]; exists {
			return &DuplicateTaskError{Name: t.Name}
		}
		if _, exists := batch[t.Name]; exists {
			return &DuplicateTaskError{Name: t.Name}
		}
		batch[t.Name] = t
	}

	lookup := func(name string) (*task.Task, bool) {
		if t, ok := batch[name]; ok {
			return t, true
		}
		t, ok := r.tasks[name]
		return t, ok
	}

	for _, t := range tasks {
		for _, ref := range t.References() {
			if _, ok := lookup(ref); !ok {
				return &UnknownReferenceError{Task: t.Name, Reference: ref}
			}
		}
	}

	if err := detectCycles(tasks, lookup); err != nil {
		return err
	}

	for _, t := range tasks {
		r.tasks[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return nil
}

// detectCycles runs a depth-first search from every task in the batch. Tasks
// already in the registry can only reach other registered tasks, so any new
// cycle must pass through the batch.
func detectCycles(tasks []*task.Task, lookup func(string) (*task.Task, bool)) error {
	// permanent: fully explored and known to be acyclic.
	// inProgress: on the current recursion stack.
	permanent := make(map[string]bool)
	inProgress := make(map[string]bool)
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		if permanent[name] {
			return nil
		}
		if inProgress[name] {
			start := 0
			for i, n := range stack {
				if n == name {
					start = i
					break
				}
			}
			path := append(append([]string(nil), stack[start:]...), name)
			return &CycleError{Path: path}
		}

		inProgress[name] = true
		stack = append(stack, name)

		t, _ := lookup(name)
		for _, ref := range t.References() {
			if err := visit(ref); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(inProgress, name)
		permanent[name] = true
		return nil
	}

	for _, t := range tasks {
		if err := visit(t.Name); err != nil {
			return err
		}
	}
	return nil
}

// Freeze ends the configuration phase.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Task returns the definition registered under name.
func (r *Registry) Task(name string) (*task.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// Names returns all task names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Resolve returns the composition tree rooted at name.
func (r *Registry) Resolve(name string) (*task.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolve(name)
}

func (r *Registry) resolve(name string) (*task.Node, error) {
	t, ok := r.tasks[name]
	if !ok {
		return nil, &UnknownTaskError{Name: name}
	}
	n := &task.Node{Task: t}
	for _, ref := range t.References() {
		child, err := r.resolve(ref)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// Compose resolves several task names into one tree. A single name resolves
// to its own tree; several names become a synthetic series labelled label,
// run in the given order.
func (r *Registry) Compose(label string, names ...string) (*task.Node, error) {
	if len(names) == 0 {
		return nil, errors.New("compose requires at least one task name")
	}
	if len(names) == 1 {
		return r.Resolve(names[0])
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	root := &task.Node{Task: &task.Task{Name: label, Composition: task.NewSeries(names...)}}
	for _, name := range names {
		child, err := r.resolve(name)
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, child)
	}
	return root, nil
}

// StyleOnly reports whether every named task is classified as style-only.
// It is false for an empty list or when any name is unknown.
func (r *Registry) StyleOnly(names ...string) bool {
	if len(names) == 0 {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		t, ok := r.tasks[name]
		if !ok || !t.StyleOnly {
			return false
		}
	}
	return true
}

// TransformLookup reports whether a transform name is known.
type TransformLookup interface {
	Has(name string) bool
}

// Validate checks every leaf refers to a registered transform. All problems
// are collected into a single error.
func (r *Registry) Validate(ctx context.Context, transforms TransformLookup) error {
	logger := ctxlog.FromContext(ctx)

	r.mu.RLock()
	names := append([]string(nil), r.order...)
	r.mu.RUnlock()
	sort.Strings(names)

	var errs []string
	leaves := 0
	for _, name := range names {
		t, _ := r.Task(name)
		if t.Kind != task.Leaf {
			continue
		}
		leaves++
		if !transforms.Has(t.Leaf.Transform) {
			errs = append(errs, fmt.Sprintf("task '%s': transform '%s' is not registered", name, t.Leaf.Transform))
		}
		if t.Leaf.Output == "" && len(t.Leaf.Inputs) > 0 {
			logger.Warn("Leaf task declares inputs but no output.", "task", name)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Registry validation passed.", "tasks", len(names), "leaves", leaves)
	return nil
}
