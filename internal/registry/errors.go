package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFrozen is returned by Define and DefineAll after Freeze.
var ErrFrozen = errors.New("registry is frozen: tasks can only be defined during configuration")

// DuplicateTaskError reports a second definition for an existing name.
type DuplicateTaskError struct {
	Name string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("task '%s' is already defined", e.Name)
}

// UnknownTaskError reports a lookup of a name that was never defined.
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("task '%s' is not defined", e.Name)
}

// UnknownReferenceError reports a composition member that names no task.
type UnknownReferenceError struct {
	Task      string
	Reference string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("task '%s' references undefined task '%s'", e.Task, e.Reference)
}

// CycleError reports a task that transitively depends on itself. Path starts
// and ends with the same task name.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %s", strings.Join(e.Path, " -> "))
}
