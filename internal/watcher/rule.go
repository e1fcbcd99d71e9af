package watcher

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/assetgridgo/internal/fsutil"
)

// Rule maps path patterns to the tasks that must re-run when a matching file
// changes.
type Rule struct {
	Name     string
	Patterns []string
	Tasks    []string
}

// Validate checks the rule is usable.
func (r Rule) Validate() error {
	if r.Name == "" {
		return errors.New("watch rule has no name")
	}
	if len(r.Patterns) == 0 {
		return fmt.Errorf("watch rule '%s' has no patterns", r.Name)
	}
	if len(r.Tasks) == 0 {
		return fmt.Errorf("watch rule '%s' has no tasks", r.Name)
	}
	if err := fsutil.ValidatePatterns(r.Patterns); err != nil {
		return fmt.Errorf("watch rule '%s': %w", r.Name, err)
	}
	return nil
}

// Trigger is a batch of work released by one or more closed debounce
// windows.
type Trigger struct {
	// Rules lists the rules that fired, in firing order.
	Rules []string
	// Tasks is the ordered union of the rules' task names.
	Tasks []string
	// Paths are the changed files, relative to the project root.
	Paths []string
}

// merge appends the names and paths of o that t does not contain yet.
func (t *Trigger) merge(o Trigger) {
	t.Rules = appendUnique(t.Rules, o.Rules...)
	t.Tasks = appendUnique(t.Tasks, o.Tasks...)
	t.Paths = appendUnique(t.Paths, o.Paths...)
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		found := false
		for _, d := range dst {
			if d == it {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, it)
		}
	}
	return dst
}
