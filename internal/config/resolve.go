package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/specialistvlad/assetgridgo/internal/fsutil"
	"github.com/specialistvlad/assetgridgo/internal/task"
)

// Compositions translates the task blocks into task definitions ready for
// registration.
func (m *Model) Compositions() ([]*task.Task, error) {
	var errs []string
	out := make([]*task.Task, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		def, err := t.Composition()
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		out = append(out, &task.Task{Name: t.Name, Composition: def})
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid task definitions:\n- %s", strings.Join(errs, "\n- "))
	}
	return out, nil
}

// Composition returns the task body described by the block.
func (t *Task) Composition() (task.Composition, error) {
	set := 0
	for _, present := range []bool{t.Transform != "", len(t.Series) > 0, len(t.Parallel) > 0} {
		if present {
			set++
		}
	}
	if set != 1 {
		return task.Composition{}, fmt.Errorf("task '%s' must set exactly one of transform, series or parallel", t.Name)
	}

	var c task.Composition
	switch {
	case t.Transform != "":
		if err := fsutil.ValidatePatterns(t.Inputs); err != nil {
			return task.Composition{}, fmt.Errorf("task '%s': %w", t.Name, err)
		}
		incremental := true
		if t.Incremental != nil {
			incremental = *t.Incremental
		}
		c = task.NewLeaf(task.LeafSpec{
			Transform:   t.Transform,
			Inputs:      t.Inputs,
			Base:        t.Base,
			Output:      t.Output,
			Options:     t.Options,
			Incremental: incremental,
		})
	case len(t.Series) > 0:
		c = task.NewSeries(t.Series...)
	default:
		c = task.NewParallel(t.Parallel...)
	}
	if t.StyleOnly {
		c = c.WithStyleOnly()
	}
	if err := c.Validate(); err != nil {
		return task.Composition{}, fmt.Errorf("task '%s': %w", t.Name, err)
	}
	return c, nil
}

// Profile returns the named profile. A pipeline without profile blocks
// yields an empty profile for any name.
func (m *Model) Profile(name string) (*Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	if p, ok := m.Profiles[name]; ok {
		return p, nil
	}
	if len(m.Profiles) == 0 {
		return &Profile{Name: name, Vars: map[string]any{}}, nil
	}
	known := make([]string, 0, len(m.Profiles))
	for k := range m.Profiles {
		known = append(known, k)
	}
	sort.Strings(known)
	return nil, fmt.Errorf("profile '%s' is not declared (available: %s)", name, strings.Join(known, ", "))
}

// DebounceDuration parses the project debounce window. Zero means the watcher
// default.
func (p Project) DebounceDuration() (time.Duration, error) {
	if p.Debounce == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.Debounce)
	if err != nil {
		return 0, fmt.Errorf("invalid project debounce %q: %w", p.Debounce, err)
	}
	if d < 0 {
		return 0, errors.New("project debounce must not be negative")
	}
	return d, nil
}
