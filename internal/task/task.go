package task

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Kind distinguishes the three composition variants.
type Kind int

const (
	// Leaf wraps exactly one transform invocation.
	Leaf Kind = iota
	// Series runs its members one after another, stopping at the first failure.
	Series
	// Parallel runs all of its members concurrently and waits for every one.
	Parallel
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case Leaf:
		return "leaf"
	case Series:
		return "series"
	case Parallel:
		return "parallel"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// LeafSpec describes how a leaf task calls its transform.
type LeafSpec struct {
	// Transform is the name the transform was registered under.
	Transform string
	// Inputs are glob patterns relative to the project root. A pattern
	// prefixed with "!" removes matches from the set.
	Inputs []string
	// Base is the directory output paths are made relative to. Empty means
	// the static prefix of each input pattern.
	Base string
	// Output is the destination directory or file.
	Output string
	// Options are passed to the transform untouched.
	Options cty.Value
	// Incremental enables input filtering by the incremental gate.
	Incremental bool
}

// Composition is the body of a task definition.
type Composition struct {
	Kind Kind
	// Leaf is set only for Kind == Leaf.
	Leaf *LeafSpec
	// Members lists referenced task names for Series and Parallel.
	Members []string
	// StyleOnly marks tasks whose output is limited to stylesheets, which
	// lets connected browsers swap styles instead of reloading the page.
	StyleOnly bool
}

// References returns the names of the tasks this composition points at.
func (c Composition) References() []string {
	if c.Kind == Leaf {
		return nil
	}
	return c.Members
}

// Validate checks the composition is well formed on its own, without looking
// at any other task.
func (c Composition) Validate() error {
	switch c.Kind {
	case Leaf:
		if c.Leaf == nil {
			return errors.New("leaf composition has no transform spec")
		}
		if c.Leaf.Transform == "" {
			return errors.New("leaf composition has an empty transform name")
		}
		if len(c.Members) > 0 {
			return errors.New("leaf composition cannot have members")
		}
	case Series, Parallel:
		if c.Leaf != nil {
			return fmt.Errorf("%s composition cannot carry a transform", c.Kind)
		}
		if len(c.Members) == 0 {
			return fmt.Errorf("%s composition has no members", c.Kind)
		}
		seen := make(map[string]struct{}, len(c.Members))
		for _, m := range c.Members {
			if m == "" {
				return fmt.Errorf("%s composition has an empty member name", c.Kind)
			}
			if _, dup := seen[m]; dup {
				return fmt.Errorf("%s composition lists '%s' more than once", c.Kind, m)
			}
			seen[m] = struct{}{}
		}
	default:
		return fmt.Errorf("unknown composition kind %d", int(c.Kind))
	}
	return nil
}

// String renders the composition compactly, e.g. "series[clear, pages]".
func (c Composition) String() string {
	if c.Kind == Leaf {
		if c.Leaf == nil {
			return "leaf(<nil>)"
		}
		return fmt.Sprintf("leaf(%s)", c.Leaf.Transform)
	}
	return fmt.Sprintf("%s[%s]", c.Kind, strings.Join(c.Members, ", "))
}

// Task is a named composition, the unit stored in the registry.
type Task struct {
	Name string
	Composition
}
