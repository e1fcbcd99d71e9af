package transform

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Request is everything a step gets to know about one invocation.
type Request struct {
	// Task is the name of the leaf task being run.
	Task string
	// Root is the absolute project root.
	Root string
	// Inputs are absolute paths of the files to process.
	Inputs []string
	// Base is the absolute directory outputs are made relative to.
	Base string
	// Output is the absolute destination.
	Output string
	// Options is the task's options object as written in the pipeline.
	// Steps read it through Decode.
	Options cty.Value
	// Profile is the name of the active configuration profile.
	Profile string
	// Vars are the variables of the active profile.
	Vars map[string]any
}

// Result lists the files a step wrote.
type Result struct {
	Outputs []string
}

// Step is a single opaque unit of work.
type Step interface {
	Run(ctx context.Context, req *Request) (*Result, error)
}

// Func adapts a plain function to the Step interface.
type Func func(ctx context.Context, req *Request) (*Result, error)

// Run implements Step.
func (f Func) Run(ctx context.Context, req *Request) (*Result, error) {
	return f(ctx, req)
}

// OutputPath maps an input file to its destination below Output, keeping the
// input's position relative to Base.
func (r *Request) OutputPath(input string) (string, error) {
	base := r.Base
	if base == "" {
		base = filepath.Dir(input)
	}
	rel, err := filepath.Rel(base, input)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("input %s is outside base %s", input, base)
	}
	return filepath.Join(r.Output, rel), nil
}
