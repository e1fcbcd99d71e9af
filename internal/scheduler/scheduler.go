package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/specialistvlad/assetgridgo/internal/fsutil"
	"github.com/specialistvlad/assetgridgo/internal/gate"
	"github.com/specialistvlad/assetgridgo/internal/task"
	"github.com/specialistvlad/assetgridgo/internal/transform"
	"golang.org/x/sync/errgroup"
)

// TransformLookup resolves transform names to steps.
type TransformLookup interface {
	Lookup(name string) (transform.Step, bool)
}

// Scheduler executes composition trees.
type Scheduler struct {
	root       string
	transforms TransformLookup
	gate       *gate.Gate
	profile    string
	vars       map[string]any
	now        func() time.Time
	runs       *runStore
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithProfile injects the active configuration profile into every request.
func WithProfile(name string, vars map[string]any) Option {
	return func(s *Scheduler) {
		s.profile = name
		s.vars = vars
	}
}

// New creates a scheduler resolving inputs relative to root. A nil gate gets
// a fresh in-memory one.
func New(root string, transforms TransformLookup, g *gate.Gate, opts ...Option) *Scheduler {
	if g == nil {
		g = gate.New(nil)
	}
	s := &Scheduler{
		root:       root,
		transforms: transforms,
		gate:       g,
		now:        time.Now,
		runs:       newRunStore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Gate returns the incremental gate used by the scheduler.
func (s *Scheduler) Gate() *gate.Gate {
	return s.gate
}

// LastRun returns the most recent record for a task.
func (s *Scheduler) LastRun(name string) (TaskRun, bool) {
	return s.runs.get(name)
}

// Run executes the tree rooted at n and returns its outcome.
func (s *Scheduler) Run(ctx context.Context, n *task.Node) Outcome {
	runID := uuid.NewString()
	ctx, logger := ctxlog.With(ctx, "run_id", runID)

	logger.Info("🚀 Starting run.", "task", n.Name(), "kind", n.Kind().String())
	out := s.exec(ctx, runID, n)
	if out.Succeeded() {
		logger.Info("🏁 Run finished.", "task", n.Name(), "duration", out.Duration(), "outputs", len(out.Outputs))
	} else {
		logger.Error("Run failed.", "task", n.Name(), "duration", out.Duration(), "error", out.Err)
	}
	return out
}

func (s *Scheduler) exec(ctx context.Context, runID string, n *task.Node) Outcome {
	start := s.now()
	s.runs.put(TaskRun{RunID: runID, Task: n.Name(), Status: Running, Start: start})

	var out Outcome
	switch n.Kind() {
	case task.Leaf:
		out = s.runLeaf(ctx, n)
	case task.Series:
		out = s.runSeries(ctx, runID, n)
	case task.Parallel:
		out = s.runParallel(ctx, runID, n)
	default:
		out = Outcome{Status: Failed, Err: fmt.Errorf("task '%s' has unknown kind %v", n.Name(), n.Kind())}
	}
	out.RunID = runID
	out.Task = n.Name()
	out.Start = start
	out.End = s.now()

	s.runs.put(TaskRun{
		RunID:   runID,
		Task:    n.Name(),
		Status:  out.Status,
		Err:     out.Err,
		Skipped: out.Skipped,
		Start:   out.Start,
		End:     out.End,
	})
	return out
}

func (s *Scheduler) runSeries(ctx context.Context, runID string, n *task.Node) Outcome {
	logger := ctxlog.FromContext(ctx)
	var outputs []string
	for i, child := range n.Children {
		res := s.exec(ctx, runID, child)
		outputs = append(outputs, res.Outputs...)
		if !res.Succeeded() {
			if remaining := len(n.Children) - i - 1; remaining > 0 {
				logger.Warn("Series stopped after failure.", "series", n.Name(), "failed", child.Name(), "not_run", remaining)
			}
			return Outcome{Status: Failed, Err: res.Err, Outputs: outputs}
		}
	}
	return Outcome{Status: Succeeded, Outputs: outputs}
}

func (s *Scheduler) runParallel(ctx context.Context, runID string, n *task.Node) Outcome {
	results := make([]Outcome, len(n.Children))

	// Members report failure through their Outcome, never through the group,
	// so one failure does not cancel the others.
	var g errgroup.Group
	for i, child := range n.Children {
		g.Go(func() error {
			results[i] = s.exec(ctx, runID, child)
			return nil
		})
	}
	_ = g.Wait()

	var outputs []string
	var causes []error
	for _, r := range results {
		outputs = append(outputs, r.Outputs...)
		if !r.Succeeded() {
			causes = append(causes, r.Err)
		}
	}
	if len(causes) > 0 {
		return Outcome{
			Status:  Failed,
			Err:     &AggregateFailure{Task: n.Name(), Members: len(n.Children), Causes: causes},
			Outputs: outputs,
		}
	}
	return Outcome{Status: Succeeded, Outputs: outputs}
}

func (s *Scheduler) runLeaf(ctx context.Context, n *task.Node) Outcome {
	name := n.Name()
	spec := n.Task.Leaf
	logger := ctxlog.FromContext(ctx).With("task", name, "transform", spec.Transform)

	fail := func(err error) Outcome {
		return Outcome{Status: Failed, Err: &TransformStepError{Task: name, Transform: spec.Transform, Err: err}}
	}

	step, ok := s.transforms.Lookup(spec.Transform)
	if !ok {
		return fail(fmt.Errorf("transform is not registered"))
	}

	// The record must not be later than the filter's stat calls, or edits
	// landing between the two are never seen again.
	started := s.now()
	var inputs []string
	if len(spec.Inputs) > 0 {
		candidates, err := fsutil.Expand(s.root, spec.Inputs)
		if err != nil {
			return fail(err)
		}
		inputs = candidates
		if spec.Incremental {
			inputs, err = s.gate.Filter(ctx, name, candidates)
			if err != nil {
				return fail(err)
			}
			if len(inputs) == 0 {
				logger.Info("⏭️ Skipping task, inputs unchanged.", "candidates", len(candidates))
				return Outcome{Status: Succeeded, Skipped: true}
			}
		}
	}

	req := &transform.Request{
		Task:    name,
		Root:    s.root,
		Inputs:  inputs,
		Base:    s.base(spec),
		Output:  s.abs(spec.Output),
		Options: spec.Options,
		Profile: s.profile,
		Vars:    s.vars,
	}

	logger.Debug("Invoking transform.", "inputs", len(inputs), "output", req.Output)
	res, err := invoke(ctx, step, req)
	if err != nil {
		logger.Error("Transform failed.", "error", err)
		return fail(err)
	}

	s.gate.Commit(name, started)

	var outputs []string
	if res != nil {
		outputs = res.Outputs
	}
	logger.Info("✅ Task done.", "inputs", len(inputs), "outputs", len(outputs), "duration", s.now().Sub(started))
	return Outcome{Status: Succeeded, Outputs: outputs}
}

// invoke runs the step, converting a panic into an error.
func invoke(ctx context.Context, step transform.Step, req *transform.Request) (res *transform.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()
	return step.Run(ctx, req)
}

func (s *Scheduler) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.root, filepath.FromSlash(p))
}

// base picks the directory outputs are made relative to: the explicit base,
// else the static prefix of the first include pattern.
func (s *Scheduler) base(spec *task.LeafSpec) string {
	if spec.Base != "" {
		return s.abs(spec.Base)
	}
	for _, p := range spec.Inputs {
		if strings.HasPrefix(p, "!") {
			continue
		}
		return s.abs(fsutil.StaticBase(p))
	}
	return s.root
}
