package scheduler

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/assetgridgo/internal/gate"
	"github.com/specialistvlad/assetgridgo/internal/registry"
	"github.com/specialistvlad/assetgridgo/internal/task"
	"github.com/specialistvlad/assetgridgo/internal/testutil"
	"github.com/specialistvlad/assetgridgo/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordLeaf(inputs ...string) task.Composition {
	return task.NewLeaf(task.LeafSpec{Transform: testutil.RecorderName, Inputs: inputs, Output: "dist", Incremental: true})
}

// setup builds a registry from defs, a transform registry with the recorder
// and a scheduler rooted in a temp dir.
func setup(t *testing.T, rec *testutil.Recorder, defs func(r *registry.Registry)) (*registry.Registry, *Scheduler, string) {
	t.Helper()
	root := t.TempDir()
	reg := registry.New()
	defs(reg)
	reg.Freeze()

	transforms := transform.NewRegistry()
	rec.Register(transforms)
	return reg, New(root, transforms, gate.New(nil)), root
}

func TestRun_SeriesStopsAtFirstFailure(t *testing.T) {
	ctx, _ := testutil.Context(t)
	boom := errors.New("b broke")
	rec := testutil.NewRecorder(0).FailOn("b", boom)
	reg, s, _ := setup(t, rec, func(r *registry.Registry) {
		require.NoError(t, r.Define("a", recordLeaf()))
		require.NoError(t, r.Define("b", recordLeaf()))
		require.NoError(t, r.Define("c", recordLeaf()))
		require.NoError(t, r.Define("build", task.NewSeries("a", "b", "c")))
	})

	node, err := reg.Resolve("build")
	require.NoError(t, err)
	out := s.Run(ctx, node)

	assert.Equal(t, Failed, out.Status)
	assert.ErrorIs(t, out.Err, boom)
	var step *TransformStepError
	require.ErrorAs(t, out.Err, &step)
	assert.Equal(t, "b", step.Task)
	assert.Equal(t, []string{"a", "b"}, rec.Tasks())

	a, ok := s.LastRun("a")
	require.True(t, ok)
	assert.Equal(t, Succeeded, a.Status)
	_, ok = s.LastRun("c")
	assert.False(t, ok, "c must never start")
	build, ok := s.LastRun("build")
	require.True(t, ok)
	assert.Equal(t, Failed, build.Status)
	assert.Equal(t, out.RunID, build.RunID)
}

func TestRun_ParallelAggregatesFailures(t *testing.T) {
	ctx, _ := testutil.Context(t)
	boom := errors.New("a broke")
	rec := testutil.NewRecorder(0).FailOn("a", boom)
	reg, s, _ := setup(t, rec, func(r *registry.Registry) {
		require.NoError(t, r.Define("a", recordLeaf()))
		require.NoError(t, r.Define("b", recordLeaf()))
		require.NoError(t, r.Define("both", task.NewParallel("a", "b")))
	})

	node, err := reg.Resolve("both")
	require.NoError(t, err)
	out := s.Run(ctx, node)

	assert.Equal(t, Failed, out.Status)
	var agg *AggregateFailure
	require.ErrorAs(t, out.Err, &agg)
	require.Len(t, agg.Causes, 1)
	assert.ErrorIs(t, agg.Causes[0], boom)
	assert.ElementsMatch(t, []string{"a", "b"}, rec.Tasks())

	b, ok := s.LastRun("b")
	require.True(t, ok)
	assert.Equal(t, Succeeded, b.Status)
}

func TestRun_ParallelMembersOverlap(t *testing.T) {
	ctx, _ := testutil.Context(t)
	rec := testutil.NewRecorder(100 * time.Millisecond)
	reg, s, _ := setup(t, rec, func(r *registry.Registry) {
		require.NoError(t, r.Define("a", recordLeaf()))
		require.NoError(t, r.Define("b", recordLeaf()))
		require.NoError(t, r.Define("c", recordLeaf()))
		require.NoError(t, r.Define("ab", task.NewParallel("a", "b")))
		require.NoError(t, r.Define("build", task.NewSeries("ab", "c")))
	})

	node, err := reg.Resolve("build")
	require.NoError(t, err)
	out := s.Run(ctx, node)
	require.True(t, out.Succeeded(), "run failed: %v", out.Err)

	a, _ := rec.Record("a")
	b, _ := rec.Record("b")
	c, _ := rec.Record("c")
	assert.True(t, a.Start.Before(b.End) && b.Start.Before(a.End), "a and b should overlap")
	assert.False(t, c.Start.Before(a.End), "c must start after a")
	assert.False(t, c.Start.Before(b.End), "c must start after b")
}

func TestRun_NestedAggregateFlattens(t *testing.T) {
	ctx, _ := testutil.Context(t)
	rec := testutil.NewRecorder(0).FailOn("a", nil).FailOn("c", nil)
	reg, s, _ := setup(t, rec, func(r *registry.Registry) {
		for _, n := range []string{"a", "b", "c"} {
			require.NoError(t, r.Define(n, recordLeaf()))
		}
		require.NoError(t, r.Define("inner", task.NewParallel("a", "b")))
		require.NoError(t, r.Define("outer", task.NewParallel("inner", "c")))
	})

	node, err := reg.Resolve("outer")
	require.NoError(t, err)
	out := s.Run(ctx, node)

	causes := Flatten(out.Err)
	require.Len(t, causes, 2)
	var tasks []string
	for _, c := range causes {
		var step *TransformStepError
		require.ErrorAs(t, c, &step)
		tasks = append(tasks, step.Task)
	}
	assert.ElementsMatch(t, []string{"a", "c"}, tasks)
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	ctx, _ := testutil.Context(t)
	rec := testutil.NewRecorder(0).PanicOn("a")
	reg, s, _ := setup(t, rec, func(r *registry.Registry) {
		require.NoError(t, r.Define("a", recordLeaf()))
	})

	node, err := reg.Resolve("a")
	require.NoError(t, err)
	out := s.Run(ctx, node)

	assert.Equal(t, Failed, out.Status)
	assert.ErrorContains(t, out.Err, "transform panicked")
}

func TestRun_UnregisteredTransform(t *testing.T) {
	ctx, _ := testutil.Context(t)
	reg, s, _ := setup(t, testutil.NewRecorder(0), func(r *registry.Registry) {
		require.NoError(t, r.Define("a", task.NewLeaf(task.LeafSpec{Transform: "nope"})))
	})

	node, err := reg.Resolve("a")
	require.NoError(t, err)
	out := s.Run(ctx, node)

	assert.Equal(t, Failed, out.Status)
	assert.ErrorContains(t, out.Err, "transform 'nope'")
}

func TestRun_IncrementalLeaf(t *testing.T) {
	ctx, _ := testutil.Context(t)
	rec := testutil.NewRecorder(0)
	reg, s, root := setup(t, rec, func(r *registry.Registry) {
		require.NoError(t, r.Define("styles", recordLeaf("src/css/**/*.css").WithStyleOnly()))
	})
	testutil.WriteFiles(t, root, map[string]string{
		"src/css/main.css":       "body{}",
		"src/css/theme/dark.css": "body{color:#fff}",
	})
	old := time.Now().Add(-time.Hour)
	testutil.Touch(t, root, "src/css/main.css", old)
	testutil.Touch(t, root, "src/css/theme/dark.css", old)

	node, err := reg.Resolve("styles")
	require.NoError(t, err)

	// First run has no record and sees everything.
	out := s.Run(ctx, node)
	require.True(t, out.Succeeded())
	assert.False(t, out.Skipped)
	first, ok := rec.Record("styles")
	require.True(t, ok)
	assert.Len(t, first.Inputs, 2)
	record, ok := s.Gate().Record("styles")
	require.True(t, ok)
	assert.False(t, record.Before(out.Start))

	// Nothing changed: the transform is not invoked.
	out = s.Run(ctx, node)
	require.True(t, out.Succeeded())
	assert.True(t, out.Skipped)
	assert.Len(t, rec.Calls(), 1)

	// One file changes after the record.
	testutil.Touch(t, root, "src/css/main.css", record.Add(time.Second))
	out = s.Run(ctx, node)
	require.True(t, out.Succeeded())
	calls := rec.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{filepath.Join(root, "src", "css", "main.css")}, calls[1].Inputs)
}

// stepClock returns base plus ten seconds per call. onCall runs before the
// value is returned and sees the 1-based call number.
type stepClock struct {
	mu     sync.Mutex
	base   time.Time
	calls  int
	onCall func(n int, now time.Time)
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	now := c.base.Add(time.Duration(c.calls) * 10 * time.Second)
	if c.onCall != nil {
		c.onCall(c.calls, now)
	}
	return now
}

func TestRun_IncrementalLeafKeepsEditsDuringRun(t *testing.T) {
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"src/css/a.css": "a{}",
		"src/css/b.css": "b{}",
	})
	base := time.Now().Truncate(time.Second)
	testutil.Touch(t, root, "src/css/a.css", base.Add(-time.Hour))
	testutil.Touch(t, root, "src/css/b.css", base.Add(-time.Hour))

	clock := &stepClock{base: base}
	reg := registry.New()
	require.NoError(t, reg.Define("styles", recordLeaf("src/css/*.css")))
	reg.Freeze()
	transforms := transform.NewRegistry()
	rec := testutil.NewRecorder(0)
	rec.Register(transforms)
	s := New(root, transforms, gate.New(nil), WithClock(clock.now))

	node, err := reg.Resolve("styles")
	require.NoError(t, err)
	require.True(t, s.Run(ctx, node).Succeeded())
	require.Len(t, rec.Calls(), 1)
	calls := clock.calls

	// a.css changes so the second run does real work. While that run reads
	// the clock for the second time, b.css is saved too.
	record, ok := s.Gate().Record("styles")
	require.True(t, ok)
	testutil.Touch(t, root, "src/css/a.css", record.Add(5*time.Second))
	clock.onCall = func(n int, now time.Time) {
		if n == calls+2 {
			testutil.Touch(t, root, "src/css/b.css", now.Add(-5*time.Second))
		}
	}
	require.True(t, s.Run(ctx, node).Succeeded())
	clock.onCall = nil
	require.True(t, s.Run(ctx, node).Succeeded())

	var seen []string
	for _, c := range rec.Calls()[1:] {
		seen = append(seen, c.Inputs...)
	}
	assert.Contains(t, seen, filepath.Join(root, "src", "css", "a.css"))
	assert.Contains(t, seen, filepath.Join(root, "src", "css", "b.css"), "an edit made during a run must reach a later run")
}

func TestRun_NonIncrementalLeafSeesAllInputs(t *testing.T) {
	ctx, _ := testutil.Context(t)
	rec := testutil.NewRecorder(0)
	reg, s, root := setup(t, rec, func(r *registry.Registry) {
		require.NoError(t, r.Define("pages", task.NewLeaf(task.LeafSpec{
			Transform: testutil.RecorderName,
			Inputs:    []string{"src/*.html"},
		})))
	})
	testutil.WriteFiles(t, root, map[string]string{"src/index.html": "<html></html>"})

	node, err := reg.Resolve("pages")
	require.NoError(t, err)
	require.True(t, s.Run(ctx, node).Succeeded())
	require.True(t, s.Run(ctx, node).Succeeded())

	calls := rec.Calls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[1].Inputs, 1)
}

func TestFlatten(t *testing.T) {
	a := errors.New("a")
	b := errors.New("b")
	assert.Nil(t, Flatten(nil))
	assert.Equal(t, []error{a}, Flatten(a))
	agg := &AggregateFailure{Task: "x", Members: 3, Causes: []error{a, &AggregateFailure{Task: "y", Members: 2, Causes: []error{b}}}}
	assert.Equal(t, []error{a, b}, Flatten(agg))
	assert.Equal(t, "2 of 3 parallel members of 'x' failed: a; 1 of 2 parallel members of 'y' failed: b", agg.Error())
}
