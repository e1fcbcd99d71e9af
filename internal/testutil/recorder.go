package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/assetgridgo/internal/transform"
)

// RecorderName is the transform name the Recorder registers under.
const RecorderName = "record"

// ExecutionRecord is one invocation seen by a Recorder.
type ExecutionRecord struct {
	Task   string
	Inputs []string
	Start  time.Time
	End    time.Time
}

// Recorder is a transform that records every invocation. Each call sleeps
// for the configured duration, so overlap between tasks can be observed.
type Recorder struct {
	mu      sync.Mutex
	calls   []ExecutionRecord
	sleep   time.Duration
	fail    map[string]error
	panics  map[string]bool
	started chan<- string
	release <-chan struct{}
}

// NewRecorder creates a recorder that sleeps for the given duration per call.
func NewRecorder(sleep time.Duration) *Recorder {
	return &Recorder{
		sleep:  sleep,
		fail:   make(map[string]error),
		panics: make(map[string]bool),
	}
}

// Register implements transform.Module.
func (r *Recorder) Register(reg *transform.Registry) {
	reg.Register(RecorderName, transform.Func(r.run))
}

// FailOn makes calls for the named task return err. A nil err uses a
// generic error.
func (r *Recorder) FailOn(task string, err error) *Recorder {
	if err == nil {
		err = errors.New("induced failure")
	}
	r.mu.Lock()
	r.fail[task] = err
	r.mu.Unlock()
	return r
}

// PanicOn makes calls for the named task panic.
func (r *Recorder) PanicOn(task string) *Recorder {
	r.mu.Lock()
	r.panics[task] = true
	r.mu.Unlock()
	return r
}

// Gate makes every call report its task on started and then block until
// release is closed or receives a value.
func (r *Recorder) Gate(started chan<- string, release <-chan struct{}) *Recorder {
	r.started = started
	r.release = release
	return r
}

// Calls returns the recorded invocations in completion order.
func (r *Recorder) Calls() []ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ExecutionRecord, len(r.calls))
	copy(out, r.calls)
	return out
}

// Tasks returns the task names of the recorded invocations in completion
// order.
func (r *Recorder) Tasks() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Task
	}
	return out
}

// Record returns the first invocation for a task.
func (r *Recorder) Record(task string) (ExecutionRecord, bool) {
	for _, c := range r.Calls() {
		if c.Task == task {
			return c, true
		}
	}
	return ExecutionRecord{}, false
}

func (r *Recorder) run(ctx context.Context, req *transform.Request) (*transform.Result, error) {
	start := time.Now()
	if r.started != nil {
		r.started <- req.Task
	}
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.sleep > 0 {
		time.Sleep(r.sleep)
	}

	r.mu.Lock()
	failErr := r.fail[req.Task]
	doPanic := r.panics[req.Task]
	r.calls = append(r.calls, ExecutionRecord{
		Task:   req.Task,
		Inputs: append([]string(nil), req.Inputs...),
		Start:  start,
		End:    time.Now(),
	})
	r.mu.Unlock()

	if doPanic {
		panic(fmt.Sprintf("induced panic in %s", req.Task))
	}
	if failErr != nil {
		return nil, failErr
	}
	res := &transform.Result{}
	if req.Output != "" {
		res.Outputs = []string{req.Output}
	}
	return res, nil
}
