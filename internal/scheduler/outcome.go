package scheduler

import (
	"sync"
	"time"
)

// Status is the lifecycle state of a task run.
type Status int

const (
	Pending Status = iota
	Running
	Succeeded
	Failed
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of running a composition tree.
type Outcome struct {
	RunID  string
	Task   string
	Status Status
	// Err is the cause of a Failed outcome.
	Err error
	// Outputs lists every file produced by the leaves that ran.
	Outputs []string
	// Skipped is true for a leaf whose filtered input set was empty.
	Skipped bool
	Start   time.Time
	End     time.Time
}

// Succeeded reports whether the outcome is a success.
func (o Outcome) Succeeded() bool {
	return o.Status == Succeeded
}

// Duration returns how long the run took.
func (o Outcome) Duration() time.Duration {
	return o.End.Sub(o.Start)
}

// TaskRun is the record of one execution of one task.
type TaskRun struct {
	RunID   string
	Task    string
	Status  Status
	Err     error
	Skipped bool
	Start   time.Time
	End     time.Time
}

// runStore keeps the latest TaskRun per task name. A new run replaces the
// previous terminal record as soon as it starts.
type runStore struct {
	mu   sync.RWMutex
	runs map[string]TaskRun
}

func newRunStore() *runStore {
	return &runStore{runs: make(map[string]TaskRun)}
}

func (s *runStore) put(r TaskRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.Task] = r
}

func (s *runStore) get(name string) (TaskRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[name]
	return r, ok
}
