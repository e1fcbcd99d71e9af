package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/specialistvlad/assetgridgo/internal/fsutil"
)

// DefaultDebounce is the quiet period after the last matching change before a
// rule's tasks are queued.
const DefaultDebounce = 300 * time.Millisecond

// RunFunc executes the tasks of a trigger. It must report its own failures;
// the watcher keeps going regardless of the outcome.
type RunFunc func(ctx context.Context, t Trigger)

// Watcher coalesces change notifications into serialized runs.
type Watcher struct {
	root     string
	rules    []Rule
	run      RunFunc
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*pendingTrigger
	gen     uint64
	queued  *Trigger
	running bool
	closed  bool
	wake    chan struct{}
}

// pendingTrigger buffers the changed paths of one rule while its debounce
// window is open. Only the timer armed for gen may close the window.
type pendingTrigger struct {
	paths []string
	timer *time.Timer
	gen   uint64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce window. Non-positive values keep the
// default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for rules relative to root. Rules are validated
// upfront.
func New(root string, rules []Rule, run RunFunc, opts ...Option) (*Watcher, error) {
	seen := make(map[string]bool)
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("watch rule '%s' is declared twice", r.Name)
		}
		seen[r.Name] = true
	}

	w := &Watcher{
		root:     root,
		rules:    rules,
		run:      run,
		debounce: DefaultDebounce,
		pending:  make(map[string]*pendingTrigger),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Rules returns the configured rules.
func (w *Watcher) Rules() []Rule {
	return w.rules
}

// Notify feeds one changed path into the watcher. It returns the names of the
// rules the path matched.
func (w *Watcher) Notify(path string) []string {
	rel, ok := fsutil.Rel(w.root, path)
	if !ok {
		return nil
	}

	var matched []string
	for _, r := range w.rules {
		hit, err := fsutil.Match(w.root, r.Patterns, rel)
		if err != nil || !hit {
			continue
		}
		matched = append(matched, r.Name)
	}
	if len(matched) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	for _, name := range matched {
		p, ok := w.pending[name]
		if ok {
			p.paths = appendUnique(p.paths, rel)
			p.timer.Stop()
		} else {
			p = &pendingTrigger{paths: []string{rel}}
			w.pending[name] = p
		}
		w.gen++
		gen := w.gen
		p.gen = gen
		p.timer = time.AfterFunc(w.debounce, func() {
			w.fire(name, gen)
		})
	}
	return matched
}

// fire moves a rule's closed window into the run queue. A timer that was
// superseded by a later event is ignored, even if it already fired.
func (w *Watcher) fire(name string, gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pending[name]
	if !ok || w.closed || p.gen != gen {
		return
	}
	delete(w.pending, name)

	rule := w.rule(name)
	t := Trigger{Rules: []string{name}, Tasks: append([]string(nil), rule.Tasks...), Paths: p.paths}
	if w.queued == nil {
		w.queued = &t
	} else {
		w.queued.merge(t)
	}

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Watcher) rule(name string) Rule {
	for _, r := range w.rules {
		if r.Name == name {
			return r
		}
	}
	return Rule{}
}

// Busy reports whether a run is in flight or waiting in the queue.
func (w *Watcher) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running || w.queued != nil
}

// Dispatch executes queued triggers one at a time until ctx is cancelled.
// A run in flight at cancellation is allowed to finish; its context does not
// inherit the cancellation.
func (w *Watcher) Dispatch(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	runCtx := context.WithoutCancel(ctx)
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.wake:
		}

		for {
			t, ok := w.next()
			if !ok {
				break
			}
			logger.Info("🔁 Change detected, running tasks.", "rules", t.Rules, "tasks", t.Tasks, "paths", len(t.Paths))
			w.run(runCtx, t)
			w.done()

			if ctx.Err() != nil {
				return nil
			}
		}
	}
}

func (w *Watcher) next() (Trigger, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.queued == nil {
		return Trigger{}, false
	}
	t := *w.queued
	w.queued = nil
	w.running = true
	return t, true
}

func (w *Watcher) done() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// stop cancels open debounce windows and drops queued work.
func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for name, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, name)
	}
	w.queued = nil
}
