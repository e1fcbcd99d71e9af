package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// TransformStepError reports a failed leaf.
type TransformStepError struct {
	Task      string
	Transform string
	Err       error
}

func (e *TransformStepError) Error() string {
	return fmt.Sprintf("task '%s' (transform '%s') failed: %v", e.Task, e.Transform, e.Err)
}

func (e *TransformStepError) Unwrap() error {
	return e.Err
}

// AggregateFailure carries every failure of a parallel composite.
type AggregateFailure struct {
	Task    string
	Members int
	Causes  []error
}

func (e *AggregateFailure) Error() string {
	msgs := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		msgs[i] = c.Error()
	}
	return fmt.Sprintf("%d of %d parallel members of '%s' failed: %s", len(e.Causes), e.Members, e.Task, strings.Join(msgs, "; "))
}

func (e *AggregateFailure) Unwrap() []error {
	return e.Causes
}

// Flatten expands nested aggregate failures into their leaf causes, in
// order. A nil error yields nil.
func Flatten(err error) []error {
	if err == nil {
		return nil
	}
	var agg *AggregateFailure
	if errors.As(err, &agg) && agg == err {
		var out []error
		for _, c := range agg.Causes {
			out = append(out, Flatten(c)...)
		}
		return out
	}
	return []error{err}
}
