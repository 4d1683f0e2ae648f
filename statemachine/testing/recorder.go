package testing

import (
	"context"
	"sync"

	"github.com/amp-labs/usm/statemachine/observe"
)

// Recorder is an observer that keeps every step it sees.
type Recorder[S comparable] struct {
	mut   sync.Mutex
	steps []observe.Step[S]
}

// NewRecorder creates an empty recorder.
func NewRecorder[S comparable]() *Recorder[S] {
	return &Recorder[S]{}
}

func (r *Recorder[S]) StepStarted(context.Context, string, S) {}

func (r *Recorder[S]) StepCompleted(_ context.Context, step observe.Step[S]) {
	r.mut.Lock()
	defer r.mut.Unlock()

	r.steps = append(r.steps, step)
}

// Steps returns a copy of the recorded steps.
func (r *Recorder[S]) Steps() []observe.Step[S] {
	r.mut.Lock()
	defer r.mut.Unlock()

	out := make([]observe.Step[S], len(r.steps))
	copy(out, r.steps)

	return out
}

// Trace returns the visited states: the state before the first step and the
// state after every step.
func (r *Recorder[S]) Trace() []S {
	r.mut.Lock()
	defer r.mut.Unlock()

	if len(r.steps) == 0 {
		return nil
	}

	trace := make([]S, 0, len(r.steps)+1)
	trace = append(trace, r.steps[0].From)

	for _, step := range r.steps {
		trace = append(trace, step.To)
	}

	return trace
}

// Reset discards everything recorded so far.
func (r *Recorder[S]) Reset() {
	r.mut.Lock()
	defer r.mut.Unlock()

	r.steps = nil
}
