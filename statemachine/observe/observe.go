// Package observe wraps a statemachine.Machine so that every step is logged,
// traced and counted. The engine itself stays silent; everything here sits
// outside it and only looks at the state before the step, the signal the
// work reported and the state after it.
package observe

import (
	"context"
	"sync"
	"time"

	"github.com/amp-labs/usm/statemachine"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

// Step describes one completed step of an observed machine.
type Step[S comparable] struct {
	MachineID string
	Machine   string
	Sequence  uint64
	From      S
	Signal    statemachine.Signal
	To        S
	Duration  time.Duration
}

// Held reports whether the step left the machine where it was.
func (s Step[S]) Held() bool {
	return s.From == s.To
}

// Observer is notified around every step of an observed machine.
type Observer[S comparable] interface {
	StepStarted(ctx context.Context, machineID string, state S)
	StepCompleted(ctx context.Context, step Step[S])
}

// Machine is a statemachine.Machine with observers attached.
type Machine[S comparable] struct {
	inner     *statemachine.Machine[S]
	id        string
	name      string
	observers []Observer[S]
	tracing   bool
	locking   bool
	mut       sync.Mutex
	steps     atomic.Uint64
}

// Option configures a wrapped machine.
type Option[S comparable] func(*Machine[S])

// WithName sets the name used as the "machine" label in logs, spans and metrics.
func WithName[S comparable](name string) Option[S] {
	return func(m *Machine[S]) {
		m.name = name
	}
}

// WithID overrides the generated machine ID.
func WithID[S comparable](id string) Option[S] {
	return func(m *Machine[S]) {
		m.id = id
	}
}

// WithObserver adds an observer. Observers are called in the order added.
func WithObserver[S comparable](observer Observer[S]) Option[S] {
	return func(m *Machine[S]) {
		m.observers = append(m.observers, observer)
	}
}

// WithLogging adds a LogObserver.
func WithLogging[S comparable]() Option[S] {
	return WithObserver[S](NewLogObserver[S]())
}

// WithMetrics adds a MetricsObserver.
func WithMetrics[S comparable]() Option[S] {
	return WithObserver[S](NewMetricsObserver[S]())
}

// WithTracing enables or disables a span per step. Enabled by default.
func WithTracing[S comparable](enabled bool) Option[S] {
	return func(m *Machine[S]) {
		m.tracing = enabled
	}
}

// WithLocking serializes Step calls so that the wrapped machine can be
// shared between goroutines.
func WithLocking[S comparable]() Option[S] {
	return func(m *Machine[S]) {
		m.locking = true
	}
}

// Wrap attaches observers to a machine. The machine should not be stepped
// directly afterwards, or those steps go unobserved.
func Wrap[S comparable](inner *statemachine.Machine[S], opts ...Option[S]) *Machine[S] {
	m := &Machine[S]{
		inner:   inner,
		id:      uuid.NewString(),
		name:    "statemachine",
		tracing: true,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// ID returns the machine's unique ID.
func (m *Machine[S]) ID() string {
	return m.id
}

// Name returns the machine's name.
func (m *Machine[S]) Name() string {
	return m.name
}

// Steps returns the number of observed steps so far.
func (m *Machine[S]) Steps() uint64 {
	return m.steps.Load()
}

// Unwrap returns the wrapped machine.
func (m *Machine[S]) Unwrap() *statemachine.Machine[S] {
	return m.inner
}

// State returns the current state.
func (m *Machine[S]) State() S {
	if m.locking {
		m.mut.Lock()
		defer m.mut.Unlock()
	}

	return m.inner.State()
}

// Step steps the wrapped machine once and reports the step to every observer.
func (m *Machine[S]) Step(ctx context.Context) statemachine.Signal {
	if m.locking {
		m.mut.Lock()
		defer m.mut.Unlock()
	}

	from := m.inner.State()
	seq := m.steps.Inc()

	if m.tracing {
		var span trace.Span

		ctx, span = startStepSpan(ctx, m.name, m.id, seq, from)
		defer span.End()
	}

	for _, o := range m.observers {
		o.StepStarted(ctx, m.id, from)
	}

	start := time.Now()
	signal := m.inner.Step()

	step := Step[S]{
		MachineID: m.id,
		Machine:   m.name,
		Sequence:  seq,
		From:      from,
		Signal:    signal,
		To:        m.inner.State(),
		Duration:  time.Since(start),
	}

	if m.tracing {
		finishStepSpan(ctx, step)
	}

	for _, o := range m.observers {
		o.StepCompleted(ctx, step)
	}

	return signal
}

// Run steps the machine n times and returns the resulting state.
func (m *Machine[S]) Run(ctx context.Context, n int) S {
	for range n {
		m.Step(ctx)
	}

	return m.State()
}
