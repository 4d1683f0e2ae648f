package statemachine

import "fmt"

// Machine holds the current state of a consumer-defined state machine and
// drives it one step at a time.
//
// A Machine is not safe for concurrent use. Callers that step the same
// machine from several goroutines must serialize the calls themselves.
type Machine[S comparable] struct {
	runner  Runner[S]
	initial S
	current S
}

// New creates a machine that starts in the initial state and delegates work
// and transition choice to runner.
func New[S comparable](initial S, runner Runner[S]) *Machine[S] {
	if runner == nil {
		panic("statemachine: nil runner")
	}

	return &Machine[S]{
		runner:  runner,
		initial: initial,
		current: initial,
	}
}

// NewWithTable creates a machine whose chooser is a validated transition table.
// Like New, it panics when run or table is nil.
func NewWithTable[S comparable](initial S, run RunFunc[S], table *Table[S]) (*Machine[S], error) {
	if run == nil {
		panic("statemachine: nil work function")
	}

	if table == nil {
		panic("statemachine: nil table")
	}

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transition table: %w", err)
	}

	if !table.Declared(initial) {
		return nil, WrapStateError(initial, ErrUndeclaredInitial)
	}

	return New(initial, Funcs(run, table.ChooseNext)), nil
}

// State returns the current state.
func (m *Machine[S]) State() S {
	return m.current
}

// Initial returns the state the machine was created with.
func (m *Machine[S]) Initial() S {
	return m.initial
}

// Step runs the current state's work, asks the chooser for the next state
// and moves there. The signal reported by the work is returned.
//
// Error is not interpreted here: it reaches the chooser unchanged, so
// recovery routing is decided per state by the consumer.
func (m *Machine[S]) Step() Signal {
	signal := m.runner.RunState(m.current)
	m.current = m.runner.ChooseNext(m.current, signal)

	return signal
}

// Run steps the machine n times and returns the resulting state.
func (m *Machine[S]) Run(n int) S {
	for range n {
		m.Step()
	}

	return m.current
}

// RunUntil steps the machine until done reports true for the current state.
// The condition is checked before every step, so a machine that already
// satisfies it is not stepped at all. A maxSteps of zero or less means no
// limit; otherwise ErrStepLimit is returned once maxSteps steps have run
// without satisfying done.
func (m *Machine[S]) RunUntil(done func(S) bool, maxSteps int) (S, error) {
	for steps := 0; !done(m.current); steps++ {
		if maxSteps > 0 && steps >= maxSteps {
			return m.current, WrapStateError(m.current, fmt.Errorf("%w after %d steps", ErrStepLimit, steps))
		}

		m.Step()
	}

	return m.current, nil
}

// Reset puts the machine back into its initial state.
func (m *Machine[S]) Reset() {
	m.current = m.initial
}
