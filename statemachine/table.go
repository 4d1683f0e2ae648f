package statemachine

import (
	"fmt"
	"slices"

	"facette.io/natsort"
	commonErrors "github.com/amp-labs/usm/errors"
)

// Table is a transition table built in code: for every declared state, a
// map from signal to next state plus an optional fallback for the signals
// the state does not map explicitly.
//
// Build it once, validate it, then use ChooseNext as a machine's chooser.
//
//	table := statemachine.NewTable[State]()
//	table.State(Start).On(statemachine.Next, PathA).Otherwise(Cleanup)
//	table.State(End).Hold().Otherwise(Cleanup)
type Table[S comparable] struct {
	order    []S
	rules    map[S]*StateRules[S]
	fallback S
	hasFall  bool
	problems commonErrors.Collection
}

// StateRules holds the routes of one declared state.
type StateRules[S comparable] struct {
	table    *Table[S]
	state    S
	routes   map[Signal]S
	fallback S
	hasFall  bool
}

// NewTable creates an empty transition table.
func NewTable[S comparable]() *Table[S] {
	return &Table[S]{
		rules: make(map[S]*StateRules[S]),
	}
}

// State declares a state and returns its rules. Declaring the same state
// twice is recorded as an error and reported by Validate; the existing rules
// are returned so chaining keeps working.
func (t *Table[S]) State(state S) *StateRules[S] {
	if rules, exists := t.rules[state]; exists {
		t.problems.Add(WrapStateError(state, ErrDuplicateState))

		return rules
	}

	rules := &StateRules[S]{
		table:  t,
		state:  state,
		routes: make(map[Signal]S),
	}

	t.rules[state] = rules
	t.order = append(t.order, state)

	return rules
}

// Otherwise sets the route used for states that were never declared. It is
// a safety net only; Validate still requires every state to be declared.
func (t *Table[S]) Otherwise(next S) *Table[S] {
	t.fallback = next
	t.hasFall = true

	return t
}

// Declared reports whether state was declared.
func (t *Table[S]) Declared(state S) bool {
	_, ok := t.rules[state]

	return ok
}

// States returns the declared states in declaration order.
func (t *Table[S]) States() []S {
	return slices.Clone(t.order)
}

// On maps a signal to the next state.
func (r *StateRules[S]) On(signal Signal, next S) *StateRules[S] {
	if !signal.IsValid() {
		r.table.problems.Add(WrapTransitionError(r.state, signal, next, ErrInvalidSignal))

		return r
	}

	if _, exists := r.routes[signal]; exists {
		r.table.problems.Add(WrapTransitionError(r.state, signal, next, ErrDuplicateMapping))

		return r
	}

	r.routes[signal] = next

	return r
}

// Hold maps Repeat back to the state itself, making it stable under
// repeated stepping.
func (r *StateRules[S]) Hold() *StateRules[S] {
	return r.On(Repeat, r.state)
}

// Otherwise sets the route for every signal without an explicit mapping.
func (r *StateRules[S]) Otherwise(next S) *StateRules[S] {
	r.fallback = next
	r.hasFall = true

	return r
}

// Done returns the table for further chaining.
func (r *StateRules[S]) Done() *Table[S] {
	return r.table
}

// Lookup returns the route for (state, signal). An explicit mapping takes
// precedence over the state's fallback. The boolean is false when neither
// exists.
func (t *Table[S]) Lookup(state S, signal Signal) (S, bool) {
	rules, ok := t.rules[state]
	if !ok {
		return t.fallback, t.hasFall
	}

	if next, ok := rules.routes[signal]; ok {
		return next, true
	}

	return rules.fallback, rules.hasFall
}

// ChooseNext is the table's chooser. Routes missing from a table that
// passed Validate cannot occur; for a table that did not, the zero state is
// returned.
func (t *Table[S]) ChooseNext(state S, signal Signal) S {
	next, _ := t.Lookup(state, signal)

	return next
}

// Routes resolves the next state for every signal of a declared state.
// Signals without any route are left out.
func (t *Table[S]) Routes(state S) map[Signal]S {
	out := make(map[Signal]S, len(Signals))

	if !t.Declared(state) {
		return out
	}

	for _, sig := range Signals {
		if next, ok := t.Lookup(state, sig); ok {
			out[sig] = next
		}
	}

	return out
}

// Validate checks that the table is total: every declared state routes all
// four signals (explicitly or through its fallback) and every route leads to
// a declared state. Builder mistakes recorded while declaring are reported
// as well. All problems are returned together.
func (t *Table[S]) Validate() error {
	var problems commonErrors.Collection

	problems.AddAll(t.problems.Errors()...)

	for _, state := range t.sortedStates() {
		problems.Add(t.check(state, Signals))
	}

	if t.hasFall && !t.Declared(t.fallback) {
		problems.Add(fmt.Errorf("table fallback %v: %w", t.fallback, ErrUnknownTarget))
	}

	return problems.GetError()
}

// ValidateFor checks a single state over the signals its work can actually
// produce. This is the weaker totality a hand-written chooser needs.
func (t *Table[S]) ValidateFor(state S, produces ...Signal) error {
	if !t.Declared(state) {
		return WrapStateError(state, ErrNotTotal)
	}

	return t.check(state, produces)
}

func (t *Table[S]) check(state S, signals []Signal) error {
	var problems commonErrors.Collection

	for _, sig := range signals {
		next, ok := t.Lookup(state, sig)
		if !ok {
			problems.Add(WrapStateError(state, fmt.Errorf("%w %s", ErrNotTotal, sig)))

			continue
		}

		if !t.Declared(next) {
			problems.Add(WrapTransitionError(state, sig, next, ErrUnknownTarget))
		}
	}

	return problems.GetError()
}

// sortedStates orders the declared states by their printed name so that
// validation reports are stable regardless of declaration order.
func (t *Table[S]) sortedStates() []S {
	states := slices.Clone(t.order)

	slices.SortStableFunc(states, func(a, b S) int {
		left, right := fmt.Sprint(a), fmt.Sprint(b)

		switch {
		case left == right:
			return 0
		case natsort.Compare(left, right):
			return -1
		default:
			return 1
		}
	})

	return states
}
