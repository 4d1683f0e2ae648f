package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState string

const (
	stStart   testState = "start"
	stA1      testState = "a1"
	stA2      testState = "a2"
	stEnd     testState = "end"
	stB1      testState = "b1"
	stB2      testState = "b2"
	stB3      testState = "b3"
	stCleanup testState = "cleanup"
)

// switchMachine routes with a hand-written chooser instead of a Table.
type switchMachine struct {
	pathA        bool
	triggerError bool
	runs         []testState
}

func (m *switchMachine) RunState(state testState) Signal {
	m.runs = append(m.runs, state)

	if m.triggerError {
		return Error
	}

	switch state {
	case stStart:
		if m.pathA {
			return Next
		}

		return Next2
	case stEnd:
		return Repeat
	default:
		return Next
	}
}

func (m *switchMachine) ChooseNext(state testState, signal Signal) testState {
	switch state {
	case stStart:
		switch signal { //nolint:exhaustive
		case Next:
			return stA1
		case Next2:
			return stB1
		}
	case stA1:
		switch signal { //nolint:exhaustive
		case Next:
			return stA2
		case Error:
			return stB3
		}
	case stA2, stB3:
		if signal == Next {
			return stEnd
		}
	case stB1:
		if signal == Next {
			return stB2
		}
	case stB2:
		if signal == Next {
			return stB3
		}
	case stEnd:
		if signal == Repeat {
			return stEnd
		}
	case stCleanup:
		if signal == Next {
			return stEnd
		}
	}

	return stCleanup
}

func newSwitchMachine() (*Machine[testState], *switchMachine) {
	consumer := &switchMachine{pathA: true}

	return New[testState](stStart, consumer), consumer
}

func TestNew(t *testing.T) {
	t.Parallel()

	m, _ := newSwitchMachine()

	assert.Equal(t, stStart, m.State())
	assert.Equal(t, stStart, m.Initial())
}

func TestNewNilRunnerPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		New[testState](stStart, nil)
	})
}

func TestStepPathA(t *testing.T) {
	t.Parallel()

	m, _ := newSwitchMachine()

	assert.Equal(t, Next, m.Step())
	assert.Equal(t, stA1, m.State())

	m.Step()
	assert.Equal(t, stA2, m.State())

	m.Step()
	assert.Equal(t, stEnd, m.State())
}

func TestStepPathB(t *testing.T) {
	t.Parallel()

	m, consumer := newSwitchMachine()
	consumer.pathA = false

	assert.Equal(t, Next2, m.Step())
	assert.Equal(t, stB1, m.State())

	m.Step()
	assert.Equal(t, stB2, m.State())

	m.Step()
	assert.Equal(t, stB3, m.State())

	m.Step()
	assert.Equal(t, stEnd, m.State())
}

func TestStepDefaultErrorRoute(t *testing.T) {
	t.Parallel()

	m, consumer := newSwitchMachine()

	m.Run(2)
	require.Equal(t, stA2, m.State())

	consumer.triggerError = true

	assert.Equal(t, Error, m.Step())
	assert.Equal(t, stCleanup, m.State())

	m.Step()
	assert.Equal(t, stCleanup, m.State())
}

func TestStepCustomErrorRoute(t *testing.T) {
	t.Parallel()

	m, consumer := newSwitchMachine()

	m.Step()
	require.Equal(t, stA1, m.State())

	consumer.triggerError = true

	m.Step()
	assert.Equal(t, stB3, m.State())

	consumer.triggerError = false

	m.Step()
	assert.Equal(t, stEnd, m.State())
}

func TestStepRunsWorkOncePerStep(t *testing.T) {
	t.Parallel()

	m, consumer := newSwitchMachine()
	m.Run(5)

	assert.Equal(t, []testState{stStart, stA1, stA2, stEnd, stEnd}, consumer.runs)
}

func TestHoldingStateIsIdempotent(t *testing.T) {
	t.Parallel()

	m, consumer := newSwitchMachine()
	require.Equal(t, stEnd, m.Run(3))

	for range 10 {
		assert.Equal(t, Repeat, m.Step())
		assert.Equal(t, stEnd, m.State())
	}

	// External condition changes: the hold is broken on the next step.
	consumer.triggerError = true

	m.Step()
	assert.Equal(t, stCleanup, m.State())
}

func TestStepIsDeterministic(t *testing.T) {
	t.Parallel()

	trace := func() []testState {
		m, consumer := newSwitchMachine()
		consumer.pathA = false

		var out []testState

		for i := range 6 {
			consumer.triggerError = i == 4
			m.Step()
			out = append(out, m.State())
		}

		return out
	}

	first := trace()
	for range 5 {
		assert.Equal(t, first, trace())
	}
}

func TestFuncs(t *testing.T) {
	t.Parallel()

	m := New(0, Funcs(
		func(state int) Signal {
			if state < 3 {
				return Next
			}

			return Repeat
		},
		func(state int, signal Signal) int {
			if signal == Next {
				return state + 1
			}

			return state
		},
	))

	assert.Equal(t, 3, m.Run(10))
}

func TestRunUntil(t *testing.T) {
	t.Parallel()

	t.Run("reaches target", func(t *testing.T) {
		t.Parallel()

		m, _ := newSwitchMachine()

		state, err := m.RunUntil(func(s testState) bool { return s == stEnd }, 10)
		require.NoError(t, err)
		assert.Equal(t, stEnd, state)
	})

	t.Run("already satisfied does not step", func(t *testing.T) {
		t.Parallel()

		m, consumer := newSwitchMachine()

		state, err := m.RunUntil(func(s testState) bool { return s == stStart }, 1)
		require.NoError(t, err)
		assert.Equal(t, stStart, state)
		assert.Empty(t, consumer.runs)
	})

	t.Run("step limit", func(t *testing.T) {
		t.Parallel()

		m, _ := newSwitchMachine()

		state, err := m.RunUntil(func(s testState) bool { return s == stCleanup }, 5)
		require.ErrorIs(t, err, ErrStepLimit)
		assert.Equal(t, stEnd, state)

		var stateErr *StateError[testState]
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, stEnd, stateErr.State)
	})

	t.Run("unlimited", func(t *testing.T) {
		t.Parallel()

		m, consumer := newSwitchMachine()
		consumer.pathA = false

		state, err := m.RunUntil(func(s testState) bool { return s == stEnd }, 0)
		require.NoError(t, err)
		assert.Equal(t, stEnd, state)
	})
}

func TestReset(t *testing.T) {
	t.Parallel()

	m, _ := newSwitchMachine()
	m.Run(3)
	m.Reset()

	assert.Equal(t, stStart, m.State())
	assert.Equal(t, stA1, m.Run(1))
}

func TestNewWithTable(t *testing.T) {
	t.Parallel()

	run := func(testState) Signal { return Next }

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		table := NewTable[testState]()
		table.State(stStart).On(Next, stEnd).Otherwise(stCleanup)
		table.State(stEnd).Hold().Otherwise(stEnd)
		table.State(stCleanup).Otherwise(stEnd)

		m, err := NewWithTable(stStart, run, table)
		require.NoError(t, err)
		assert.Equal(t, stEnd, m.Run(1))
	})

	t.Run("not total", func(t *testing.T) {
		t.Parallel()

		table := NewTable[testState]()
		table.State(stStart).On(Next, stStart)

		_, err := NewWithTable(stStart, run, table)
		require.ErrorIs(t, err, ErrNotTotal)
	})

	t.Run("undeclared initial", func(t *testing.T) {
		t.Parallel()

		table := NewTable[testState]()
		table.State(stEnd).Otherwise(stEnd)

		_, err := NewWithTable(stStart, run, table)
		require.ErrorIs(t, err, ErrUndeclaredInitial)
	})

	t.Run("nil arguments", func(t *testing.T) {
		t.Parallel()

		table := NewTable[testState]()
		table.State(stStart).Otherwise(stStart)

		assert.PanicsWithValue(t, "statemachine: nil work function", func() {
			_, _ = NewWithTable[testState](stStart, nil, table)
		})
		assert.PanicsWithValue(t, "statemachine: nil table", func() {
			_, _ = NewWithTable(stStart, run, nil)
		})
	})
}
