package statemachine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableExplicitMappingBeatsFallback(t *testing.T) {
	t.Parallel()

	table := NewTable[testState]()
	table.State(stA1).
		On(Next, stA2).
		On(Error, stB3).
		Otherwise(stCleanup)

	assert.Equal(t, stA2, table.ChooseNext(stA1, Next))
	assert.Equal(t, stB3, table.ChooseNext(stA1, Error))
	assert.Equal(t, stCleanup, table.ChooseNext(stA1, Next2))
	assert.Equal(t, stCleanup, table.ChooseNext(stA1, Repeat))
}

func TestTableHold(t *testing.T) {
	t.Parallel()

	table := NewTable[testState]()
	table.State(stEnd).Hold().Otherwise(stCleanup)

	next, ok := table.Lookup(stEnd, Repeat)
	require.True(t, ok)
	assert.Equal(t, stEnd, next)
	assert.Equal(t, stCleanup, table.ChooseNext(stEnd, Error))
}

func TestTableLookupUndeclared(t *testing.T) {
	t.Parallel()

	table := NewTable[testState]()
	table.State(stStart).Otherwise(stStart)

	_, ok := table.Lookup(stA1, Next)
	assert.False(t, ok)
	assert.Equal(t, testState(""), table.ChooseNext(stA1, Next))

	table.Otherwise(stStart)

	next, ok := table.Lookup(stA1, Next)
	assert.True(t, ok)
	assert.Equal(t, stStart, next)
}

func TestTableLookupWithoutFallback(t *testing.T) {
	t.Parallel()

	table := NewTable[testState]()
	table.State(stStart).On(Next, stStart)

	_, ok := table.Lookup(stStart, Error)
	assert.False(t, ok)
}

func TestTableStatesKeepsDeclarationOrder(t *testing.T) {
	t.Parallel()

	table := NewTable[testState]()
	table.State(stCleanup).Done().
		State(stStart).Done().
		State(stEnd)

	assert.Equal(t, []testState{stCleanup, stStart, stEnd}, table.States())
	assert.True(t, table.Declared(stStart))
	assert.False(t, table.Declared(stA1))
}

func TestTableRoutes(t *testing.T) {
	t.Parallel()

	table := NewTable[testState]()
	table.State(stStart).On(Next, stA1).On(Next2, stB1)

	assert.Equal(t, map[Signal]testState{Next: stA1, Next2: stB1}, table.Routes(stStart))
	assert.Empty(t, table.Routes(stA1))

	table.State(stA1).On(Error, stB3).Otherwise(stCleanup)

	assert.Equal(t, map[Signal]testState{
		Next:   stCleanup,
		Next2:  stCleanup,
		Repeat: stCleanup,
		Error:  stB3,
	}, table.Routes(stA1))
}

func TestTableValidate(t *testing.T) {
	t.Parallel()

	t.Run("total table", func(t *testing.T) {
		t.Parallel()

		table := NewTable[testState]()
		table.State(stStart).On(Next, stEnd).Otherwise(stCleanup)
		table.State(stEnd).Hold().Otherwise(stCleanup)
		table.State(stCleanup).On(Next, stEnd).Otherwise(stCleanup)
		table.Otherwise(stCleanup)

		require.NoError(t, table.Validate())
	})

	t.Run("missing signals", func(t *testing.T) {
		t.Parallel()

		table := NewTable[testState]()
		table.State(stStart).On(Next, stStart).On(Next2, stStart)

		err := table.Validate()
		require.ErrorIs(t, err, ErrNotTotal)
		assert.Contains(t, err.Error(), "REPEAT")
		assert.Contains(t, err.Error(), "ERROR")
		assert.NotContains(t, err.Error(), "NEXT2")
	})

	t.Run("unknown target", func(t *testing.T) {
		t.Parallel()

		table := NewTable[testState]()
		table.State(stStart).On(Next, stA1).Otherwise(stStart)

		err := table.Validate()
		require.ErrorIs(t, err, ErrUnknownTarget)

		var transErr *TransitionError[testState]
		require.ErrorAs(t, err, &transErr)
		assert.Equal(t, stStart, transErr.From)
		assert.Equal(t, Next, transErr.Signal)
		assert.Equal(t, stA1, transErr.To)
	})

	t.Run("unknown table fallback", func(t *testing.T) {
		t.Parallel()

		table := NewTable[testState]()
		table.State(stStart).Otherwise(stStart)
		table.Otherwise(stCleanup)

		require.ErrorIs(t, table.Validate(), ErrUnknownTarget)
	})

	t.Run("duplicate state", func(t *testing.T) {
		t.Parallel()

		table := NewTable[testState]()
		table.State(stStart).Otherwise(stStart)
		table.State(stStart).On(Next, stStart)

		require.ErrorIs(t, table.Validate(), ErrDuplicateState)
		assert.Equal(t, []testState{stStart}, table.States())
	})

	t.Run("duplicate mapping keeps first", func(t *testing.T) {
		t.Parallel()

		table := NewTable[testState]()
		table.State(stStart).On(Next, stStart).On(Next, stEnd).Otherwise(stStart)

		require.ErrorIs(t, table.Validate(), ErrDuplicateMapping)
		assert.Equal(t, stStart, table.ChooseNext(stStart, Next))
	})

	t.Run("invalid signal", func(t *testing.T) {
		t.Parallel()

		table := NewTable[testState]()
		table.State(stStart).On(Signal(42), stStart).Otherwise(stStart)

		require.ErrorIs(t, table.Validate(), ErrInvalidSignal)
	})

	t.Run("problems are reported in natural order", func(t *testing.T) {
		t.Parallel()

		table := NewTable[int]()
		table.State(10)
		table.State(2)
		table.State(1)

		err := table.Validate()
		require.Error(t, err)

		msg := err.Error()
		first, second, third := strings.Index(msg, "state 1:"), strings.Index(msg, "state 2:"), strings.Index(msg, "state 10:")

		require.GreaterOrEqual(t, first, 0)
		assert.Less(t, first, second)
		assert.Less(t, second, third)
	})
}

func TestTableValidateFor(t *testing.T) {
	t.Parallel()

	table := NewTable[testState]()
	table.State(stStart).On(Next, stStart).On(Error, stStart)

	require.NoError(t, table.ValidateFor(stStart, Next, Error))
	require.ErrorIs(t, table.ValidateFor(stStart, Next, Next2), ErrNotTotal)
	require.ErrorIs(t, table.ValidateFor(stEnd, Next), ErrNotTotal)
}
