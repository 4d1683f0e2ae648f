package testing

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/usm/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunScenario plays a scenario on a fresh machine as a subtest.
func RunScenario[S comparable](t *testing.T, scenario Scenario, factory Factory[S]) {
	t.Helper()

	t.Run(scenario.Name, func(t *testing.T) {
		t.Parallel()

		trace, err := Play(factory(), scenario)
		require.NoError(t, err, "trace so far: %v", trace)
		assert.Len(t, trace, len(scenario.Steps)+1)
	})
}

// AssertTotal checks that every declared state of table maps each signal its
// work can produce. States missing from produces are checked against every
// signal.
func AssertTotal[S comparable](t *testing.T, table *statemachine.Table[S], produces map[S][]statemachine.Signal) {
	t.Helper()

	for _, state := range table.States() {
		signals, ok := produces[state]
		if !ok {
			signals = statemachine.Signals
		}

		assert.NoError(t, table.ValidateFor(state, signals...), "state %v", state)
	}
}

// CheckDeterminism plays script on runs independent replicas concurrently and
// fails if any replica's trace differs from the first one.
func CheckDeterminism[S comparable](ctx context.Context, factory Factory[S], script Scenario, runs int) error {
	if runs < 2 { //nolint:mnd
		runs = 2
	}

	pool := pond.NewResultPool[[]string](runs)
	defer pool.StopAndWait()

	group := pool.NewGroupContext(ctx)

	for range runs {
		group.SubmitErr(func() ([]string, error) {
			return Play(factory(), script)
		})
	}

	traces, err := group.Wait()
	if err != nil {
		return fmt.Errorf("playing %q: %w", script.Name, err)
	}

	for i, trace := range traces[1:] {
		if !slices.Equal(traces[0], trace) {
			return fmt.Errorf("%w: replica %d: %v, replica 0: %v", ErrNondeterministic, i+1, trace, traces[0])
		}
	}

	return nil
}
