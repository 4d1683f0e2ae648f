package observe

import (
	"context"
	"sync"
	"testing"

	"github.com/amp-labs/usm/logger"
	"github.com/amp-labs/usm/statemachine"
	"github.com/neilotoole/slogt"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newCounter builds a machine over 0..3 that reports NEXT from 0 and 1,
// ERROR from 2 and REPEAT from 3. ERROR routes to 3.
func newCounter(t *testing.T) *statemachine.Machine[int] {
	t.Helper()

	run := func(s int) statemachine.Signal {
		switch s {
		case 2:
			return statemachine.Error
		case 3:
			return statemachine.Repeat
		default:
			return statemachine.Next
		}
	}

	table := statemachine.NewTable[int]()
	table.State(0).On(statemachine.Next, 1).Otherwise(3)
	table.State(1).On(statemachine.Next, 2).Otherwise(3)
	table.State(2).On(statemachine.Error, 3).Otherwise(3)
	table.State(3).Hold().Otherwise(3)

	m, err := statemachine.NewWithTable(0, run, table)
	require.NoError(t, err)

	return m
}

type collector struct {
	mut     sync.Mutex
	started []int
	steps   []Step[int]
}

func (c *collector) StepStarted(_ context.Context, _ string, state int) {
	c.mut.Lock()
	defer c.mut.Unlock()

	c.started = append(c.started, state)
}

func (c *collector) StepCompleted(_ context.Context, step Step[int]) {
	c.mut.Lock()
	defer c.mut.Unlock()

	c.steps = append(c.steps, step)
}

func TestWrapDefaults(t *testing.T) {
	t.Parallel()

	m := Wrap(newCounter(t))

	assert.NotEmpty(t, m.ID())
	assert.Equal(t, "statemachine", m.Name())
	assert.Equal(t, 0, m.State())
	assert.Zero(t, m.Steps())
	assert.NotNil(t, m.Unwrap())

	other := Wrap(newCounter(t))
	assert.NotEqual(t, m.ID(), other.ID())
}

func TestObserversSeeEveryStep(t *testing.T) {
	t.Parallel()

	obs := &collector{}
	m := Wrap(newCounter(t),
		WithName[int]("counter"),
		WithID[int]("fixed-id"),
		WithTracing[int](false),
		WithObserver[int](obs),
	)

	assert.Equal(t, 3, m.Run(t.Context(), 4))
	assert.Equal(t, uint64(4), m.Steps())

	assert.Equal(t, []int{0, 1, 2, 3}, obs.started)
	require.Len(t, obs.steps, 4)

	assert.Equal(t, Step[int]{
		MachineID: "fixed-id",
		Machine:   "counter",
		Sequence:  3,
		From:      2,
		Signal:    statemachine.Error,
		To:        3,
		Duration:  obs.steps[2].Duration,
	}, obs.steps[2])

	assert.False(t, obs.steps[0].Held())
	assert.True(t, obs.steps[3].Held())
	assert.Equal(t, statemachine.Repeat, obs.steps[3].Signal)
}

func TestStepMatchesUnwrappedMachine(t *testing.T) {
	t.Parallel()

	plain := newCounter(t)
	wrapped := Wrap(newCounter(t), WithTracing[int](false))

	for range 6 {
		assert.Equal(t, plain.Step(), wrapped.Step(t.Context()))
		assert.Equal(t, plain.State(), wrapped.State())
	}
}

func TestLocking(t *testing.T) {
	t.Parallel()

	obs := &collector{}
	m := Wrap(newCounter(t), WithLocking[int](), WithTracing[int](false), WithObserver[int](obs))

	var wg sync.WaitGroup

	for range 8 {
		wg.Go(func() {
			for range 10 {
				m.Step(t.Context())
			}
		})
	}

	wg.Wait()

	assert.Equal(t, uint64(80), m.Steps())
	assert.Equal(t, 3, m.State())
	require.Len(t, obs.steps, 80)

	for i, step := range obs.steps {
		assert.Equal(t, uint64(i+1), step.Sequence)
	}
}

func TestLogObserver(t *testing.T) {
	t.Parallel()

	ctx := logger.WithLogger(t.Context(), slogt.New(t))
	m := Wrap(newCounter(t), WithLogging[int](), WithTracing[int](false))

	assert.Equal(t, 3, m.Run(ctx, 5))
}

func TestLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "7", Label(7))
	assert.Equal(t, "NEXT2", Label(statemachine.Next2))
	assert.Equal(t, "plain", Label("plain"))
}

//nolint:paralleltest // Test modifies global Prometheus metric state
func TestMetricsObserver(t *testing.T) {
	stepsTotal.Reset()
	transitionsTotal.Reset()
	errorsTotal.Reset()
	stepDuration.Reset()

	m := Wrap(newCounter(t), WithName[int]("metrics-test"), WithMetrics[int](), WithTracing[int](false))
	m.Run(t.Context(), 5)

	assert.InDelta(t, 1, testutil.ToFloat64(stepsTotal.WithLabelValues("metrics-test", "0", "NEXT")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(stepsTotal.WithLabelValues("metrics-test", "2", "ERROR")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(stepsTotal.WithLabelValues("metrics-test", "3", "REPEAT")), 0)

	// Holding at 3 is not a transition.
	assert.Equal(t, 3, testutil.CollectAndCount(transitionsTotal))
	assert.InDelta(t, 1, testutil.ToFloat64(errorsTotal.WithLabelValues("metrics-test", "2", "3")), 0)
	assert.Equal(t, 4, testutil.CollectAndCount(stepDuration))
}

func TestSanitizeMachine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unknown", sanitizeMachine(""))
	assert.Equal(t, "branching", sanitizeMachine("branching"))
}

//nolint:paralleltest // Test modifies global OTEL tracer provider
func TestTracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	oldProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(oldProvider)
	})

	m := Wrap(newCounter(t), WithName[int]("traced"), WithID[int]("trace-id"))
	m.Run(t.Context(), 3)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	for i, span := range spans {
		assert.Equal(t, stepSpanName, span.Name)

		attrs := attribute.NewSet(span.Attributes...)

		machine, ok := attrs.Value("machine")
		require.True(t, ok)
		assert.Equal(t, "traced", machine.AsString())

		step, ok := attrs.Value("step")
		require.True(t, ok)
		assert.Equal(t, int64(i+1), step.AsInt64())
	}

	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[2].Status.Code)

	last := attribute.NewSet(spans[2].Attributes...)

	to, ok := last.Value("state.to")
	require.True(t, ok)
	assert.Equal(t, "3", to.AsString())
}
