package observe

import (
	"context"

	"github.com/amp-labs/usm/statemachine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// stepsTotal counts steps by the state that ran and the signal it reported.
	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "usm_steps_total",
		Help: "Total number of steps by machine, state and reported signal",
	}, []string{"machine", "state", "signal"})

	// transitionsTotal counts steps that moved to a different state.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "usm_transitions_total",
		Help: "Total number of state transitions by machine, from_state and to_state",
	}, []string{"machine", "from_state", "to_state"})

	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "usm_step_duration_seconds",
		Help:    "Duration of a single step by machine and state",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1, 10},
	}, []string{"machine", "state"})

	// errorsTotal counts ERROR signals and where they were routed.
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "usm_errors_total",
		Help: "Total number of ERROR signals by machine, state and routed_to",
	}, []string{"machine", "state", "routed_to"})
)

// MetricsObserver records prometheus metrics for every step.
type MetricsObserver[S comparable] struct{}

// NewMetricsObserver creates a MetricsObserver.
func NewMetricsObserver[S comparable]() *MetricsObserver[S] {
	return &MetricsObserver[S]{}
}

func (m *MetricsObserver[S]) StepStarted(context.Context, string, S) {}

func (m *MetricsObserver[S]) StepCompleted(_ context.Context, step Step[S]) {
	machine := sanitizeMachine(step.Machine)
	from := Label(step.From)
	to := Label(step.To)

	stepsTotal.WithLabelValues(machine, from, step.Signal.String()).Inc()
	stepDuration.WithLabelValues(machine, from).Observe(step.Duration.Seconds())

	if !step.Held() {
		transitionsTotal.WithLabelValues(machine, from, to).Inc()
	}

	if step.Signal == statemachine.Error {
		errorsTotal.WithLabelValues(machine, from, to).Inc()
	}
}

func sanitizeMachine(name string) string {
	if name == "" {
		return "unknown"
	}

	return name
}
