package observe

import (
	"context"
	"log/slog"

	"github.com/amp-labs/usm/logger"
	"github.com/amp-labs/usm/statemachine"
)

// LogObserver writes one log record per step using the logger in the context.
type LogObserver[S comparable] struct{}

// NewLogObserver creates a LogObserver.
func NewLogObserver[S comparable]() *LogObserver[S] {
	return &LogObserver[S]{}
}

func (l *LogObserver[S]) StepStarted(ctx context.Context, machineID string, state S) {
	logger.Get(ctx).DebugContext(ctx, "Step started",
		"machine_id", machineID,
		"state", Label(state),
	)
}

func (l *LogObserver[S]) StepCompleted(ctx context.Context, step Step[S]) {
	fields := []any{
		"machine", step.Machine,
		"machine_id", step.MachineID,
		"step", step.Sequence,
		"from", Label(step.From),
		"signal", step.Signal.String(),
		"to", Label(step.To),
		"duration_us", step.Duration.Microseconds(),
	}

	log := logger.Get(ctx)

	switch {
	case step.Signal == statemachine.Error:
		log.WarnContext(ctx, "State reported error", fields...)
	case step.Held():
		log.DebugContext(ctx, "State held", fields...)
	default:
		log.Log(ctx, slog.LevelInfo, "Transition", fields...)
	}
}
