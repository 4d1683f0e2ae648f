package observe

import (
	"context"
	"fmt"

	"github.com/amp-labs/usm/statemachine"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName   = "statemachine"
	stepSpanName = "statemachine.step"
)

// startStepSpan starts the span covering one step. The caller ends it.
//
//nolint:spancheck // Span lifecycle managed by caller
func startStepSpan[S comparable](
	ctx context.Context,
	machine, machineID string,
	seq uint64,
	from S,
) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, stepSpanName)

	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("machine_id", machineID),
		attribute.Int64("step", int64(seq)), //nolint:gosec // step counts never reach MaxInt64
		attribute.String("state.from", Label(from)),
	)

	return ctx, span
}

// finishStepSpan records the outcome of a step on the span in ctx.
func finishStepSpan[S comparable](ctx context.Context, step Step[S]) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(stateAttrs(step)...)

	code, desc := statusFor(step.Signal)
	span.SetStatus(code, desc)
}

// stateAttrs describes a finished step on its span.
func stateAttrs[S comparable](step Step[S]) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("state.from", Label(step.From)),
		attribute.String("state.to", Label(step.To)),
		attribute.String("signal", step.Signal.String()),
		attribute.Int64("duration_us", step.Duration.Microseconds()),
	}
}

func statusFor(signal statemachine.Signal) (codes.Code, string) {
	if signal == statemachine.Error {
		return codes.Error, "state reported ERROR"
	}

	return codes.Ok, "completed"
}

// Label renders a state for logs, spans and metric labels.
func Label[S comparable](state S) string {
	if s, ok := any(state).(fmt.Stringer); ok {
		return s.String()
	}

	return fmt.Sprint(state)
}
