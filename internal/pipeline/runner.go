package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sgratzl/lineup-if-fi/internal/infrastructure"
)

// TracerName is the instrumentation name of pipeline spans
const TracerName = "lineup.pipeline"

// Runner executes steps in order against one State.
// It is the only place where the pipeline touches logging, tracing and metrics.
type Runner struct {
	steps   []Step
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
	tracer  trace.Tracer
}

// NewRunner creates a runner. metrics may be nil.
func NewRunner(logger *slog.Logger, metrics *infrastructure.BusinessMetrics, steps ...Step) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if len(steps) == 0 {
		steps = DefaultSteps()
	}
	return &Runner{
		steps:   steps,
		logger:  infrastructure.WithComponent(logger, "pipeline"),
		metrics: metrics,
		tracer:  otel.Tracer(TracerName),
	}
}

// StepIDs returns the ids of the configured steps in order
func (r *Runner) StepIDs() []string {
	ids := make([]string, len(r.steps))
	for i, s := range r.steps {
		ids[i] = s.ID()
	}
	return ids
}

// Run executes every step. The first failing step stops the run; the
// remaining steps are reported as skipped.
func (r *Runner) Run(ctx context.Context, state *State) ([]*StepState, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	states := make([]*StepState, len(r.steps))
	for i, s := range r.steps {
		states[i] = NewStepState(s.ID(), s.Name())
	}

	for i, step := range r.steps {
		if err := ctx.Err(); err != nil {
			skipRemaining(states[i:], "cancelled")
			return states, fmt.Errorf("pipeline cancelled before %s: %w", step.ID(), err)
		}

		if err := r.runStep(ctx, step, states[i], state); err != nil {
			skipRemaining(states[i+1:], fmt.Sprintf("%s failed", step.ID()))
			return states, fmt.Errorf("step %s failed: %w", step.ID(), err)
		}
	}
	return states, nil
}

func (r *Runner) runStep(ctx context.Context, step Step, st *StepState, state *State) error {
	ctx, span := r.tracer.Start(ctx, "pipeline.step."+step.ID(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("step.id", step.ID())),
	)
	defer span.End()

	logger := r.logger.With(slog.String("step", step.ID()))

	st.Start()
	logger.DebugContext(ctx, "step started", slog.String("name", step.Name()))

	if err := step.Execute(ctx, state); err != nil {
		st.Fail(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		infrastructure.RecordPipelineStep(ctx, r.metrics, step.ID(), st.Duration(), false)
		logger.WarnContext(ctx, "step failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", st.Duration()),
		)
		return err
	}

	st.Complete()
	span.SetStatus(codes.Ok, "")
	infrastructure.RecordPipelineStep(ctx, r.metrics, step.ID(), st.Duration(), true)
	logger.DebugContext(ctx, "step completed", slog.Duration("duration", st.Duration()))
	return nil
}

func skipRemaining(states []*StepState, reason string) {
	for _, st := range states {
		st.Skip(reason)
	}
}
