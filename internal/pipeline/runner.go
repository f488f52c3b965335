package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/enrichment-gateway/internal/core/domain"
	"github.com/tjfontaine/enrichment-gateway/internal/core/ports"
)

const tracerName = "enrichment-gateway/pipeline"

var errNoConverter = errors.New("no markup converter configured")

// Runner executes chains. It holds no per-run state and is safe for
// concurrent use.
type Runner struct {
	executor  ports.StepExecutor
	converter ports.MarkupConverter
	logger    *slog.Logger
	tracer    trace.Tracer
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Executor  ports.StepExecutor
	Converter ports.MarkupConverter // optional; chains never round-trip without it
	Logger    *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		executor:  cfg.Executor,
		converter: cfg.Converter,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

// RoundTripApplies reports whether a chain is wrapped in markup conversion:
// it has at least two steps, the first accepts markup and the last produces
// markup. Only declared formats are considered.
func RoundTripApplies(steps []domain.StepDescriptor) bool {
	if len(steps) < 2 {
		return false
	}
	return domain.IsMarkup(steps[0].InputMime()) &&
		domain.IsMarkup(steps[len(steps)-1].OutputMime())
}

// Run executes steps in order, feeding each step the body produced by the
// previous one. The first step receives body, or no body at all when body is
// empty outside round-trip mode.
func (r *Runner) Run(ctx context.Context, steps []domain.StepDescriptor, body string) (*domain.WrappedResult, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: chain has no steps", domain.ErrInvalidPipeline)
	}
	for i, step := range steps {
		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		// A non-POST step anywhere in the chain fails the run before the
		// first remote call.
		if !strings.EqualFold(step.Method(), http.MethodPost) {
			return nil, &domain.UnsupportedMethodError{Endpoint: step.Endpoint(), Method: step.Method()}
		}
	}

	ctx, span := r.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.Int("pipeline.steps", len(steps)),
	))
	defer span.End()

	report := domain.NewExecutionReport()
	roundTrip := RoundTripApplies(steps)

	var rt *RoundTrip
	current := body
	if roundTrip {
		rt = newRoundTrip(r.converter)
		semantic, err := r.forward(ctx, rt, body, report)
		if err != nil {
			r.logger.WarnContext(ctx, "markup conversion failed, running chain without round-trip",
				slog.String("error", err.Error()),
			)
			roundTrip = false
		} else {
			current = semantic
		}
	}
	span.SetAttributes(attribute.Bool("pipeline.round_trip", roundTrip))

	var input *string
	if current != "" || roundTrip {
		input = &current
	}

	var result domain.StepResult
	loopStart := time.Now()
	for i, step := range steps {
		if roundTrip {
			step = step.ForInterchange()
		}

		res, err := r.executeStep(ctx, i, step, input, report)
		if err != nil {
			report.TotalMillis = time.Since(loopStart).Milliseconds()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.logger.ErrorContext(ctx, "pipeline step failed",
				slog.Int("step", i),
				slog.String("endpoint", step.Endpoint()),
				slog.String("kind", string(domain.KindOf(err))),
				slog.String("error", err.Error()),
			)
			return nil, err
		}

		result = res
		out := res.Body
		input = &out
	}
	report.TotalMillis = time.Since(loopStart).Milliseconds()

	if roundTrip {
		start := time.Now()
		markup, err := rt.Backward(ctx, result.Body)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.logger.ErrorContext(ctx, "semantic to markup conversion failed", slog.String("error", err.Error()))
			return nil, err
		}
		report.Record(domain.LabelFromSemantic, time.Since(start))
		result = domain.StepResult{Body: markup, ContentType: domain.MimeMarkupFmt}
	}

	r.logger.InfoContext(ctx, "pipeline run completed",
		slog.Int("steps", len(steps)),
		slog.Bool("round_trip", roundTrip),
		slog.Int64("total_ms", report.TotalMillis),
	)

	return &domain.WrappedResult{Result: result, Report: report}, nil
}

func (r *Runner) forward(ctx context.Context, rt *RoundTrip, body string, report *domain.ExecutionReport) (string, error) {
	if r.converter == nil {
		return "", &domain.ConversionError{Err: errNoConverter}
	}

	ctx, span := r.tracer.Start(ctx, "pipeline.convert", trace.WithAttributes(
		attribute.String("pipeline.conversion", domain.LabelToSemantic),
	))
	defer span.End()

	start := time.Now()
	semantic, err := rt.Forward(ctx, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	report.Record(domain.LabelToSemantic, time.Since(start))
	return semantic, nil
}

func (r *Runner) executeStep(ctx context.Context, index int, step domain.StepDescriptor, input *string, report *domain.ExecutionReport) (domain.StepResult, error) {
	ctx, span := r.tracer.Start(ctx, "pipeline.step", trace.WithAttributes(
		attribute.Int("step.index", index),
		attribute.String("step.endpoint", step.Endpoint()),
	))
	defer span.End()

	start := time.Now()
	res, err := r.executor.Execute(ctx, index, step, input)
	elapsed := time.Since(start)
	report.Record(step.Endpoint(), elapsed)

	span.SetAttributes(attribute.Int64("step.duration_ms", elapsed.Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.StepResult{}, err
	}

	r.logger.DebugContext(ctx, "pipeline step completed",
		slog.Int("step", index),
		slog.String("endpoint", step.Endpoint()),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
	)
	return res, nil
}

var _ ports.PipelineRunner = (*Runner)(nil)
