package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"datacleaner/internal/dataprocessing"
	"datacleaner/internal/exporter"
	"datacleaner/internal/infrastructure"
	"datacleaner/pkg/contracts/domain"
)

// Result summarises a pipeline run.
type Result struct {
	Input    string                     `json:"input"`
	Output   string                     `json:"output,omitempty"`
	Rows     int                        `json:"rows"`
	Columns  int                        `json:"columns"`
	Steps    []*StepState               `json:"steps"`
	Outcomes []domain.ConversionOutcome `json:"conversions,omitempty"`
	Duration time.Duration              `json:"duration"`
}

// Runner loads the input, executes the steps and writes the output.
type Runner struct {
	registry *Registry
	loader   *dataprocessing.Loader
	writer   *exporter.CSVWriter
	metrics  *infrastructure.BusinessMetrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRegistry replaces the default step registry.
func WithRegistry(r *Registry) RunnerOption {
	return func(rn *Runner) { rn.registry = r }
}

// WithMetrics records step durations and errors.
func WithMetrics(m *infrastructure.BusinessMetrics) RunnerOption {
	return func(rn *Runner) { rn.metrics = m }
}

// NewRunner creates a runner with the default registry.
func NewRunner(logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		loader: dataprocessing.NewLoader(logger),
		writer: exporter.NewCSVWriter("", logger),
		tracer: otel.Tracer(infrastructure.MeterName + "/pipeline"),
		logger: logger.With(slog.String("component", "pipeline")),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = NewDefaultRegistry(dataprocessing.NewCoercer(logger))
	}
	return r
}

// Run executes def. Steps are validated before the input is read. The
// returned Result is non-nil whenever the input was loaded, even if a step
// failed.
func (r *Runner) Run(ctx context.Context, def *Definition) (*Result, error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("input", def.Input),
		attribute.Int("steps", len(def.Steps)),
	))
	defer span.End()

	steps, err := r.registry.Build(def.Steps)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	opts := dataprocessing.LoadOptions{Sheet: def.Sheet}
	if def.Delimiter != "" {
		opts.Delimiter, _ = utf8.DecodeRuneInString(def.Delimiter)
	}
	ds, err := r.loader.LoadFile(def.Input, opts)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load %s: %w", def.Input, err)
	}

	state := &State{Dataset: ds}
	for _, step := range steps {
		state.Steps = append(state.Steps, &StepState{ID: step.ID(), Type: step.Type(), Status: StepStatusPending})
	}

	result := &Result{Input: def.Input, Steps: state.Steps}
	runErr := r.execute(ctx, steps, def.Steps, state)

	result.Rows = state.Dataset.Rows()
	result.Columns = state.Dataset.Width()
	result.Outcomes = state.Outcomes

	if runErr == nil && def.Output != "" {
		path, err := r.writer.WriteFile(def.Output, state.Dataset, exporter.WriteOptions{BOMPrefix: def.BOM})
		if err != nil {
			runErr = fmt.Errorf("failed to write output: %w", err)
		} else {
			result.Output = path
		}
	}

	result.Duration = time.Since(start)
	if runErr != nil {
		span.SetStatus(codes.Error, runErr.Error())
		r.logger.ErrorContext(ctx, "pipeline failed",
			slog.String("input", def.Input),
			slog.String("error", runErr.Error()))
		return result, runErr
	}

	r.logger.InfoContext(ctx, "pipeline completed",
		slog.String("input", def.Input),
		slog.String("output", result.Output),
		slog.Int("rows", result.Rows),
		slog.Int("columns", result.Columns),
		slog.Duration("duration", result.Duration))
	return result, nil
}

func (r *Runner) execute(ctx context.Context, steps []Step, specs []StepSpec, state *State) error {
	for i, step := range steps {
		st := state.Steps[i]

		if err := ctx.Err(); err != nil {
			for _, rest := range state.Steps[i:] {
				rest.Status = StepStatusSkipped
				rest.Message = "cancelled"
			}
			return err
		}

		err := r.executeStep(ctx, step, st, state)
		if err == nil {
			continue
		}
		if specs[i].ContinueOnError && !errors.Is(err, context.Canceled) {
			r.logger.WarnContext(ctx, "step failed, continuing",
				slog.String("step", step.ID()),
				slog.String("error", err.Error()))
			continue
		}
		for _, rest := range state.Steps[i+1:] {
			rest.Status = StepStatusSkipped
			rest.Message = fmt.Sprintf("step %s failed", step.ID())
		}
		return fmt.Errorf("step %s: %w", step.ID(), err)
	}
	return nil
}

func (r *Runner) executeStep(ctx context.Context, step Step, st *StepState, state *State) error {
	ctx, span := r.tracer.Start(ctx, "pipeline."+step.Type(), trace.WithAttributes(
		attribute.String("step", step.ID()),
	))
	defer span.End()

	st.Status = StepStatusActive
	start := time.Now()
	err := step.Execute(ctx, state)
	st.Duration = time.Since(start)
	st.Rows = state.Dataset.Rows()
	st.Columns = state.Dataset.Width()

	infrastructure.RecordOperationMetrics(ctx, r.metrics, "pipeline."+step.Type(), st.Duration, err)

	if err != nil {
		st.Status = StepStatusFailed
		st.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	st.Status = StepStatusCompleted
	if m, ok := step.(stepMessager); ok {
		st.Message = m.Message()
	}
	r.logger.DebugContext(ctx, "step completed",
		slog.String("step", step.ID()),
		slog.String("message", st.Message),
		slog.Duration("duration", st.Duration))
	return nil
}
