package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/triesearch/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps run in sequence, each receiving the report the previous steps
// filled in.
//
// Design decision: An interface rather than a function type so steps can
// carry configuration and report a Name for logging.
type Step interface {
	// Do executes the step. Critical failures are returned; anything the
	// step can work around is logged and nil is returned.
	Do(ctx context.Context, report *model.IndexReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs steps in order for one seed.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	logger *slog.Logger

	// continueOnError keeps running later steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing steps after one fails. The error is
// still recorded in the report.
//
// Design decision: The default is to stop, because a failed crawl leaves
// nothing for the store and index steps to do.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence.
//
// Design decision: The context is checked between steps, not inside them;
// steps honor it themselves while blocked on I/O.
//
// Returns the first step error unless continueOnError is set, or the
// context error if the pipeline was cancelled.
func (p *Pipeline) Execute(ctx context.Context, report *model.IndexReport) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			report.Cancelled = true
			return ctx.Err()
		default:
		}

		start := time.Now()
		if err := step.Do(ctx, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"seed", report.Seed,
				"error", err,
			)

			report.SetError(err)

			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"seed", report.Seed,
				"elapsed", time.Since(start),
			)
		}

		report.PerformedSteps = append(report.PerformedSteps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
