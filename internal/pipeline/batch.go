package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/triesearch/internal/index"
	"github.com/nao1215/triesearch/internal/model"
)

// BatchProcessor runs one pipeline per seed concurrently.
//
// Design decision: Batching lives outside Pipeline so a Pipeline stays a
// plain sequence of steps for one seed.
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline for each seed, so per-site
	// settings such as cookies can differ between seeds.
	pipelineFactory func(seed string) *Pipeline

	// concurrency is the maximum number of seeds crawled at once.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent pipelines.
// Values below 1 are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor. The factory is called once
// per seed.
func NewBatchProcessor(pipelineFactory func(seed string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs the pipeline for every seed with at most concurrency
// pipelines at once and returns the reports in seed order.
//
// A failing seed does not stop the others; its error is in its report.
// On cancellation the context error is returned and the reports of seeds
// that never started are nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*model.IndexReport, error) {
	results := make([]*model.IndexReport, len(seeds))
	var mu sync.Mutex

	err := bp.run(ctx, seeds, func(report *model.IndexReport, i int) {
		mu.Lock()
		results[i] = report
		mu.Unlock()
	})

	return results, err
}

// ProcessBatchWithCallback runs the batch and calls callback for every
// finished seed with its report and its index in seeds. The callback runs
// on the goroutine that processed the seed and must be safe for
// concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(report *model.IndexReport, index int),
) error {
	return bp.run(ctx, seeds, callback)
}

// BuildIndex crawls the seeds concurrently and indexes every crawl result
// into builder from the calling goroutine, in completion order. It returns
// the reports in seed order.
//
// The pipelines built by the factory must not contain an IndexStep for
// builder.
func (bp *BatchProcessor) BuildIndex(ctx context.Context, seeds []string, builder *index.Builder) ([]*model.IndexReport, error) {
	type done struct {
		report *model.IndexReport
		index  int
	}

	finished := make(chan done)
	errc := make(chan error, 1)

	go func() {
		errc <- bp.run(ctx, seeds, func(report *model.IndexReport, i int) {
			finished <- done{report: report, index: i}
		})
		close(finished)
	}()

	results := make([]*model.IndexReport, len(seeds))
	for d := range finished {
		if d.report.Crawl != nil {
			d.report.WordsIndexed = indexResult(builder, d.report.Crawl)
		}
		results[d.index] = d.report
	}

	return results, <-errc
}

// run executes one pipeline per seed under errgroup's concurrency limit.
//
// Design decision: errgroup.SetLimit instead of a hand-written worker pool;
// it bounds the goroutines and propagates cancellation.
func (bp *BatchProcessor) run(
	ctx context.Context,
	seeds []string,
	callback func(report *model.IndexReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Debug("processing seed",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)

			report := model.NewIndexReport(seed)
			if err := bp.pipelineFactory(seed).Execute(ctx, report); err != nil {
				// Recorded in the report; other seeds keep going.
				bp.logger.Warn("seed failed",
					"seed", seed,
					"error", err,
				)
			}

			callback(report, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)

	return err
}
