package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/linkcheck/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of start URLs checked at the same time.
const DefaultBatchSize = 1

// Runner performs one link check.
type Runner interface {
	Run(ctx context.Context) (*model.Result, error)
}

// RunnerFactory creates a fresh Runner for a start URL.
type RunnerFactory func(startURL string) (Runner, error)

// Item is the outcome of checking one start URL.
type Item struct {
	// StartURL is the URL as given to the batch.
	StartURL string

	// Result is nil when the check could not be built or did not finish.
	Result *model.Result

	// Err explains a missing Result.
	Err error
}

// BatchProcessor checks multiple start URLs with bounded concurrency.
type BatchProcessor struct {
	factory     RunnerFactory
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent checks.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor. factory is called once per
// start URL.
func NewBatchProcessor(factory RunnerFactory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch checks every start URL and returns one Item per URL in input
// order. A failing check does not stop the others. The returned error is
// non-nil only when ctx was cancelled; items that did not finish then carry
// the context error.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, startURLs []string) ([]Item, error) {
	bp.logger.Info("starting batch",
		"total_sites", len(startURLs),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	items := make([]Item, len(startURLs))
	for i, u := range startURLs {
		items[i].StartURL = u
	}

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, startURL := range startURLs {
		g.Go(func() error {
			// Each goroutine owns items[i], so no lock is needed.
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}

			bp.logger.Info("checking site",
				"start_url", startURL,
				"index", i+1,
				"total", len(startURLs),
			)

			runner, err := bp.factory(startURL)
			if err != nil {
				bp.logger.Warn("cannot check site", "start_url", startURL, "error", err)
				items[i].Err = err
				return nil
			}

			result, err := runner.Run(ctx)
			if err != nil {
				bp.logger.Warn("check failed", "start_url", startURL, "error", err)
				items[i].Err = err
				return nil
			}
			items[i].Result = result

			bp.logger.Info("check completed",
				"start_url", startURL,
				"ok", result.OK,
				"broken", result.Broken,
			)
			return nil
		})
	}
	_ = g.Wait() // goroutines record errors in their item

	bp.logger.Info("batch complete",
		"total_sites", len(startURLs),
		"elapsed", time.Since(startTime),
	)
	return items, ctx.Err()
}

// Results returns the finished results of items, skipping failed ones.
func Results(items []Item) []*model.Result {
	results := make([]*model.Result, 0, len(items))
	for _, it := range items {
		if it.Result != nil {
			results = append(results, it.Result)
		}
	}
	return results
}
