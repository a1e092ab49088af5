package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/adsaudit/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of directories audited at once.
const DefaultConcurrency = 4

// BatchProcessor audits several export directories concurrently.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because it keeps the Pipeline focused on a
// single audit.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each audit.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent audits.
	concurrency int

	// reportDays is the date range length stamped on every report.
	reportDays int

	// reportDaysFor, when set, overrides reportDays per directory.
	reportDaysFor func(dir string) int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed audit reports.
	// Access is synchronized via mutex.
	results []*model.AuditReport
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent audits.
// Default is DefaultConcurrency if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchReportDays sets the report_days of every audit.
func WithBatchReportDays(days int) BatchOption {
	return func(b *BatchProcessor) {
		if days > 0 {
			b.reportDays = days
		}
	}
}

// WithReportDaysFunc resolves report_days per directory, so accounts
// exported with different date ranges can share one batch. Results of
// zero or less fall back to the batch-wide value.
func WithReportDaysFunc(f func(dir string) int) BatchOption {
	return func(b *BatchProcessor) {
		b.reportDaysFor = f
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each audit to create a fresh
// pipeline instance, so pipeline state never leaks between directories.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
		reportDays:      30,
		results:         make([]*model.AuditReport, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch audits multiple directories concurrently and returns the
// reports in input order, including those of failed audits.
//
// The error return is only set when the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, dirs []string) ([]*model.AuditReport, error) {
	bp.logger.Info("starting batch audit",
		"total_dirs", len(dirs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.AuditReport, len(dirs))

	err := bp.run(ctx, dirs, func(report *model.AuditReport, i int) {
		bp.mu.Lock()
		bp.results[i] = report
		bp.mu.Unlock()
	})

	bp.logger.Info("batch audit complete",
		"total_dirs", len(dirs),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback audits multiple directories and calls callback
// for each completed audit. The callback runs on the goroutine that
// completed the audit, so it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	dirs []string,
	callback func(report *model.AuditReport, index int),
) error {
	bp.logger.Info("starting batch audit with callback",
		"total_dirs", len(dirs),
		"concurrency", bp.concurrency,
	)
	return bp.run(ctx, dirs, callback)
}

func (bp *BatchProcessor) run(ctx context.Context, dirs []string, done func(*model.AuditReport, int)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, dir := range dirs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("auditing directory",
				"data_dir", dir,
				"index", i+1,
				"total", len(dirs),
			)

			report := model.NewAuditReport(dir, bp.daysFor(dir))
			if err := bp.pipelineFactory().Execute(ctx, report); err != nil {
				// Recorded in the report; other audits continue.
				bp.logger.Warn("audit failed",
					"data_dir", dir,
					"error", err,
				)
			}

			done(report, i)
			return nil
		})
	}

	return g.Wait()
}

func (bp *BatchProcessor) daysFor(dir string) int {
	if bp.reportDaysFor != nil {
		if days := bp.reportDaysFor(dir); days > 0 {
			return days
		}
	}
	return bp.reportDays
}
