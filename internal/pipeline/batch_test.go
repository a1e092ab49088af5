package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/adsaudit/internal/model"
)

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name            string
		opts            []BatchOption
		wantConcurrency int
		wantReportDays  int
	}{
		{
			name:            "defaults",
			wantConcurrency: DefaultConcurrency,
			wantReportDays:  30,
		},
		{
			name:            "applies options",
			opts:            []BatchOption{WithConcurrency(8), WithBatchReportDays(14)},
			wantConcurrency: 8,
			wantReportDays:  14,
		},
		{
			name:            "ignores non-positive values",
			opts:            []BatchOption{WithConcurrency(0), WithBatchReportDays(-1)},
			wantConcurrency: DefaultConcurrency,
			wantReportDays:  30,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			bp := NewBatchProcessor(func() *Pipeline { return New() }, tc.opts...)

			if bp.concurrency != tc.wantConcurrency {
				t.Errorf("concurrency = %d, want %d", bp.concurrency, tc.wantConcurrency)
			}
			if bp.reportDays != tc.wantReportDays {
				t.Errorf("reportDays = %d, want %d", bp.reportDays, tc.wantReportDays)
			}
			if bp.logger == nil {
				t.Error("expected non-nil logger")
			}
		})
	}
}

// TestBatchProcessorProcessBatch tests batch auditing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("maintains result order", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{name: "noop"})
			return p
		}, WithBatchLogger(discardLogger()), WithBatchReportDays(7))

		dirs := []string{"acme", "globex", "initech"}

		results, err := bp.ProcessBatch(context.Background(), dirs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != len(dirs) {
			t.Fatalf("expected %d results, got %d", len(dirs), len(results))
		}
		for i, result := range results {
			if result.DataDir != dirs[i] {
				t.Errorf("result[%d]: got %q, expected %q", i, result.DataDir, dirs[i])
			}
			if result.ReportDays != 7 {
				t.Errorf("result[%d]: report days = %d, want 7", i, result.ReportDays)
			}
		}
	})

	t.Run("resolves report days per directory", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline {
			return New(WithLogger(discardLogger()))
		},
			WithBatchLogger(discardLogger()),
			WithBatchReportDays(30),
			WithReportDaysFunc(func(dir string) int {
				if dir == "globex" {
					return 90
				}
				return 0
			}),
		)

		results, err := bp.ProcessBatch(context.Background(), []string{"acme", "globex"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if results[0].ReportDays != 30 {
			t.Errorf("acme report days = %d, want 30", results[0].ReportDays)
		}
		if results[1].ReportDays != 90 {
			t.Errorf("globex report days = %d, want 90", results[1].ReportDays)
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var maxConcurrent atomic.Int32
		var currentConcurrent atomic.Int32
		var mu sync.Mutex

		bp := NewBatchProcessor(
			func() *Pipeline {
				p := New(WithLogger(discardLogger()))
				p.AddStep(&mockStep{
					name: "concurrent-counter",
					doFunc: func(_ context.Context, _ *model.AuditReport) error {
						current := currentConcurrent.Add(1)

						mu.Lock()
						if current > maxConcurrent.Load() {
							maxConcurrent.Store(current)
						}
						mu.Unlock()

						time.Sleep(20 * time.Millisecond)

						currentConcurrent.Add(-1)
						return nil
					},
				})
				return p
			},
			WithConcurrency(2),
			WithBatchLogger(discardLogger()),
		)

		dirs := make([]string, 8)
		for i := range dirs {
			dirs[i] = fmt.Sprintf("account-%d", i)
		}

		if _, err := bp.ProcessBatch(context.Background(), dirs); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if maxConcurrent.Load() > 2 {
			t.Errorf("max concurrent was %d, expected <= 2", maxConcurrent.Load())
		}
	})

	t.Run("continues after individual audit failure", func(t *testing.T) {
		t.Parallel()

		var processedCount atomic.Int32

		bp := NewBatchProcessor(func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{
				name: "sometimes-fails",
				doFunc: func(_ context.Context, report *model.AuditReport) error {
					processedCount.Add(1)
					if report.DataDir == "broken" {
						return ErrNoExports
					}
					return nil
				},
			})
			return p
		}, WithBatchLogger(discardLogger()))

		results, err := bp.ProcessBatch(context.Background(), []string{"acme", "broken", "globex"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if processedCount.Load() != 3 {
			t.Errorf("expected 3 processed, got %d", processedCount.Load())
		}
		if results[1].Error == "" {
			t.Error("expected error in second result")
		}
		if results[0].Error != "" || results[2].Error != "" {
			t.Error("expected other results to succeed")
		}
	})

	t.Run("handles context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		var startedCount atomic.Int32

		bp := NewBatchProcessor(
			func() *Pipeline {
				p := New(WithLogger(discardLogger()))
				p.AddStep(&mockStep{
					name: "slow-step",
					doFunc: func(ctx context.Context, _ *model.AuditReport) error {
						startedCount.Add(1)
						select {
						case <-ctx.Done():
							return ctx.Err()
						case <-time.After(time.Second):
							return nil
						}
					},
				})
				return p
			},
			WithConcurrency(2),
			WithBatchLogger(discardLogger()),
		)

		dirs := make([]string, 10)
		for i := range dirs {
			dirs[i] = fmt.Sprintf("account-%d", i)
		}

		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		_, err := bp.ProcessBatch(ctx, dirs)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if startedCount.Load() >= int32(len(dirs)) {
			t.Error("expected some audits to not start due to cancellation")
		}
	})
}

// TestBatchProcessorProcessBatchWithCallback tests callback-based processing.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	bp := NewBatchProcessor(func() *Pipeline {
		p := New(WithLogger(discardLogger()))
		p.AddStep(&mockStep{name: "noop"})
		return p
	}, WithBatchLogger(discardLogger()))

	dirs := []string{"acme", "globex", "initech"}

	var mu sync.Mutex
	received := make(map[int]string)

	err := bp.ProcessBatchWithCallback(context.Background(), dirs, func(report *model.AuditReport, index int) {
		mu.Lock()
		defer mu.Unlock()
		received[index] = report.DataDir
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(received) != len(dirs) {
		t.Fatalf("expected %d callbacks, got %d", len(dirs), len(received))
	}
	for i, dir := range dirs {
		if received[i] != dir {
			t.Errorf("callback %d got %q, want %q", i, received[i], dir)
		}
	}
}
