package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/adsaudit/internal/analyzer"
	"github.com/nao1215/adsaudit/internal/classify"
	"github.com/nao1215/adsaudit/internal/model"
)

// ErrNoExports is returned when a data directory holds none of the
// expected exports.
var ErrNoExports = errors.New("no export files found")

// FileCheckStep records which of the expected exports exist in the data
// directory. It fails only when none of them do.
type FileCheckStep struct {
	logger *slog.Logger
}

// FileCheckStepOption configures a FileCheckStep.
type FileCheckStepOption func(*FileCheckStep)

// WithFileCheckLogger sets a custom logger for the file check step.
func WithFileCheckLogger(logger *slog.Logger) FileCheckStepOption {
	return func(s *FileCheckStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileCheckStep creates a new file check step.
func NewFileCheckStep(opts ...FileCheckStepOption) *FileCheckStep {
	s := &FileCheckStep{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *FileCheckStep) Name() string {
	return "file_check"
}

// Do executes the file check step.
func (s *FileCheckStep) Do(_ context.Context, report *model.AuditReport) error {
	report.Files = CheckFiles(report.DataDir)

	found := 0
	for _, f := range report.Files {
		if f.Found {
			found++
		}
	}
	s.logger.Info("export files checked",
		"data_dir", report.DataDir,
		"found", found,
		"expected", len(report.Files),
	)
	if found == 0 {
		return fmt.Errorf("%w in %s", ErrNoExports, report.DataDir)
	}
	return nil
}

// CheckFiles returns the expected-files checklist for dir in canonical order.
func CheckFiles(dir string) []model.FileStatus {
	types := classify.Types()
	files := make([]model.FileStatus, 0, len(types))
	for _, t := range types {
		info, err := os.Stat(filepath.Join(dir, t.FileName()))
		files = append(files, model.FileStatus{
			Name:  t.FileName(),
			Label: t.Label(),
			Found: err == nil && info.Mode().IsRegular(),
		})
	}
	return files
}

// AnalyzeStep runs every registered analyzer against the report's data
// directory and appends one entry per analyzer.
//
// Design decision: A fresh registry is built per report so that default
// paths and report_days follow the report being audited. Batch audits of
// different directories never share a registry.
type AnalyzeStep struct {
	newRegistry func(dataDir string, reportDays int) *analyzer.Registry
	logger      *slog.Logger
}

// AnalyzeStepOption configures an AnalyzeStep.
type AnalyzeStepOption func(*AnalyzeStep)

// WithAnalyzeLogger sets a custom logger for the analyze step.
func WithAnalyzeLogger(logger *slog.Logger) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistryFactory replaces how the analyzer registry is built.
func WithRegistryFactory(f func(dataDir string, reportDays int) *analyzer.Registry) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		s.newRegistry = f
	}
}

// NewAnalyzeStep creates a new analyze step.
func NewAnalyzeStep(opts ...AnalyzeStepOption) *AnalyzeStep {
	s := &AnalyzeStep{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.newRegistry == nil {
		s.newRegistry = func(dataDir string, reportDays int) *analyzer.Registry {
			return analyzer.DefaultRegistry(
				analyzer.WithDataDir(dataDir),
				analyzer.WithReportDays(reportDays),
				analyzer.WithLogger(s.logger),
			)
		}
	}
	return s
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string {
	return "analyze"
}

// Do executes the analyze step.
func (s *AnalyzeStep) Do(ctx context.Context, report *model.AuditReport) error {
	reg := s.newRegistry(report.DataDir, report.ReportDays)

	for _, a := range reg.Analyzers() {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.logger.Info("executing analyzer", "tool", a.Name())
		entry := reg.Run(ctx, a.Name(), reg.DefaultInput(a))
		if entry.Skipped {
			s.logger.Warn("analyzer skipped", "tool", a.Name(), "reason", entry.Error)
		} else {
			s.logger.Debug("analyzer completed",
				"tool", a.Name(),
				"findings", len(entry.Result.Findings),
			)
		}
		report.AddAnalysis(entry)
	}
	return nil
}

// FinalizeStep stamps the report with its completion time.
type FinalizeStep struct {
	now func() time.Time
}

// FinalizeStepOption configures a FinalizeStep.
type FinalizeStepOption func(*FinalizeStep)

// WithClock sets the time source.
func WithClock(now func() time.Time) FinalizeStepOption {
	return func(s *FinalizeStep) {
		s.now = now
	}
}

// NewFinalizeStep creates a new finalize step.
func NewFinalizeStep(opts ...FinalizeStepOption) *FinalizeStep {
	s := &FinalizeStep{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *FinalizeStep) Name() string {
	return "finalize"
}

// Do executes the finalize step.
func (s *FinalizeStep) Do(_ context.Context, report *model.AuditReport) error {
	report.GeneratedAt = s.now()
	return nil
}
