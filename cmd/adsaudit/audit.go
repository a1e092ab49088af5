package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/adsaudit/internal/classify"
	"github.com/nao1215/adsaudit/internal/config"
	alog "github.com/nao1215/adsaudit/internal/log"
	"github.com/nao1215/adsaudit/internal/model"
	"github.com/nao1215/adsaudit/internal/pipeline"
	"github.com/nao1215/adsaudit/internal/report"
	"github.com/spf13/cobra"
)

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [data-dir...]",
		Short: "Run every analyzer over a directory of exports",
		Long: `Audit runs all twelve analyzers over a directory of Google Ads exports
and writes a timestamped report to the output directory.

Exports must use their canonical names (campaigns.csv, keywords.csv,
search_terms.csv, ...). Missing exports are reported and their analyses
skipped; the audit fails only when no export is present at all.

Examples:
  # Audit ./data and write a Markdown report to ./output
  adsaudit audit

  # Audit a specific directory and write JSON
  adsaudit audit -d exports/acme --json

  # Audit several accounts, two at a time
  adsaudit audit -b 2 exports/acme exports/globex exports/initech

  # Also print the report to stdout
  adsaudit audit --print --format text

Configuration file (.adsaudit) example:
  data_dir: exports
  report_days: 30
  accounts:
    exports/acme:
      name: Acme Corp
      report_days: 90`,
		Args: cobra.ArbitraryArgs,
		RunE: runAuditCmd,
	}

	cmd.Flags().StringP("data-dir", "d", config.DefaultDataDir,
		"Directory containing the export files")
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Directory where the report file is written")
	cmd.Flags().IntP("report-days", "r", config.DefaultReportDays,
		"Number of days covered by the exports")
	cmd.Flags().IntP("batch", "b", config.DefaultConcurrency,
		"Number of directories audited concurrently")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .adsaudit in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false, "Write the report as JSON")
	cmd.Flags().BoolP("markdown", "m", false, "Write the report as Markdown")
	cmd.Flags().String("format", config.DefaultFormat,
		"Report format: "+strings.Join(report.Formats(), ", "))
	cmd.Flags().Bool("print", false, "Also print the report to stdout")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown", "format")

	return cmd
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	printReport, err := cmd.Flags().GetBool("print")
	if err != nil {
		return err
	}

	logger := alog.NewLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd) || cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	dirs := args
	if len(dirs) == 0 {
		dirs = []string{cfg.DataDir}
	}

	a := &auditor{
		cfg:    cfg,
		out:    cmd.OutOrStdout(),
		logger: logger,
		now:    time.Now,
		print:  printReport,
	}
	return a.run(ctx, dirs)
}

// buildConfig loads the configuration file and applies the flags the user
// set explicitly on top of it.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		if cfg.DataDir, err = flags.GetString("data-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output-dir") {
		if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("report-days") {
		if cfg.ReportDays, err = flags.GetInt("report-days"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("batch") {
		if cfg.Concurrency, err = flags.GetInt("batch"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("format") {
		if cfg.Format, err = flags.GetString("format"); err != nil {
			return nil, err
		}
	}

	asJSON, err := flags.GetBool("json")
	if err != nil {
		return nil, err
	}
	asMarkdown, err := flags.GetBool("markdown")
	if err != nil {
		return nil, err
	}
	switch {
	case asJSON:
		cfg.Format = report.FormatJSON
	case asMarkdown:
		cfg.Format = report.FormatMarkdown
	}
	cfg.Format = strings.ToLower(cfg.Format)

	return cfg, nil
}

// auditor runs audits and writes their reports.
type auditor struct {
	cfg    *config.Config
	out    io.Writer
	logger *slog.Logger
	now    func() time.Time
	print  bool
}

// run audits dirs concurrently and writes one report per directory.
// Reports are printed in argument order once all audits are done.
func (a *auditor) run(ctx context.Context, dirs []string) error {
	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return pipeline.NewAudit(a.logger)
		},
		pipeline.WithConcurrency(a.cfg.Concurrency),
		pipeline.WithBatchReportDays(a.cfg.ReportDays),
		pipeline.WithReportDaysFunc(a.cfg.ReportDaysFor),
		pipeline.WithBatchLogger(a.logger),
	)

	if len(dirs) > 1 {
		fmt.Fprintf(a.out, "Auditing %d directories (concurrency: %d)...\n\n", len(dirs), a.cfg.Concurrency)
	}

	reports, err := bp.ProcessBatch(ctx, dirs)
	if err != nil {
		return fmt.Errorf("audit cancelled: %w", err)
	}

	var lastErr error
	failed := 0
	for _, r := range reports {
		if r == nil {
			continue
		}
		if err := a.handle(r, len(dirs) > 1); err != nil {
			lastErr = err
			failed++
		}
	}

	switch {
	case failed == 0:
		return nil
	case len(dirs) == 1:
		return lastErr
	default:
		return fmt.Errorf("%d of %d audits failed", failed, len(dirs))
	}
}

// handle prints the outcome of one audit and saves its report.
func (a *auditor) handle(r *model.AuditReport, batch bool) error {
	account := a.cfg.Account(r.DataDir)
	printChecklist(a.out, r, account.Name)

	if r.Error != "" {
		fmt.Fprintf(a.out, "\nAudit failed: %s\n", r.Error)
		if strings.Contains(r.Error, pipeline.ErrNoExports.Error()) {
			fmt.Fprintf(a.out, "Place exports named %s in the directory, or run 'adsaudit classify --organize'.\n",
				strings.Join(classify.ExpectedFiles(), ", "))
		}
		fmt.Fprintln(a.out)
		return fmt.Errorf("audit of %s failed: %s", r.DataDir, r.Error)
	}

	printSummary(a.out, r)

	outDir := a.cfg.OutputDir
	if batch {
		// Reports of one batch share a timestamp, so each account gets its
		// own subdirectory.
		outDir = filepath.Join(outDir, safeDirName(account.Name))
	}
	path, err := a.writeReport(r, outDir)
	if err != nil {
		a.logger.Error("report failed", "data_dir", r.DataDir, "error", err)
		fmt.Fprintf(a.out, "Report error: %v\n\n", err)
		return fmt.Errorf("report for %s failed: %w", r.DataDir, err)
	}
	fmt.Fprintf(a.out, "Report saved to: %s\n\n", path)
	return nil
}

// commandContext returns the command's context, which is nil when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// writeReport renders r in the configured format and saves it under dir.
func (a *auditor) writeReport(r *model.AuditReport, dir string) (string, error) {
	ext, err := report.Extension(a.cfg.Format)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	fileWriter, err := report.NewWriter(a.cfg.Format, &buf, getVersion())
	if err != nil {
		return "", err
	}

	var w report.Writer = fileWriter
	if a.print {
		stdoutWriter, err := report.NewWriter(a.cfg.Format, a.out, getVersion())
		if err != nil {
			return "", err
		}
		w = report.NewMultiWriter(fileWriter, stdoutWriter)
	}

	if _, err := w.Write(r); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return report.Save(dir, buf.Bytes(), ext, a.now())
}

// printChecklist prints which expected exports were found.
func printChecklist(w io.Writer, r *model.AuditReport, account string) {
	fmt.Fprintf(w, "Data directory: %s (%s)\n", r.DataDir, account)
	found := 0
	for _, f := range r.Files {
		mark := "[ ]"
		if f.Found {
			mark = "[x]"
			found++
		}
		fmt.Fprintf(w, "  %s %-22s %s\n", mark, f.Name, f.Label)
	}
	fmt.Fprintf(w, "Found %d of %d export files.\n", found, len(r.Files))
}

// printSummary prints analysis and severity totals.
func printSummary(w io.Writer, r *model.AuditReport) {
	skipped := r.SkippedCount()
	fmt.Fprintf(w, "Analyses: %d completed, %d skipped\n", len(r.Analyses)-skipped, skipped)

	parts := make([]string, 0, len(model.AllSeverities()))
	for _, s := range model.AllSeverities() {
		parts = append(parts, fmt.Sprintf("%d %s", r.Counts.Get(s), strings.ToLower(s.String())))
	}
	fmt.Fprintf(w, "Findings: %d (%s)\n", r.Counts.Total(), strings.Join(parts, ", "))
}

// safeDirName turns an account name into a single path element.
func safeDirName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "account"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
