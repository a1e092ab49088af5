package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/adsaudit/internal/report"
)

// writeConfig writes a config file so tests never read the user's own.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// reportFiles returns the report files saved in dir.
func reportFiles(t *testing.T, dir string) []string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, "report_*"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	return matches
}

// TestNewAuditCmd tests the audit command flags.
func TestNewAuditCmd(t *testing.T) {
	t.Parallel()

	cmd := NewAuditCmd()

	testCases := []struct {
		flag      string
		shorthand string
		defValue  string
	}{
		{"data-dir", "d", "data"},
		{"output-dir", "o", "output"},
		{"report-days", "r", "30"},
		{"batch", "b", "4"},
		{"config", "c", ""},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"format", "", "markdown"},
		{"print", "", "false"},
	}

	for _, tc := range testCases {
		t.Run(tc.flag, func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tc.flag)
			if flag == nil {
				t.Fatalf("expected %s flag", tc.flag)
			}
			if flag.Shorthand != tc.shorthand {
				t.Errorf("shorthand = %q, want %q", flag.Shorthand, tc.shorthand)
			}
			if flag.DefValue != tc.defValue {
				t.Errorf("default = %q, want %q", flag.DefValue, tc.defValue)
			}
		})
	}
}

// TestBuildConfig tests that only flags set by the user override the config file.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, "data_dir: exports\nreport_days: 90\nformat: json\nconcurrency: 2\n")

	testCases := []struct {
		name           string
		args           []string
		wantDataDir    string
		wantReportDays int
		wantFormat     string
		wantBatch      int
	}{
		{
			name:           "config file values",
			args:           []string{"-c", cfgPath},
			wantDataDir:    "exports",
			wantReportDays: 90,
			wantFormat:     "json",
			wantBatch:      2,
		},
		{
			name:           "flags override",
			args:           []string{"-c", cfgPath, "-d", "other", "-r", "7", "-b", "8", "--format", "TEXT"},
			wantDataDir:    "other",
			wantReportDays: 7,
			wantFormat:     "text",
			wantBatch:      8,
		},
		{
			name:           "markdown shorthand",
			args:           []string{"-c", cfgPath, "-m"},
			wantDataDir:    "exports",
			wantReportDays: 90,
			wantFormat:     "markdown",
			wantBatch:      2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewAuditCmd()
			if err := cmd.ParseFlags(tc.args); err != nil {
				t.Fatalf("failed to parse flags: %v", err)
			}
			cfg, err := buildConfig(cmd)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.DataDir != tc.wantDataDir {
				t.Errorf("DataDir = %q, want %q", cfg.DataDir, tc.wantDataDir)
			}
			if cfg.ReportDays != tc.wantReportDays {
				t.Errorf("ReportDays = %d, want %d", cfg.ReportDays, tc.wantReportDays)
			}
			if cfg.Format != tc.wantFormat {
				t.Errorf("Format = %q, want %q", cfg.Format, tc.wantFormat)
			}
			if cfg.Concurrency != tc.wantBatch {
				t.Errorf("Concurrency = %d, want %d", cfg.Concurrency, tc.wantBatch)
			}
		})
	}

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewAuditCmd()
		if err := cmd.ParseFlags([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		if _, err := buildConfig(cmd); err == nil {
			t.Error("expected error for a missing config file")
		}
	})
}

// TestRunAuditCmd tests complete audits through the command.
func TestRunAuditCmd(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, "accounts:\n  acme:\n    name: Acme Corp\n")

	t.Run("audits a directory and saves a text report", func(t *testing.T) {
		t.Parallel()

		dataDir := t.TempDir()
		outDir := filepath.Join(t.TempDir(), "reports")
		writeDevicesExport(t, dataDir)

		out, err := executeCommand(t, NewAuditCmd(),
			"-c", cfgPath, "-d", dataDir, "-o", outDir, "--format", "text")
		if err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, out)
		}

		for _, want := range []string{
			"[x] devices.csv",
			"[ ] campaigns.csv",
			"Found 1 of 11 export files.",
			"Analyses: 2 completed, 10 skipped",
			"Report saved to: ",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}

		files := reportFiles(t, outDir)
		if len(files) != 1 || filepath.Ext(files[0]) != ".txt" {
			t.Fatalf("expected one .txt report, got %v", files)
		}
	})

	t.Run("json report can be read back", func(t *testing.T) {
		t.Parallel()

		dataDir := t.TempDir()
		outDir := t.TempDir()
		writeDevicesExport(t, dataDir)

		if out, err := executeCommand(t, NewAuditCmd(),
			"-c", cfgPath, "-d", dataDir, "-o", outDir, "-j", "-r", "14"); err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, out)
		}

		files := reportFiles(t, outDir)
		if len(files) != 1 {
			t.Fatalf("expected one report, got %v", files)
		}
		f, err := os.Open(files[0])
		if err != nil {
			t.Fatalf("failed to open report: %v", err)
		}
		defer f.Close()

		r, err := report.ReadJSON(f)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if len(r.Analyses) != 12 {
			t.Errorf("expected 12 analyses, got %d", len(r.Analyses))
		}
		if r.ReportDays != 14 {
			t.Errorf("report days = %d, want 14", r.ReportDays)
		}
		if r.GeneratedAt.IsZero() {
			t.Error("expected generated_at to be set")
		}
	})

	t.Run("print also writes the report to stdout", func(t *testing.T) {
		t.Parallel()

		dataDir := t.TempDir()
		writeDevicesExport(t, dataDir)

		out, err := executeCommand(t, NewAuditCmd(),
			"-c", cfgPath, "-d", dataDir, "-o", t.TempDir(), "--format", "text", "--print")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "GOOGLE ADS AUDIT REPORT") {
			t.Errorf("expected the report on stdout:\n%s", out)
		}
	})

	t.Run("fails without exports", func(t *testing.T) {
		t.Parallel()

		outDir := t.TempDir()
		out, err := executeCommand(t, NewAuditCmd(), "-c", cfgPath, "-d", t.TempDir(), "-o", outDir)
		if err == nil {
			t.Fatal("expected error for a directory without exports")
		}
		if !strings.Contains(out, "classify --organize") {
			t.Errorf("expected a hint about organizing exports:\n%s", out)
		}
		if files := reportFiles(t, outDir); len(files) != 0 {
			t.Errorf("expected no report, got %v", files)
		}
	})

	t.Run("batch writes one report per account", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		acme := filepath.Join(root, "acme")
		globex := filepath.Join(root, "globex")
		for _, dir := range []string{acme, globex} {
			if err := os.MkdirAll(dir, 0750); err != nil {
				t.Fatalf("mkdir failed: %v", err)
			}
			writeDevicesExport(t, dir)
		}
		outDir := t.TempDir()

		out, err := executeCommand(t, NewAuditCmd(), "-c", cfgPath, "-o", outDir, "-b", "2", acme, globex)
		if err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, out)
		}
		if !strings.Contains(out, "Auditing 2 directories") {
			t.Errorf("expected batch header:\n%s", out)
		}
		for _, sub := range []string{"Acme Corp", "globex"} {
			if files := reportFiles(t, filepath.Join(outDir, sub)); len(files) != 1 {
				t.Errorf("expected one report in %s, got %v", sub, files)
			}
		}
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		t.Parallel()

		_, err := executeCommand(t, NewAuditCmd(), "-c", cfgPath, "-r", "0")
		if err == nil || !strings.Contains(err.Error(), "configuration error") {
			t.Errorf("expected configuration error, got %v", err)
		}
	})

	t.Run("json and markdown are mutually exclusive", func(t *testing.T) {
		t.Parallel()

		if _, err := executeCommand(t, NewAuditCmd(), "-c", cfgPath, "-j", "-m"); err == nil {
			t.Error("expected error for conflicting format flags")
		}
	})
}

// TestSafeDirName tests conversion of account names to path elements.
func TestSafeDirName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Acme Corp", "Acme Corp"},
		{"separators", "Acme/EU: Search", "Acme_EU_ Search"},
		{"empty", "  ", "account"},
		{"parent", "..", "account"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := safeDirName(tc.in); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
