package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/adsaudit/internal/classify"
	"github.com/nao1215/adsaudit/internal/table"
	"github.com/spf13/cobra"
)

// errDestinationExists is returned when organizing would overwrite an export.
var errDestinationExists = errors.New("destination already exists")

// NewClassifyCmd creates the classify command.
func NewClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <file>...",
		Short: "Detect which report each export file contains",
		Long: `Classify detects the report type of each file.

A file already named after a report type (campaigns.csv, Keywords.xlsx)
is routed by its name. Any other file is routed by its columns: the
first column header is matched against the primary dimension of each
report, then column names are scored against report signatures.

With --organize, every recognised file is copied into the directory
under its canonical name, ready for 'adsaudit audit'. Excel workbooks
are converted to CSV on the way.

Examples:
  # Show the report type of downloaded exports
  adsaudit classify ~/Downloads/*.csv

  # Copy them into ./data under their canonical names
  adsaudit classify --organize data ~/Downloads/*.csv ~/Downloads/*.xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runClassifyCmd,
	}

	cmd.Flags().StringP("organize", "O", "",
		"Copy recognised files into this directory under their canonical names")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing files when organizing")

	return cmd
}

// runClassifyCmd executes the classify command.
func runClassifyCmd(cmd *cobra.Command, args []string) error {
	organizeDir, err := cmd.Flags().GetString("organize")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if organizeDir != "" {
		if err := os.MkdirAll(organizeDir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	recognised := 0
	for _, path := range args {
		t := routeFile(path)
		fmt.Fprintf(out, "%s → %s (%s)\n", path, t, t.Label())
		if !t.Known() {
			continue
		}
		recognised++

		if organizeDir == "" {
			continue
		}
		dst := filepath.Join(organizeDir, t.FileName())
		if err := organizeFile(path, dst, force); err != nil {
			fmt.Fprintf(out, "  skipped: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "  saved as %s\n", dst)
	}

	fmt.Fprintf(out, "\nRecognised %d of %d files.\n", recognised, len(args))
	return nil
}

// routeFile returns the report type of path: by canonical file name when
// it matches one, otherwise by content.
func routeFile(path string) classify.ReportType {
	if t, ok := classify.FromFileName(path); ok {
		return t
	}
	return classify.Classify(path)
}

// organizeFile copies src to dst, converting Excel workbooks to CSV.
func organizeFile(src, dst string, force bool) error {
	if same, err := samePath(src, dst); err == nil && same {
		return nil
	}
	if !force {
		if _, err := os.Stat(dst); err == nil {
			return fmt.Errorf("%w: %s (use -f to overwrite)", errDestinationExists, dst)
		}
	}

	switch strings.ToLower(filepath.Ext(src)) {
	case ".xlsx", ".xlsm":
		return table.ConvertSpreadsheet(src, dst)
	}
	return copyFile(src, dst)
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

// copyFile copies src to dst with owner-only permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // src is chosen by the operator
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // dst is chosen by the operator
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
