package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileName returns the report file name for a run finished at now,
// e.g. "report_20260301_093000.md".
func FileName(now time.Time, ext string) string {
	return "report_" + now.Format("20060102_150405") + ext
}

// Save writes content to a timestamped report file in dir, creating dir
// when needed, and returns the file path.
func Save(dir string, content []byte, ext string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, FileName(now, ext))
	if err := os.WriteFile(path, content, 0600); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
