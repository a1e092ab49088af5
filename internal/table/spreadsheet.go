package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// loadSpreadsheet reads the first worksheet of an Excel export. The
// header is the first row with at least MinHeaderFields non-empty cells;
// footer, blank-row and total-row rules are the same as for text exports.
func loadSpreadsheet(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFile, path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFile, path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	headerIdx := 0
	for i, row := range rows {
		if nonEmpty(row) >= MinHeaderFields {
			headerIdx = i
			break
		}
	}

	body := rows[headerIdx+1:]
	body = body[:max(0, len(body)-FooterLines)]

	return build(rows[headerIdx], body), nil
}

func nonEmpty(row []string) int {
	n := 0
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}

// ConvertSpreadsheet writes the first worksheet of the Excel export at src
// to dst as comma-separated text. Rows are copied as they are, banner and
// footer included, so Load(dst) yields the same table as Load(src).
func ConvertSpreadsheet(src, dst string) error {
	f, err := excelize.OpenFile(src)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnreadableFile, src, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, src)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnreadableFile, src, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // dst is chosen by the operator
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	w := csv.NewWriter(out)
	if err := w.WriteAll(rows); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return out.Close()
}
