package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// FooterLines is the number of trailing lines every export is assumed to
// carry (summary rows, export timestamps) and that Load discards.
const FooterLines = 2

// MinHeaderFields is the minimum number of fields a line needs under some
// candidate delimiter to be taken as the header row.
const MinHeaderFields = 3

// sniffSampleLines is the number of non-blank lines, header included,
// inspected when detecting the delimiter.
const sniffSampleLines = 6

// Delimiters lists the candidate field separators in preference order.
var Delimiters = []rune{',', ';', '\t', '|'}

// naValues are textual spellings read as Missing, matching what common
// spreadsheet and dataframe tools treat as not-available.
var naValues = map[string]struct{}{
	"":     {},
	"#N/A": {},
	"N/A":  {},
	"n/a":  {},
	"NA":   {},
	"NULL": {},
	"null": {},
	"NaN":  {},
	"nan":  {},
	"None": {},
	"<NA>": {},
	"#NA":  {},
	"-NaN": {},
	"-nan": {},
}

// thousandsNumber matches integers or decimals written with comma
// thousands separators, e.g. "1,234" or "-12,345.6".
var thousandsNumber = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// utf8BOM is the byte-order mark some exporters prepend.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads the export at path and returns a normalized Table.
//
// Delimited text files go through encoding detection, header detection
// and delimiter sniffing. Files ending in .xlsx or .xlsm are read from
// their first worksheet. In both cases the last FooterLines lines are
// discarded, column names are trimmed and blank or "Total" rows are
// dropped.
func Load(path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFile, path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return loadSpreadsheet(path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFile, path, err)
	}

	text, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return Parse(text)
}

// textDecoder turns raw bytes into text, reporting false when the bytes
// are not valid in its encoding.
type textDecoder struct {
	name   string
	decode func([]byte) (string, bool)
}

// decoders are tried in order until one succeeds.
var decoders = []textDecoder{
	{
		name: "utf-8-sig",
		decode: func(b []byte) (string, bool) {
			if !bytes.HasPrefix(b, utf8BOM) || !utf8.Valid(b) {
				return "", false
			}
			out, err := unicode.UTF8BOM.NewDecoder().Bytes(b)
			if err != nil {
				return "", false
			}
			return string(out), true
		},
	},
	{
		name: "utf-8",
		decode: func(b []byte) (string, bool) {
			if !utf8.Valid(b) {
				return "", false
			}
			return string(b), true
		},
	},
	{
		name: "latin-1",
		decode: func(b []byte) (string, bool) {
			out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
			if err != nil {
				return "", false
			}
			return string(out), true
		},
	},
}

// Decode converts raw file content to text, trying UTF-8 with a
// byte-order mark, plain UTF-8 and Latin-1 in that order.
func Decode(data []byte) (string, error) {
	for _, d := range decoders {
		if text, ok := d.decode(data); ok {
			return text, nil
		}
	}
	return "", ErrUnreadableFile
}

// Parse builds a Table from decoded delimited text.
func Parse(text string) (*Table, error) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, ErrEmptyFile
	}

	headerIdx := findHeader(lines)
	delim := SniffDelimiter(lines[headerIdx:])

	header, err := parseLine(strings.TrimPrefix(lines[headerIdx], "\ufeff"), delim)
	if err != nil || len(header) == 0 {
		return nil, fmt.Errorf("%w: header row cannot be parsed", ErrUnreadableFile)
	}

	body := lines[headerIdx+1:]
	body = body[:max(0, len(body)-FooterLines)]

	records := make([][]string, 0, len(body))
	for _, line := range body {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields, err := parseLine(line, delim)
		if err != nil {
			continue
		}
		records = append(records, fields)
	}

	return build(header, records), nil
}

// splitLines splits text on line breaks. A single trailing newline does
// not produce an extra empty line.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// findHeader returns the index of the first non-blank line that splits
// into at least MinHeaderFields fields under any candidate delimiter.
// Banner lines such as report titles and date ranges are skipped. When no
// line qualifies the first line is used.
func findHeader(lines []string) int {
	for i, line := range lines {
		stripped := strings.Trim(strings.TrimSpace(line), "\ufeff")
		if stripped == "" {
			continue
		}
		for _, d := range Delimiters {
			if len(strings.Split(stripped, string(d))) >= MinHeaderFields {
				return i
			}
		}
	}
	return 0
}

// SniffDelimiter picks the field separator for lines, which must start
// with the header row. A delimiter is accepted when it yields the same
// number of fields (at least two) on the header and each of the following
// non-blank sample lines. Otherwise the delimiter producing the most
// header fields wins.
func SniffDelimiter(lines []string) rune {
	sample := make([]string, 0, sniffSampleLines)
	for _, l := range lines {
		if len(sample) == sniffSampleLines {
			break
		}
		if strings.TrimSpace(l) != "" {
			sample = append(sample, l)
		}
	}
	if len(sample) == 0 {
		return Delimiters[0]
	}

	for _, d := range Delimiters {
		if consistentFields(sample, d) {
			return d
		}
	}

	best, bestCount := Delimiters[0], 0
	for _, d := range Delimiters {
		if n := len(strings.Split(sample[0], string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func consistentFields(sample []string, d rune) bool {
	want := -1
	for _, line := range sample {
		fields, err := parseLine(line, d)
		if err != nil || len(fields) < 2 {
			return false
		}
		if want == -1 {
			want = len(fields)
		} else if len(fields) != want {
			return false
		}
	}
	return true
}

// parseLine splits one line into fields with CSV quoting rules.
func parseLine(line string, delim rune) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	return fields, err
}

// build converts raw records into a Table. Records with more fields than
// the header are malformed and skipped; shorter ones are padded.
func build(header []string, records [][]string) *Table {
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := make([][]Cell, 0, len(records))
	for _, rec := range records {
		if len(rec) > len(columns) {
			continue
		}
		row := make([]Cell, len(columns))
		blank := true
		for i, field := range rec {
			row[i] = ParseCell(field)
			if !row[i].IsMissing() {
				blank = false
			}
		}
		if blank || isTotalRow(row) {
			continue
		}
		rows = append(rows, row)
	}
	return New(columns, rows)
}

// isTotalRow reports whether the first cell starts with "total", the
// marker exporters use for aggregate rows.
func isTotalRow(row []Cell) bool {
	if len(row) == 0 {
		return false
	}
	return strings.HasPrefix(strings.ToLower(row[0].String()), "total")
}

// ParseCell interprets a raw field. Not-available spellings become
// Missing, plain or comma-grouped numbers become Number and everything
// else is kept as Text.
func ParseCell(field string) Cell {
	trimmed := strings.TrimSpace(field)
	if _, ok := naValues[trimmed]; ok {
		return Missing()
	}
	if thousandsNumber.MatchString(trimmed) {
		trimmed = strings.ReplaceAll(trimmed, ",", "")
	}
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil && isDecimal(trimmed) {
		return Number(v)
	}
	return Text(field)
}

// isDecimal rejects spellings ParseFloat accepts but exports never use
// as numbers, such as "Inf", hex floats or digit underscores.
func isDecimal(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return true
}
