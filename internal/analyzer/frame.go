package analyzer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/nao1215/adsaudit/internal/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// frame wraps a loaded table with the column and cleaning helpers every
// analyzer needs.
type frame struct {
	t *table.Table
}

func newFrame(t *table.Table) frame {
	return frame{t: t}
}

func (f frame) len() int {
	return f.t.Len()
}

func (f frame) col(candidates ...string) table.Column {
	return f.t.FindCol(candidates...)
}

// text returns the cell at row i as trimmed text, empty when missing.
func (f frame) text(i int, c table.Column) string {
	return strings.TrimSpace(f.t.Value(i, c).String())
}

// lower returns text(i, c) lowercased.
func (f frame) lower(i int, c table.Column) string {
	return strings.ToLower(f.text(i, c))
}

// label returns text(i, c) or fallback when the cell is empty.
func (f frame) label(i int, c table.Column, fallback string) string {
	if s := f.text(i, c); s != "" {
		return s
	}
	return fallback
}

func (f frame) currency(c table.Column) series {
	return f.clean(c, table.CleanCurrency)
}

func (f frame) number(c table.Column) series {
	return f.clean(c, table.CleanNumber)
}

func (f frame) percent(c table.Column) series {
	return f.clean(c, table.CleanPercentage)
}

func (f frame) clean(c table.Column, cleaner func(table.Cell) table.Cell) series {
	if !c.Present() {
		return series{}
	}
	s := series{
		present: true,
		vals:    make([]float64, f.len()),
		ok:      make([]bool, f.len()),
	}
	for i := range s.vals {
		s.vals[i], s.ok[i] = cleaner(f.t.Value(i, c)).Float()
	}
	return s
}

// series is a cleaned numeric column. An absent column behaves as all
// missing, and a missing value contributes zero to rules.
type series struct {
	present bool
	vals    []float64
	ok      []bool
}

// at returns the value at row i, or 0 when missing or absent.
func (s series) at(i int) float64 {
	if !s.present || !s.ok[i] {
		return 0
	}
	return s.vals[i]
}

// has reports whether row i carries a value.
func (s series) has(i int) bool {
	return s.present && s.ok[i]
}

func (s series) sum() float64 {
	total := 0.0
	for i := range s.vals {
		if s.ok[i] {
			total += s.vals[i]
		}
	}
	return total
}

// mean averages the non-missing values. It is 0 when there are none.
func (s series) mean() float64 {
	total, n := 0.0, 0
	for i := range s.vals {
		if s.ok[i] {
			total += s.vals[i]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// safeDivide returns n/d, or 0 when d is zero.
func safeDivide(n, d float64) float64 {
	if d == 0 || math.IsNaN(d) {
		return 0
	}
	return n / d
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// group is a set of rows sharing the same key values.
type group struct {
	keys []string
	rows []int
}

// allRows returns the indices of every row.
func (f frame) allRows() []int {
	rows := make([]int, f.len())
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// filter returns the rows for which keep reports true.
func (f frame) filter(keep func(i int) bool) []int {
	rows := make([]int, 0, f.len())
	for i := 0; i < f.len(); i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	return rows
}

// groupBy partitions rows by the text of the given columns. Rows with an
// empty key cell are dropped, and groups are ordered by their keys.
// Rows keep their original order within a group.
func (f frame) groupBy(rows []int, cols ...table.Column) []group {
	index := make(map[string]int)
	groups := make([]group, 0)
	for _, i := range rows {
		keys := make([]string, len(cols))
		skip := false
		for k, c := range cols {
			keys[k] = f.text(i, c)
			if keys[k] == "" {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		id := strings.Join(keys, "\x00")
		j, ok := index[id]
		if !ok {
			j = len(groups)
			index[id] = j
			groups = append(groups, group{keys: keys})
		}
		groups[j].rows = append(groups[j].rows, i)
	}
	sort.Slice(groups, func(a, b int) bool {
		ka, kb := groups[a].keys, groups[b].keys
		for k := range ka {
			if ka[k] != kb[k] {
				return ka[k] < kb[k]
			}
		}
		return false
	})
	return groups
}

func (s series) sumOf(rows []int) float64 {
	total := 0.0
	for _, i := range rows {
		total += s.at(i)
	}
	return total
}

func (s series) meanOf(rows []int) float64 {
	total, n := 0.0, 0
	for _, i := range rows {
		if s.has(i) {
			total += s.vals[i]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// printer formats amounts with thousands separators.
var printer = message.NewPrinter(language.English)

// money renders v as "$1,234.56".
func money(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

// count renders v as "1,234".
func count(v float64) string {
	return printer.Sprintf("%.0f", v)
}

// pct renders a fraction as a percentage with the given decimals.
func pct(v float64, places int) string {
	return fmt.Sprintf("%.*f%%", places, v*100)
}

// signedPct renders a percentage point value as "+25%" or "-10%".
func signedPct(v float64) string {
	return fmt.Sprintf("%+.0f%%", v)
}

// containsAny reports whether s contains one of the fragments.
func containsAny(s string, fragments ...string) bool {
	for _, frag := range fragments {
		if strings.Contains(s, frag) {
			return true
		}
	}
	return false
}

// formatCounts renders a tally as "{a: 1, b: 2}" with sorted keys.
func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %d", k, m[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
