package table

import (
	"encoding/json"
	"math"
	"strconv"
)

// Kind identifies the variant held by a Cell.
type Kind int

const (
	// KindMissing marks an absent or unparseable value.
	KindMissing Kind = iota

	// KindNumber marks a numeric value.
	KindNumber

	// KindText marks a raw textual value.
	KindText
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Cell is a single table value. The zero value is Missing.
type Cell struct {
	kind Kind
	num  float64
	text string
}

// Missing returns the missing-value sentinel.
func Missing() Cell {
	return Cell{}
}

// Number returns a numeric cell. NaN and infinities are stored as Missing
// so that every numeric cell is usable in arithmetic.
func Number(v float64) Cell {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Cell{}
	}
	return Cell{kind: KindNumber, num: v}
}

// Text returns a textual cell.
func Text(s string) Cell {
	return Cell{kind: KindText, text: s}
}

// Kind returns the variant held by the cell.
func (c Cell) Kind() Kind {
	return c.kind
}

// IsMissing reports whether the cell is the missing sentinel.
func (c Cell) IsMissing() bool {
	return c.kind == KindMissing
}

// Float returns the numeric value and true for Number cells.
func (c Cell) Float() (float64, bool) {
	if c.kind != KindNumber {
		return 0, false
	}
	return c.num, true
}

// String renders the cell as text. Missing renders as the empty string.
func (c Cell) String() string {
	switch c.kind {
	case KindNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	case KindText:
		return c.text
	default:
		return ""
	}
}

// MarshalJSON encodes Missing as null, Number as a JSON number and Text as
// a JSON string.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case KindNumber:
		return json.Marshal(c.num)
	case KindText:
		return json.Marshal(c.text)
	default:
		return []byte("null"), nil
	}
}
