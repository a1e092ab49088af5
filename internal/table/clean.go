package table

import (
	"strconv"
	"strings"
)

// percentMarkers are stripped from percentage text before parsing.
// "< 10%" and "> 90%" appear in impression-share columns when the platform
// only reports a bound.
var percentMarkers = strings.NewReplacer("%", "", "< ", "", "<", "", ">", "", "--", "")

var currencyMarkers = strings.NewReplacer("$", "", ",", "", "--", "")

var numberMarkers = strings.NewReplacer(",", "", "--", "")

// CleanPercentage converts a percentage cell into a fraction.
//
// Text is stripped of "%", comparison markers and placeholder dashes and
// divided by 100 ("23.4%" becomes 0.234). A Number greater than 1 is
// treated as a bare percentage and divided by 100; a Number of 1 or less
// is assumed to already be a fraction and is returned unchanged.
func CleanPercentage(c Cell) Cell {
	switch c.kind {
	case KindNumber:
		if c.num > 1 {
			return Number(c.num / 100)
		}
		return c
	case KindText:
		v, ok := parseFloat(percentMarkers.Replace(c.text))
		if !ok {
			return Missing()
		}
		return Number(v / 100)
	default:
		return Missing()
	}
}

// CleanCurrency converts "$1,234.56" style text into a number.
func CleanCurrency(c Cell) Cell {
	return cleanWith(c, currencyMarkers)
}

// CleanNumber converts "1,234" style text into a number.
func CleanNumber(c Cell) Cell {
	return cleanWith(c, numberMarkers)
}

func cleanWith(c Cell, r *strings.Replacer) Cell {
	switch c.kind {
	case KindNumber:
		return c
	case KindText:
		v, ok := parseFloat(r.Replace(c.text))
		if !ok {
			return Missing()
		}
		return Number(v)
	default:
		return Missing()
	}
}

// parseFloat parses a trimmed decimal. "nan" and "inf" spellings are
// rejected so that Number never carries a non-finite value.
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	c := Number(v)
	if c.IsMissing() {
		return 0, false
	}
	return v, true
}
