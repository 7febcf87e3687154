// Package normalize coerces locale-formatted spreadsheet cells into typed values.
//
// Nothing here returns an error: a cell that cannot be interpreted becomes
// "missing" and the caller decides what a missing value means for the row.
package normalize

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// primaryDateLayouts is the sheet's own format, day.month.year.
var primaryDateLayouts = []string{
	"02.01.2006",
	"2.1.2006",
	"02.01.06",
	"2.1.06",
}

// fallbackDateLayouts are tried when the primary format fails. Numeric forms
// are always day-first; month-first layouts are never attempted.
var fallbackDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"02/01/2006",
	"2/1/2006",
	"02/01/06",
	"02-01-2006",
	"2-1-2006",
	"2006/01/02",
	"2006.01.02",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon, 02 Jan 2006",
}

// Date parses a sheet date cell. The result is a UTC midnight calendar date;
// ok is false when neither the primary nor the fallback layouts match.
func Date(raw string) (time.Time, bool) {
	s := strings.TrimSpace(strings.NewReplacer("\u00a0", " ", "\u202f", " ").Replace(raw))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range primaryDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil(t), true
		}
	}
	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil(t), true
		}
	}
	return time.Time{}, false
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MissingMarker is the sheet's explicit "no value" placeholder.
const MissingMarker = "-"

// spaceStripper removes every space-like grouping character the sheet emits.
var spaceStripper = strings.NewReplacer(
	"\u00a0", "", // no-break space
	"\u202f", "", // narrow no-break space
	"\u2009", "", // thin space
	" ", "",
	"\t", "",
	"'", "",
)

// Number parses a locale-formatted numeric cell into a decimal. Empty cells
// and the "-" placeholder are missing, as is anything that is not a finite
// number once separators are cleaned up.
//
// Separator rules: when both ',' and '.' occur the right-most one is the
// decimal separator and the other groups thousands; a lone ',' is a decimal
// comma unless it repeats; a repeated '.' groups thousands.
func Number(raw string) decimal.NullDecimal {
	s := spaceStripper.Replace(strings.TrimSpace(raw))
	if s == "" || s == MissingMarker {
		return decimal.NullDecimal{}
	}

	s = strings.Replace(s, "\u2212", "-", 1)
	s = normalizeSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return finite(d)
}

// float64 bounds as decimal magnitudes (exponent plus coefficient digits).
const (
	maxMagnitude = 309
	minMagnitude = -323
)

// finite drops values a float64 cannot hold. Overflow is missing, underflow
// is zero. The check runs on the exponent so huge exponents are never
// expanded into digits.
func finite(d decimal.Decimal) decimal.NullDecimal {
	if d.IsZero() {
		return decimal.NewNullDecimal(decimal.Zero)
	}
	mag := int64(d.Exponent()) + int64(d.NumDigits())
	switch {
	case mag > maxMagnitude:
		return decimal.NullDecimal{}
	case mag == maxMagnitude && math.IsInf(d.InexactFloat64(), 0):
		return decimal.NullDecimal{}
	case mag < minMagnitude:
		return decimal.NewNullDecimal(decimal.Zero)
	}
	return decimal.NewNullDecimal(d)
}

func normalizeSeparators(s string) string {
	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")
	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// 1.234,50
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		// 1,234.50
		return strings.ReplaceAll(s, ",", "")
	case commas == 1:
		return strings.Replace(s, ",", ".", 1)
	case commas > 1:
		return strings.ReplaceAll(s, ",", "")
	case dots > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}
