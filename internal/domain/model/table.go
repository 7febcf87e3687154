package model

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO-8601 calendar date used on the wire and in the cache.
const DateLayout = "2006-01-02"

// Record is one row of the source table: a player's results for one day.
// A zero Date means the date is missing.
type Record struct {
	Date     time.Time
	Coach    string
	Player   string
	Club     string
	Measures map[string]decimal.NullDecimal
	Extra    map[string]string
}

// Measure returns the value of a measure and whether it is present.
func (r Record) Measure(name string) (decimal.Decimal, bool) {
	v, ok := r.Measures[name]
	if !ok || !v.Valid {
		return decimal.Zero, false
	}
	return v.Decimal, true
}

// MeasureOrZero treats a missing measure as zero, the way sums skip NaN.
func (r Record) MeasureOrZero(name string) decimal.Decimal {
	v, _ := r.Measure(name)
	return v
}

// HasDate reports whether the record carries a calendar date.
func (r Record) HasDate() bool {
	return !r.Date.IsZero()
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	out.Measures = maps.Clone(r.Measures)
	out.Extra = maps.Clone(r.Extra)
	return out
}

// Equal compares two records by value.
func (r Record) Equal(o Record) bool {
	if !r.Date.Equal(o.Date) || r.Coach != o.Coach || r.Player != o.Player || r.Club != o.Club {
		return false
	}
	if len(r.Measures) != len(o.Measures) || !maps.Equal(r.Extra, o.Extra) {
		return false
	}
	for k, v := range r.Measures {
		w, ok := o.Measures[k]
		if !ok || v.Valid != w.Valid {
			return false
		}
		if v.Valid && !v.Decimal.Equal(w.Decimal) {
			return false
		}
	}
	return true
}

// Table is an ordered sequence of records sharing one column schema.
// Columns holds canonical names in source order; Measures lists the columns
// that carry numeric values.
type Table struct {
	Columns  []string
	Measures []string
	Records  []Record
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// HasColumn reports whether name is part of the schema.
func (t *Table) HasColumn(name string) bool {
	return t != nil && slices.Contains(t.Columns, name)
}

// IsMeasure reports whether name is a declared measure column.
func (t *Table) IsMeasure(name string) bool {
	return t != nil && slices.Contains(t.Measures, name)
}

// Clone returns a deep copy. Tables handed out by the ingestion core are
// shared, so callers that want to mutate must clone first.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Columns:  slices.Clone(t.Columns),
		Measures: slices.Clone(t.Measures),
		Records:  make([]Record, len(t.Records)),
	}
	for i, r := range t.Records {
		out.Records[i] = r.Clone()
	}
	return out
}

// Equal compares schema and rows by value.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !slices.Equal(t.Columns, o.Columns) || !slices.Equal(t.Measures, o.Measures) {
		return false
	}
	return slices.EqualFunc(t.Records, o.Records, Record.Equal)
}

// DateRange returns the earliest and latest record dates. ok is false when no
// record carries a date.
func (t *Table) DateRange() (from, to time.Time, ok bool) {
	if t == nil {
		return time.Time{}, time.Time{}, false
	}
	for _, r := range t.Records {
		if !r.HasDate() {
			continue
		}
		if !ok || r.Date.Before(from) {
			from = r.Date
		}
		if !ok || r.Date.After(to) {
			to = r.Date
		}
		ok = true
	}
	return from, to, ok
}

// Validate checks the table invariant: every required column is present and
// at least one row carries a date.
func Validate(t *Table, measures []string) error {
	if t == nil {
		return fmt.Errorf("%w: nil table", ErrInvalidTable)
	}
	var missing []string
	for _, col := range RequiredColumns(measures) {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %w: %v", ErrInvalidTable, ErrMissingColumns, missing)
	}
	if !slices.ContainsFunc(t.Records, Record.HasDate) {
		return fmt.Errorf("%w: %w", ErrInvalidTable, ErrNoDatedRows)
	}
	return nil
}
