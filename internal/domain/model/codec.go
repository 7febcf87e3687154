package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Row is the row-oriented wire form of a record: canonical column name to
// value. Dates are ISO-8601 strings, measures are JSON numbers or null and
// every other column is a string.
type Row map[string]any

// Rows converts the table into its row-oriented wire form.
func (t *Table) Rows() []Row {
	if t == nil {
		return nil
	}
	rows := make([]Row, len(t.Records))
	for i, r := range t.Records {
		row := make(Row, len(t.Columns))
		for k, v := range r.Extra {
			row[k] = v
		}
		if r.HasDate() {
			row[ColDate] = r.Date.Format(DateLayout)
		} else {
			row[ColDate] = nil
		}
		row[ColCoach] = r.Coach
		row[ColPlayer] = r.Player
		row[ColClub] = r.Club
		for _, m := range t.Measures {
			if v, ok := r.Measure(m); ok {
				row[m] = json.Number(v.String())
			} else {
				row[m] = nil
			}
		}
		rows[i] = row
	}
	return rows
}

// FromRows rebuilds a table from its wire form. Any malformed value fails the
// whole decode; callers treat that as a corrupt payload.
func FromRows(columns, measures []string, rows []json.RawMessage) (*Table, error) {
	t := &Table{
		Columns:  append([]string(nil), columns...),
		Measures: append([]string(nil), measures...),
		Records:  make([]Record, 0, len(rows)),
	}
	for i, raw := range rows {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrDecode, i, err)
		}
		rec, err := decodeRecord(fields, t.Measures)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrDecode, i, err)
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

func decodeRecord(fields map[string]json.RawMessage, measures []string) (Record, error) {
	rec := Record{Measures: make(map[string]decimal.NullDecimal, len(measures))}
	isMeasure := make(map[string]bool, len(measures))
	for _, m := range measures {
		isMeasure[m] = true
		rec.Measures[m] = decimal.NullDecimal{}
	}

	for key, raw := range fields {
		switch {
		case key == ColDate:
			d, err := decodeDate(raw)
			if err != nil {
				return Record{}, err
			}
			rec.Date = d
		case isMeasure[key]:
			v, err := decodeMeasure(raw)
			if err != nil {
				return Record{}, fmt.Errorf("%s: %w", key, err)
			}
			rec.Measures[key] = v
		default:
			var s string
			if !isNull(raw) {
				if err := json.Unmarshal(raw, &s); err != nil {
					return Record{}, fmt.Errorf("%s: %w", key, err)
				}
			}
			switch key {
			case ColCoach:
				rec.Coach = s
			case ColPlayer:
				rec.Player = s
			case ColClub:
				rec.Club = s
			default:
				if rec.Extra == nil {
					rec.Extra = make(map[string]string)
				}
				rec.Extra[key] = s
			}
		}
	}
	return rec, nil
}

func decodeDate(raw json.RawMessage) (time.Time, error) {
	if isNull(raw) {
		return time.Time{}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	return time.Parse(DateLayout, s)
}

// decodeMeasure accepts a JSON number, a numeric string or null.
func decodeMeasure(raw json.RawMessage) (decimal.NullDecimal, error) {
	if isNull(raw) {
		return decimal.NullDecimal{}, nil
	}
	s := string(bytes.TrimSpace(raw))
	if len(s) > 0 && s[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.NullDecimal{}, err
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	if exp := d.Exponent(); !d.IsZero() && (exp > maxExponent || exp < -maxExponent) {
		return decimal.NullDecimal{}, fmt.Errorf("measure %q out of range", s)
	}
	return decimal.NewNullDecimal(d), nil
}

// maxExponent bounds stored measures to what a float64 can carry.
const maxExponent = 330

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
