// Package report filters a loaded table and builds the dashboard summaries.
// Functions here only read the table they are given.
package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/okian/profitboard/internal/domain/model"
)

// All disables a coach or player filter.
const All = ""

// Preset selects the reporting period.
type Preset string

const (
	PresetCurrentMonth Preset = "current_month"
	PresetLast30Days   Preset = "last_30_days"
	PresetAllTime      Preset = "all_time"
	PresetCustom       Preset = "custom"
)

// ParsePreset validates a preset name. An empty name means PresetAllTime.
func ParsePreset(s string) (Preset, error) {
	switch p := Preset(strings.TrimSpace(s)); p {
	case "":
		return PresetAllTime, nil
	case PresetCurrentMonth, PresetLast30Days, PresetAllTime, PresetCustom:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPreset, s)
	}
}

// GroupKey identifies one (coach, player) row of the player summary.
type GroupKey struct {
	Coach  string `json:"coach"`
	Player string `json:"player"`
}

// Query is one dashboard request.
type Query struct {
	Preset Preset
	// From and To bound a custom period, inclusive. A zero bound falls back
	// to the earliest or latest date in the table.
	From, To time.Time
	Coach    string
	Player   string
	// Selected limits the club table, totals and series to these groups.
	Selected []GroupKey
}

// Period resolves the query's date bounds against the table and today.
func (q Query) Period(t *model.Table, today time.Time) (from, to time.Time, err error) {
	today = civil(today)
	minDate, maxDate, ok := t.DateRange()

	switch q.Preset {
	case PresetCurrentMonth:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), today, nil
	case PresetLast30Days:
		return today.AddDate(0, 0, -30), today, nil
	case PresetAllTime, "":
		if !ok {
			return today, today, nil
		}
		return minDate, maxDate, nil
	case PresetCustom:
		from, to = civil(q.From), civil(q.To)
		if q.From.IsZero() {
			from = minDate
		}
		if q.To.IsZero() {
			to = maxDate
		}
		if !ok && (q.From.IsZero() || q.To.IsZero()) {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: open bound on an empty table", ErrInvalidRange)
		}
		if from.After(to) {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %s after %s", ErrInvalidRange,
				from.Format(model.DateLayout), to.Format(model.DateLayout))
		}
		return from, to, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPreset, q.Preset)
	}
}

// CacheKey is a stable identity for memoizing the report of q. today is part
// of the key because relative presets move with it.
func (q Query) CacheKey(today time.Time) string {
	sel := make([]string, len(q.Selected))
	for i, k := range q.Selected {
		sel[i] = k.Coach + "\x1f" + k.Player
	}
	slices.Sort(sel)
	sel = slices.Compact(sel)

	var b strings.Builder
	b.WriteString(string(q.Preset))
	b.WriteByte('|')
	b.WriteString(civil(today).Format(model.DateLayout))
	if q.Preset == PresetCustom {
		b.WriteByte('|')
		b.WriteString(formatDate(q.From))
		b.WriteByte('|')
		b.WriteString(formatDate(q.To))
	}
	b.WriteByte('|')
	b.WriteString(q.Coach)
	b.WriteByte('|')
	b.WriteString(q.Player)
	b.WriteByte('|')
	b.WriteString(strings.Join(sel, "\x1e"))
	return b.String()
}

// Apply returns the records of t inside the query period that match the
// coach and player filters, as a new table.
func Apply(t *model.Table, q Query, today time.Time) (*model.Table, error) {
	from, to, err := q.Period(t, today)
	if err != nil {
		return nil, err
	}
	out := &model.Table{
		Columns:  slices.Clone(t.Columns),
		Measures: slices.Clone(t.Measures),
	}
	for _, r := range t.Records {
		if !inPeriod(r, from, to) {
			continue
		}
		if q.Coach != All && r.Coach != q.Coach {
			continue
		}
		if q.Player != All && r.Player != q.Player {
			continue
		}
		out.Records = append(out.Records, r.Clone())
	}
	return out, nil
}

// Filters holds the choices offered for the current period.
type Filters struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Coaches []string `json:"coaches"`
	Players []string `json:"players"`
}

// Options lists the coaches active in the query period and the players of
// the selected coach (or of every coach), both sorted.
func Options(t *model.Table, q Query, today time.Time) (Filters, error) {
	from, to, err := q.Period(t, today)
	if err != nil {
		return Filters{}, err
	}
	coaches := map[string]struct{}{}
	players := map[string]struct{}{}
	for _, r := range t.Records {
		if !inPeriod(r, from, to) {
			continue
		}
		coaches[r.Coach] = struct{}{}
		if q.Coach == All || r.Coach == q.Coach {
			players[r.Player] = struct{}{}
		}
	}
	return Filters{
		From:    from.Format(model.DateLayout),
		To:      to.Format(model.DateLayout),
		Coaches: sortedKeys(coaches),
		Players: sortedKeys(players),
	}, nil
}

func inPeriod(r model.Record, from, to time.Time) bool {
	return r.HasDate() && !r.Date.Before(from) && !r.Date.After(to)
}

func civil(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return civil(t).Format(model.DateLayout)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
