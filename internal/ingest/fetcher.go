// Package ingest turns a raw spreadsheet grid into a normalized table.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/profitboard/internal/adapters/sheets"
	"github.com/okian/profitboard/internal/domain/model"
	"github.com/okian/profitboard/internal/domain/normalize"
	"github.com/okian/profitboard/pkg/logger"
	"github.com/okian/profitboard/pkg/metrics"
	"github.com/shopspring/decimal"
)

// Drop reasons reported in Stats and metrics.
const (
	DropBadDate       = "bad_date"
	DropSentinelCoach = "sentinel_coach"
)

// Source parameterizes one sheet layout. Sheets that differ only in
// spreadsheet id, range or header suffixes share a Fetcher with different
// Source values.
type Source struct {
	SpreadsheetID string
	Range         string
	// Measures lists canonical measure columns to coerce to numbers.
	Measures []string
	// Rename maps source headers to canonical column names.
	Rename map[string]string
	// CoachSentinel marks placeholder rows to exclude.
	CoachSentinel string
}

// DefaultSource is the player sheet layout.
func DefaultSource() Source {
	return Source{
		Range:         "pivot_result",
		Measures:      model.DefaultMeasures(),
		Rename:        model.DefaultRename(),
		CoachSentinel: "0",
	}
}

// Stats describes what one pull did to the raw grid.
type Stats struct {
	RawRows  int
	Rows     int
	Dropped  map[string]int
	Duration time.Duration
}

// Fetcher pulls one range from a spreadsheet collaborator and normalizes it.
type Fetcher struct {
	grid      sheets.Grid
	src       Source
	isMeasure map[string]bool
	logger    logger.Logger
	now       func() time.Time
}

// Option applies a configuration option to the Fetcher.
type Option func(*Fetcher)

// WithLogger sets a custom logger for the fetcher.
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithClock overrides time.Now for latency measurements.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFetcher builds a Fetcher for src backed by grid.
func NewFetcher(grid sheets.Grid, src Source, opts ...Option) *Fetcher {
	if src.Range == "" {
		src.Range = "pivot_result"
	}
	if src.Measures == nil {
		src.Measures = model.DefaultMeasures()
	}
	f := &Fetcher{
		grid:      grid,
		src:       src,
		isMeasure: make(map[string]bool, len(src.Measures)),
		logger:    logger.Nop(),
		now:       time.Now,
	}
	for _, m := range src.Measures {
		f.isMeasure[m] = true
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Measures returns the declared measure columns.
func (f *Fetcher) Measures() []string {
	return append([]string(nil), f.src.Measures...)
}

// Fetch pulls the range and returns a table satisfying the table invariant,
// or an error wrapping ErrSourceUnavailable, ErrEmptySource or ErrValidation.
func (f *Fetcher) Fetch(ctx context.Context) (*model.Table, error) {
	tbl, _, err := f.FetchStats(ctx)
	return tbl, err
}

// FetchStats is Fetch that also reports row counts for the pull.
func (f *Fetcher) FetchStats(ctx context.Context) (*model.Table, Stats, error) {
	const op = "ingest.fetch"
	start := f.now()

	tbl, stats, err := f.fetch(ctx)
	stats.Duration = f.now().Sub(start)
	metrics.RecordFetch(outcome(err), float64(stats.Duration.Milliseconds()))
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", op, err)
	}

	for reason, n := range stats.Dropped {
		metrics.RecordRowsDropped(reason, n)
	}
	f.logger.Info(ctx, "spreadsheet pulled",
		logger.String("range", f.src.Range),
		logger.Int("raw_rows", stats.RawRows),
		logger.Int("rows", stats.Rows),
		logger.Int("dropped_bad_date", stats.Dropped[DropBadDate]),
		logger.Int("dropped_sentinel_coach", stats.Dropped[DropSentinelCoach]),
		logger.Duration("took", stats.Duration),
	)
	return tbl, stats, nil
}

func (f *Fetcher) fetch(ctx context.Context) (*model.Table, Stats, error) {
	stats := Stats{Dropped: map[string]int{}}

	grid, err := f.grid.Values(ctx, f.src.Range)
	if err != nil {
		return nil, stats, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	if len(grid) < 2 {
		return nil, stats, fmt.Errorf("%w: range %q", ErrEmptySource, f.src.Range)
	}
	stats.RawRows = len(grid) - 1

	header := f.header(grid[0])
	tbl := &model.Table{
		Columns:  schema(header, f.src.Measures),
		Measures: append([]string(nil), f.src.Measures...),
		Records:  make([]model.Record, 0, len(grid)-1),
	}

	for _, raw := range grid[1:] {
		rec, reason := f.record(header, raw)
		if reason != "" {
			stats.Dropped[reason]++
			continue
		}
		tbl.Records = append(tbl.Records, rec)
	}
	stats.Rows = len(tbl.Records)

	if err := model.Validate(tbl, f.src.Measures); err != nil {
		return nil, stats, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return tbl, stats, nil
}

// header renames source headers to canonical names. The first column is the
// date column regardless of its title.
func (f *Fetcher) header(row []string) []string {
	out := make([]string, len(row))
	for i, h := range row {
		h = strings.TrimSpace(h)
		if canonical, ok := f.src.Rename[h]; ok {
			h = canonical
		}
		out[i] = h
	}
	if len(out) > 0 {
		out[0] = model.ColDate
	}
	return out
}

// schema appends declared measures absent from the header so every table
// carries the full measure set.
func schema(header, measures []string) []string {
	cols := append([]string(nil), header...)
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		seen[c] = true
	}
	for _, m := range measures {
		if !seen[m] {
			cols = append(cols, m)
		}
	}
	return cols
}

// record converts one raw row. A non-empty reason means the row is dropped.
func (f *Fetcher) record(header, raw []string) (model.Record, string) {
	rec := model.Record{Measures: make(map[string]decimal.NullDecimal, len(f.src.Measures))}
	for _, m := range f.src.Measures {
		rec.Measures[m] = decimal.NullDecimal{}
	}

	var coachRaw string
	for i, col := range header {
		cell := cellValue(raw, i)
		switch {
		case i == 0:
			d, ok := normalize.Date(cell)
			if !ok {
				return model.Record{}, DropBadDate
			}
			rec.Date = d
		case col == model.ColCoach:
			coachRaw = cell
			rec.Coach = strings.TrimSpace(cell)
		case col == model.ColPlayer:
			rec.Player = strings.TrimSpace(cell)
		case col == model.ColClub:
			rec.Club = strings.TrimSpace(cell)
		case f.isMeasure[col]:
			rec.Measures[col] = normalize.Number(cell)
		case col == "":
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[col] = cell
		}
	}

	if f.src.CoachSentinel != "" && coachRaw == f.src.CoachSentinel {
		return model.Record{}, DropSentinelCoach
	}
	return rec, ""
}

// cellValue reads a cell from a possibly ragged row.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrEmptySource):
		return "empty_source"
	case errors.Is(err, ErrValidation):
		return "validation_failed"
	default:
		return "source_unavailable"
	}
}
