package service

import (
	"context"
	"fmt"

	"github.com/okian/profitboard/internal/adapters/cache"
	"github.com/okian/profitboard/internal/adapters/sheets"
	"github.com/okian/profitboard/internal/config"
	"github.com/okian/profitboard/internal/ingest"
	"github.com/okian/profitboard/pkg/logger"
)

// Grid picks the spreadsheet collaborator: a workbook file when one is
// configured, otherwise the Sheets API.
func Grid(ctx context.Context, cfg *config.Config) (sheets.Grid, error) {
	if cfg.WorkbookPath != "" {
		return sheets.NewWorkbook(cfg.WorkbookPath), nil
	}
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("%w: spreadsheet_id or workbook_path is required", config.ErrInvalidConfig)
	}
	opts, err := sheets.Credentials{File: cfg.CredentialsFile, JSON: cfg.CredentialsJSON}.ClientOptions()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	return sheets.NewGoogle(ctx, cfg.SpreadsheetID, opts...)
}

// Source translates configuration into a fetcher source.
func Source(cfg *config.Config) ingest.Source {
	return ingest.Source{
		SpreadsheetID: cfg.SpreadsheetID,
		Range:         cfg.Range,
		Measures:      cfg.Measures,
		Rename:        cfg.Rename,
		CoachSentinel: cfg.CoachSentinel,
	}
}

// NewFromConfig wires grid, fetcher, cache and loader into a Service.
func NewFromConfig(cfg *config.Config, grid sheets.Grid, log logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.Nop()
	}
	fetcher := ingest.NewFetcher(grid, Source(cfg), ingest.WithLogger(log.Named("ingest")))
	store := cache.New(cfg.CachePath,
		cache.WithTTL(cfg.CacheTTL),
		cache.WithLogger(log.Named("cache")),
	)
	loader := NewLoader(fetcher, store,
		WithMeasures(cfg.Measures),
		WithLoaderLogger(log.Named("loader")),
	)
	return New(loader,
		WithReportCacheSize(cfg.ReportCacheSize),
		WithRefreshInterval(cfg.RefreshInterval),
		WithLogger(log.Named("service")),
	)
}
