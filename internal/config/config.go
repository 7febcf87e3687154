// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and PROFITBOARD_* environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/okian/profitboard/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SpreadsheetID identifies the Google Sheets document.
	SpreadsheetID string `koanf:"spreadsheet_id"`

	// Range is the sheet range read by the fetcher.
	Range string `koanf:"range"`

	// CredentialsFile points at a service-account key. CredentialsJSON holds
	// the key inline and wins when both are set.
	CredentialsFile string `koanf:"credentials_file"`
	CredentialsJSON string `koanf:"credentials_json"`

	// WorkbookPath reads an exported .xlsx/.xls file instead of the API.
	WorkbookPath string `koanf:"workbook_path"`

	// CachePath is the JSON cache file location.
	CachePath string `koanf:"cache_path"`

	// CacheTTL is the cache freshness window.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// RefreshInterval forces a background reload; 0 disables it.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// Measures lists canonical measure columns.
	Measures []string `koanf:"measures"`

	// Rename maps sheet headers to canonical column names.
	Rename map[string]string `koanf:"rename"`

	// CoachSentinel marks placeholder rows; empty keeps every row.
	CoachSentinel string `koanf:"coach_sentinel"`

	// ReportCacheSize bounds the memoized report LRU.
	ReportCacheSize int `koanf:"report_cache_size"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":8501",
		Range:           "pivot_result",
		CachePath:       ".cache/profitboard/data.json",
		CacheTTL:        24 * time.Hour,
		Measures:        model.DefaultMeasures(),
		Rename:          model.DefaultRename(),
		CoachSentinel:   "0",
		ReportCacheSize: 256,
	}
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.CachePath == "":
		return fmt.Errorf("%w: cache_path must not be empty", ErrInvalidConfig)
	case c.CacheTTL <= 0:
		return fmt.Errorf("%w: cache_ttl must be positive", ErrInvalidConfig)
	case c.RefreshInterval < 0:
		return fmt.Errorf("%w: refresh_interval must not be negative", ErrInvalidConfig)
	case c.ReportCacheSize <= 0:
		return fmt.Errorf("%w: report_cache_size must be positive", ErrInvalidConfig)
	case len(c.Measures) == 0:
		return fmt.Errorf("%w: measures must not be empty", ErrInvalidConfig)
	case !slices.Contains([]string{"text", "json"}, c.LogFormat):
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// HasSource reports whether a spreadsheet or workbook is configured.
func (c *Config) HasSource() bool {
	return c.SpreadsheetID != "" || c.WorkbookPath != ""
}
