package sheets

import "errors"

// Sentinel kinds for spreadsheet access errors.
var (
	ErrRangeNotFound     = errors.New("range not found")
	ErrUnsupportedFormat = errors.New("unsupported workbook format")
	ErrNoCredentials     = errors.New("no spreadsheet credentials configured")
)
