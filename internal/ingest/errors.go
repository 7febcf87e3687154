package ingest

import "errors"

// Sentinel failure kinds of a spreadsheet pull. Row-level problems never
// surface here; they are coerced to missing values or dropped.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrEmptySource       = errors.New("source has no data rows")
	ErrValidation        = errors.New("table validation failed")
)
