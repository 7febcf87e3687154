package service

import (
	"errors"

	"github.com/okian/profitboard/internal/adapters/cache"
	"github.com/okian/profitboard/internal/ingest"
)

// Failure kinds of a load. Every load error wraps exactly one of them.
var (
	ErrSourceUnavailable = ingest.ErrSourceUnavailable
	ErrEmptySource       = ingest.ErrEmptySource
	ErrValidation        = ingest.ErrValidation
	ErrPersist           = cache.ErrPersist
	ErrNoData            = errors.New("no data")
)

// Kind names the failure kind of err for logs, metrics and API error codes.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, ErrEmptySource):
		return "empty_source"
	case errors.Is(err, ErrValidation):
		return "validation_failed"
	case errors.Is(err, ErrPersist):
		return "persist_failed"
	default:
		return "no_data"
	}
}
