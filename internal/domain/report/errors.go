package report

import "errors"

var (
	ErrUnknownPreset = errors.New("unknown date preset")
	ErrInvalidRange  = errors.New("invalid date range")
	ErrUnknownKey    = errors.New("unknown grouping key")
)
