package model

import "errors"

// Sentinel kinds for table errors.
var (
	ErrInvalidTable   = errors.New("invalid table")
	ErrMissingColumns = errors.New("missing required columns")
	ErrNoDatedRows    = errors.New("no rows with a valid date")
	ErrDecode         = errors.New("decode table rows")
)
