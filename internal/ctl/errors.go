package ctl

import "errors"

// Sentinel kinds for command failures.
var (
	ErrUsage          = errors.New("usage")
	ErrUnknownCommand = errors.New("unknown command")
	ErrCheckFailed    = errors.New("check failed")
)
