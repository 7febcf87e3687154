package ctl

import (
	"io"
	"time"
)

// Commands understood by Run.
const (
	CmdFetch      = "fetch"
	CmdInfo       = "info"
	CmdInvalidate = "invalidate"
	CmdExport     = "export"
	CmdCheck      = "check"
)

// Config holds one parsed invocation.
type Config struct {
	Command    string        // Subcommand to run
	Force      bool          // fetch: bypass the cache
	JSON       bool          // Print machine-readable output
	SQLitePath string        // export: database file to write
	BaseURL    string        // check: base URL of a running server
	Timeout    time.Duration // check: HTTP request timeout
	Workers    int           // check: concurrent report requests
	Verbose    bool          // Enable debug logging
	Out        io.Writer     // Destination for command output
}

// FetchResult describes a completed load.
type FetchResult struct {
	LoadID string `json:"load_id"`
	Origin string `json:"origin"`
	Rows   int    `json:"rows"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Forced bool   `json:"forced"`
}

// ExportResult describes a completed export.
type ExportResult struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

// CheckResult is the outcome of one report consistency check.
type CheckResult struct {
	Preset   string        `json:"preset"`
	Rows     int           `json:"rows"`
	Players  int           `json:"players"`
	Clubs    int           `json:"clubs"`
	Duration time.Duration `json:"duration"`
	Problems []string      `json:"problems,omitempty"`
}
