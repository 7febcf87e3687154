package ctl

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"
)

// Default flag values.
const (
	defaultBaseURL = "http://localhost:8501"
	defaultTimeout = 30 * time.Second
)

// Parse reads the subcommand and its flags from args (without the program
// name).
func Parse(args []string, out io.Writer) (*Config, error) {
	if out == nil {
		out = os.Stdout
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: missing command", ErrUsage)
	}
	cfg := &Config{Command: args[0], Out: out}

	fs := flag.NewFlagSet(cfg.Command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&cfg.JSON, "json", false, "print JSON")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "enable debug logging")

	switch cfg.Command {
	case CmdFetch:
		fs.BoolVar(&cfg.Force, "force", false, "bypass the cache and pull the sheet")
	case CmdInfo, CmdInvalidate:
	case CmdExport:
		fs.StringVar(&cfg.SQLitePath, "sqlite", "", "SQLite database to write")
	case CmdCheck:
		fs.StringVar(&cfg.BaseURL, "url", defaultBaseURL, "base URL of the service")
		fs.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
		fs.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "concurrent report requests")
	case "help", "-h", "-help", "--help":
		return nil, ErrUsage
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cfg.Command)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	if cfg.Command == CmdExport && cfg.SQLitePath == "" {
		return nil, fmt.Errorf("%w: export needs -sqlite", ErrUsage)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

// ShowHelp prints usage information.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `profitctl manages the profitboard table outside the web server.

Usage:
  profitctl <command> [options]

Commands:
  fetch       Load the table (cache first) and print a summary
                -force   pull the sheet even when the cache is fresh
  info        Describe the cache file
  invalidate  Delete the cache file
  export      Load the table and write it to SQLite
                -sqlite string   database file (required)
  check       Verify report totals served by a running server
                -url string      base URL (default "http://localhost:8501")
                -timeout dur     HTTP request timeout (default 30s)
                -workers int     concurrent requests (default CPU cores)

Common options:
  -json       print JSON
  -verbose    enable debug logging

Configuration comes from PROFITBOARD_* environment variables and the YAML
file named by PROFITBOARD_CONFIG.
`)
}
