package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/profitboard/internal/config"
	"github.com/okian/profitboard/internal/ctl"
	"github.com/okian/profitboard/pkg/logger"
)

// Upper bound for a single command, including a slow sheet pull.
const commandTimeout = 10 * time.Minute

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd, err := ctl.Parse(args, os.Stdout)
	if err != nil {
		if errors.Is(err, ctl.ErrUsage) || errors.Is(err, ctl.ErrUnknownCommand) {
			if err != ctl.ErrUsage {
				os.Stderr.WriteString(err.Error() + "\n\n")
			}
			ctl.ShowHelp(os.Stderr)
			return 2
		}
		os.Stderr.WriteString(err.Error() + "\n")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	// Logs go to stderr so command output stays parseable.
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	level := cfg.LogLevel
	if cmd.Verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		_ = logger.SetLevelString("info")
	}

	if err := ctl.Run(ctx, cmd, cfg); err != nil {
		logger.Get().Error(ctx, "command failed", logger.String("command", cmd.Command), logger.Error(err))
		return 1
	}
	return 0
}
