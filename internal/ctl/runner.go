// Package ctl implements the profitctl maintenance commands.
package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/okian/profitboard/internal/adapters/cache"
	"github.com/okian/profitboard/internal/adapters/export"
	service "github.com/okian/profitboard/internal/app"
	"github.com/okian/profitboard/internal/config"
	"github.com/okian/profitboard/internal/domain/model"
	"github.com/okian/profitboard/pkg/logger"
)

// Run executes cfg.Command against the configured source and cache.
func Run(ctx context.Context, cfg *Config, app *config.Config) error {
	log := logger.Get()
	log.Debug(ctx, "running command",
		logger.String("command", cfg.Command),
		logger.String("cache", app.CachePath),
	)

	switch cfg.Command {
	case CmdFetch:
		return fetch(ctx, cfg, app, log)
	case CmdInfo:
		return info(ctx, cfg, app)
	case CmdInvalidate:
		return invalidate(ctx, cfg, app)
	case CmdExport:
		return exportSQLite(ctx, cfg, app, log)
	case CmdCheck:
		return Check(ctx, cfg)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cfg.Command)
	}
}

func load(ctx context.Context, app *config.Config, force bool, log logger.Logger) (*model.Table, *service.Service, error) {
	grid, err := service.Grid(ctx, app)
	if err != nil {
		return nil, nil, err
	}
	svc, err := service.NewFromConfig(app, grid, log)
	if err != nil {
		return nil, nil, err
	}
	t, err := svc.Table(ctx, force)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", service.Kind(err), err)
	}
	return t, svc, nil
}

func fetch(ctx context.Context, cfg *Config, app *config.Config, log logger.Logger) error {
	t, svc, err := load(ctx, app, cfg.Force, log)
	if err != nil {
		return err
	}
	st := svc.Status()
	res := FetchResult{LoadID: st.LoadID, Origin: st.Origin, Rows: t.Len(), Forced: cfg.Force}
	if from, to, ok := t.DateRange(); ok {
		res.From = from.Format(model.DateLayout)
		res.To = to.Format(model.DateLayout)
	}
	if cfg.JSON {
		return writeJSON(cfg.Out, res)
	}
	tw := tabwriter.NewWriter(cfg.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "origin\t%s\n", res.Origin)
	fmt.Fprintf(tw, "rows\t%d\n", res.Rows)
	fmt.Fprintf(tw, "dates\t%s .. %s\n", res.From, res.To)
	fmt.Fprintf(tw, "load id\t%s\n", res.LoadID)
	return tw.Flush()
}

func info(ctx context.Context, cfg *Config, app *config.Config) error {
	in := cache.New(app.CachePath, cache.WithTTL(app.CacheTTL)).Info(ctx)
	if cfg.JSON {
		return writeJSON(cfg.Out, in)
	}
	tw := tabwriter.NewWriter(cfg.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "path\t%s\n", in.Path)
	if !in.Exists {
		fmt.Fprintf(tw, "exists\tno\n")
		return tw.Flush()
	}
	fmt.Fprintf(tw, "size\t%d bytes\n", in.Size)
	fmt.Fprintf(tw, "modified\t%s\n", in.LastModified.Format(time.RFC3339))
	fmt.Fprintf(tw, "age\t%s\n", in.Age.Round(time.Second))
	fmt.Fprintf(tw, "fresh\t%t\n", in.Fresh)
	return tw.Flush()
}

func invalidate(ctx context.Context, cfg *Config, app *config.Config) error {
	c := cache.New(app.CachePath, cache.WithLogger(logger.Named("cache")))
	if err := c.Invalidate(ctx); err != nil {
		return err
	}
	if cfg.JSON {
		return writeJSON(cfg.Out, map[string]string{"status": "invalidated", "path": c.Path()})
	}
	_, err := fmt.Fprintf(cfg.Out, "cache %s invalidated\n", c.Path())
	return err
}

func exportSQLite(ctx context.Context, cfg *Config, app *config.Config, log logger.Logger) error {
	t, _, err := load(ctx, app, false, log)
	if err != nil {
		return err
	}
	n, err := export.SQLite(ctx, cfg.SQLitePath, t)
	if err != nil {
		return err
	}
	res := ExportResult{Path: cfg.SQLitePath, Rows: n}
	if cfg.JSON {
		return writeJSON(cfg.Out, res)
	}
	_, err = fmt.Fprintf(cfg.Out, "%d rows written to %s\n", res.Rows, res.Path)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
