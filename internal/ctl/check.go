package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/okian/profitboard/internal/domain/report"
	"github.com/okian/profitboard/pkg/logger"
)

// checkPresets are the periods Check requests.
var checkPresets = []report.Preset{
	report.PresetCurrentMonth,
	report.PresetLast30Days,
	report.PresetAllTime,
}

// Check requests a report per preset from a running server and verifies its
// arithmetic: the player rows add up to the totals, the club rows add up to
// the TOTAL row and players are ordered by profit.
func Check(ctx context.Context, cfg *Config) error {
	log := logger.Get()
	client := &http.Client{Timeout: cfg.Timeout}
	base := strings.TrimRight(cfg.BaseURL, "/")

	log.Info(ctx, "checking reports",
		logger.String("baseURL", base),
		logger.Int("presets", len(checkPresets)),
		logger.Int("workers", cfg.Workers),
	)

	jobs := make(chan int)
	results := make([]CheckResult, len(checkPresets))
	var wg sync.WaitGroup
	for w := 0; w < min(cfg.Workers, len(checkPresets)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = checkPreset(ctx, client, base, checkPresets[i])
			}
		}()
	}
	go func() {
		defer close(jobs)
		for i := range checkPresets {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	failed := 0
	for i := range results {
		if results[i].Preset == "" {
			results[i] = CheckResult{Preset: string(checkPresets[i]), Problems: []string{"not run"}}
		}
		if len(results[i].Problems) > 0 {
			failed++
			log.Warn(ctx, "report check failed",
				logger.String("preset", results[i].Preset),
				logger.Any("problems", results[i].Problems),
			)
		}
	}

	if err := printChecks(cfg, results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d presets", ErrCheckFailed, failed, len(results))
	}
	return nil
}

func checkPreset(ctx context.Context, client *http.Client, base string, p report.Preset) CheckResult {
	res := CheckResult{Preset: string(p)}
	start := time.Now()
	rep, err := getReport(ctx, client, base, p)
	res.Duration = time.Since(start)
	if err != nil {
		res.Problems = []string{err.Error()}
		return res
	}
	res.Rows = rep.Rows
	res.Players = len(rep.Players)
	res.Clubs = len(rep.Clubs)
	res.Problems = verifyReport(rep)
	return res
}

func getReport(ctx context.Context, client *http.Client, base string, p report.Preset) (*report.Report, error) {
	u := base + "/api/report?" + url.Values{"preset": {string(p)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var rep report.Report
	if err := json.Unmarshal(body, &rep); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &rep, nil
}

// verifyReport lists every arithmetic inconsistency in rep.
func verifyReport(rep *report.Report) []string {
	var problems []string

	if !sameTotals(report.Sum(rep.Players), rep.Totals) {
		problems = append(problems, "player rows do not add up to the totals")
	}

	n := len(rep.Clubs)
	switch {
	case n == 0 || rep.Clubs[n-1].Club != report.TotalLabel:
		problems = append(problems, "club table has no TOTAL row")
	case !sameTotals(report.Sum(rep.Clubs[:n-1]), rep.Clubs[n-1].Totals):
		problems = append(problems, "club rows do not add up to the TOTAL row")
	}

	for i := 1; i < len(rep.Players); i++ {
		if rep.Players[i].Profit.GreaterThan(rep.Players[i-1].Profit) {
			problems = append(problems, fmt.Sprintf("players not ordered by profit at row %d", i))
			break
		}
	}
	return problems
}

func sameTotals(a, b report.Totals) bool {
	return a.Profit.Equal(b.Profit) &&
		a.Winnings.Equal(b.Winnings) &&
		a.Rakeback.Equal(b.Rakeback) &&
		a.Hands.Equal(b.Hands) &&
		a.Rake.Equal(b.Rake)
}

func printChecks(cfg *Config, results []CheckResult) error {
	if cfg.JSON {
		return writeJSON(cfg.Out, results)
	}
	tw := tabwriter.NewWriter(cfg.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRESET\tROWS\tPLAYERS\tCLUBS\tTOOK\tRESULT")
	for _, r := range results {
		verdict := "ok"
		if len(r.Problems) > 0 {
			verdict = strings.Join(r.Problems, "; ")
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n",
			r.Preset, r.Rows, r.Players, r.Clubs, r.Duration.Round(time.Millisecond), verdict)
	}
	return tw.Flush()
}
