package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/profitboard/internal/domain/normalize"
	"github.com/okian/profitboard/internal/domain/report"
	"github.com/okian/profitboard/pkg/logger"
)

// ReportHandler serves dashboard reports and filter choices.
type ReportHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps Dependencies, log logger.Logger) *ReportHandler {
	return &ReportHandler{deps: deps, logger: log}
}

// HandleReport handles GET /api/report.
//
// Query parameters: preset, from, to, coach, player and select. select is
// "coach|player" and may repeat.
func (h *ReportHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeFailure(r.Context(), h.logger, w, err)
		return
	}
	rep, err := h.deps.Report(r.Context(), q)
	if err != nil {
		writeFailure(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleFilters handles GET /api/filters with the same parameters as
// /api/report.
func (h *ReportHandler) HandleFilters(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeFailure(r.Context(), h.logger, w, err)
		return
	}
	f, err := h.deps.Filters(r.Context(), q)
	if err != nil {
		writeFailure(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// parseQuery reads a report query. Dates accept the same layouts as the sheet;
// a bound without a preset implies a custom period.
func parseQuery(v url.Values) (report.Query, error) {
	preset, err := report.ParsePreset(v.Get("preset"))
	if err != nil {
		return report.Query{}, err
	}
	q := report.Query{
		Preset: preset,
		Coach:  strings.TrimSpace(v.Get("coach")),
		Player: strings.TrimSpace(v.Get("player")),
	}
	if q.From, err = parseDate(v, "from"); err != nil {
		return report.Query{}, err
	}
	if q.To, err = parseDate(v, "to"); err != nil {
		return report.Query{}, err
	}
	if v.Get("preset") == "" && (!q.From.IsZero() || !q.To.IsZero()) {
		q.Preset = report.PresetCustom
	}
	for _, raw := range v["select"] {
		coach, player, ok := strings.Cut(raw, "|")
		if !ok || strings.TrimSpace(player) == "" {
			return report.Query{}, badRequest("select", raw)
		}
		q.Selected = append(q.Selected, report.GroupKey{
			Coach:  strings.TrimSpace(coach),
			Player: strings.TrimSpace(player),
		})
	}
	return q, nil
}

func parseDate(v url.Values, name string) (time.Time, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return time.Time{}, nil
	}
	d, ok := normalize.Date(raw)
	if !ok {
		return time.Time{}, badRequest(name, raw)
	}
	return d, nil
}

func badRequest(param, value string) error {
	return fmt.Errorf("%w: invalid %s %q", ErrBadRequest, param, value)
}
