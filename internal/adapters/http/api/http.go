// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/profitboard/internal/adapters/cache"
	service "github.com/okian/profitboard/internal/app"
	"github.com/okian/profitboard/internal/domain/model"
	"github.com/okian/profitboard/internal/domain/report"
	"github.com/okian/profitboard/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Table returns the current table, reloading from the sheet when force is set.
	Table(ctx context.Context, force bool) (*model.Table, error)

	// Report and Filters serve the dashboard views.
	Report(ctx context.Context, q report.Query) (*report.Report, error)
	Filters(ctx context.Context, q report.Query) (report.Filters, error)

	// Cache management.
	CacheInfo(ctx context.Context) cache.Info
	InvalidateCache(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	dataHandler   *DataHandler
	reportHandler *ReportHandler
	cacheHandler  *CacheHandler
}

// Option configures a Server.
type Option func(*options)

type options struct {
	logger logger.Logger
}

// WithLogger sets the logger handlers report failures to.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := options{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		dataHandler:   NewDataHandler(deps, o.logger),
		reportHandler: NewReportHandler(deps, o.logger),
		cacheHandler:  NewCacheHandler(deps, o.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/api/status", MetricsMiddleware(s.statsHandler.HandleStats, "status"))
	mux.HandleFunc("/api/data", MetricsMiddleware(s.dataHandler.HandleData, "data"))
	mux.HandleFunc("/api/report", MetricsMiddleware(s.reportHandler.HandleReport, "report"))
	mux.HandleFunc("/api/filters", MetricsMiddleware(s.reportHandler.HandleFilters, "filters"))
	mux.HandleFunc("/api/cache", MetricsMiddleware(s.cacheHandler.HandleCache, "cache"))
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{
		Code:      code,
		Message:   msg,
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

// writeFailure maps a service error onto a status code. Anything that is not
// a malformed request means the dashboard has no data to show.
func writeFailure(ctx context.Context, log logger.Logger, w http.ResponseWriter, err error) {
	if isBadRequest(err) {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	kind := service.Kind(err)
	log.Warn(ctx, "request failed",
		logger.String("request_id", RequestIDFrom(ctx)),
		logger.String("kind", kind),
		logger.Error(err),
	)
	writeError(w, http.StatusServiceUnavailable, kind, err)
}

func isBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, report.ErrUnknownPreset) ||
		errors.Is(err, report.ErrInvalidRange) ||
		errors.Is(err, report.ErrUnknownKey)
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
	return false
}
