package api

import (
	"net/http"
	"strconv"

	"github.com/okian/profitboard/internal/domain/model"
	"github.com/okian/profitboard/pkg/logger"
)

// DataHandler serves the normalized table.
type DataHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewDataHandler creates a new data handler.
func NewDataHandler(deps Dependencies, log logger.Logger) *DataHandler {
	return &DataHandler{deps: deps, logger: log}
}

type dataResponse struct {
	Columns  []string    `json:"columns"`
	Measures []string    `json:"measures"`
	Count    int         `json:"count"`
	Rows     []model.Row `json:"rows"`
}

// HandleData handles GET /api/data. reload=1 (or true) bypasses the cache.
func (h *DataHandler) HandleData(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	force, err := parseFlag(r.URL.Query().Get("reload"))
	if err != nil {
		writeFailure(r.Context(), h.logger, w, err)
		return
	}
	t, err := h.deps.Table(r.Context(), force)
	if err != nil {
		writeFailure(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{
		Columns:  t.Columns,
		Measures: t.Measures,
		Count:    t.Len(),
		Rows:     t.Rows(),
	})
}

func parseFlag(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, badRequest("reload", s)
	}
	return v, nil
}
