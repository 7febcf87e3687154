package api

import (
	"net/http"

	"github.com/okian/profitboard/pkg/logger"
)

// CacheHandler exposes the table cache.
type CacheHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(deps Dependencies, log logger.Logger) *CacheHandler {
	return &CacheHandler{deps: deps, logger: log}
}

type invalidateResponse struct {
	Status string `json:"status"`
}

// HandleCache handles GET /api/cache (file info) and DELETE /api/cache
// (invalidate).
func (h *CacheHandler) HandleCache(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodDelete) {
		return
	}
	ctx := r.Context()
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, h.deps.CacheInfo(ctx))
		return
	}
	if err := h.deps.InvalidateCache(ctx); err != nil {
		h.logger.Error(ctx, "cache invalidation failed",
			logger.String("request_id", RequestIDFrom(ctx)),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "invalidate_failed", err)
		return
	}
	h.logger.Info(ctx, "cache invalidated", logger.String("request_id", RequestIDFrom(ctx)))
	writeJSON(w, http.StatusOK, invalidateResponse{Status: "invalidated"})
}
