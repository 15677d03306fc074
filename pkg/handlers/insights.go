package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/services"
)

// InsightHandler handles insight endpoints.
type InsightHandler struct {
	insights *services.InsightService
	datasets *services.DatasetService
	logger   *zap.Logger
}

// NewInsightHandler creates an insight handler.
func NewInsightHandler(insights *services.InsightService, datasets *services.DatasetService, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{insights: insights, datasets: datasets, logger: logger}
}

// RegisterRoutes registers insight routes on the given mux.
func (h *InsightHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/datasets/{id}/insights", h.Generate)
	mux.HandleFunc("GET /api/datasets/{id}/insights", h.List)
	mux.HandleFunc("GET /api/insights/{id}", h.Get)
	mux.HandleFunc("DELETE /api/insights/{id}", h.Delete)
}

// Generate handles POST /api/datasets/{id}/insights: run analysis and
// narration for the dataset now, without waiting for the sweep.
func (h *InsightHandler) Generate(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := pathUUID(r, "id")
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid dataset id")
		return
	}

	t, err := h.datasets.LoadTable(r.Context(), datasetID)
	if err != nil {
		_ = WriteError(w, err)
		return
	}

	stored, err := h.insights.GenerateForDataset(r.Context(), datasetID, t)
	if err != nil {
		_ = WriteError(w, err)
		return
	}

	insights, err := h.insights.List(r.Context(), datasetID)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, map[string]any{
		"generated": stored,
		"insights":  insights,
	})
}

// List handles GET /api/datasets/{id}/insights.
func (h *InsightHandler) List(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := pathUUID(r, "id")
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid dataset id")
		return
	}

	insights, err := h.insights.List(r.Context(), datasetID)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"insights": insights})
}

// Get handles GET /api/insights/{id}.
func (h *InsightHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid insight id")
		return
	}

	insight, err := h.insights.Get(r.Context(), id)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, insight)
}

// Delete handles DELETE /api/insights/{id}.
func (h *InsightHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid insight id")
		return
	}

	if err := h.insights.Delete(r.Context(), id); err != nil {
		_ = WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
