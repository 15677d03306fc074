package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/services"
)

// QueryHandler handles natural-language question endpoints.
type QueryHandler struct {
	queries *services.QueryService
	logger  *zap.Logger
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(queries *services.QueryService, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{queries: queries, logger: logger}
}

// RegisterRoutes registers query routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/datasets/{id}/queries", h.Ask)
	mux.HandleFunc("GET /api/datasets/{id}/queries", h.History)
	mux.HandleFunc("GET /api/queries/{id}", h.Get)
	mux.HandleFunc("POST /api/queries/{id}/feedback", h.Feedback)
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask handles POST /api/datasets/{id}/queries. The response is the query
// record whatever the outcome; failed questions come back with status
// error and the message attached rather than as an HTTP failure.
func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_user", "X-User-ID header is required")
		return
	}
	datasetID, ok := pathUUID(r, "id")
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid dataset id")
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "question is required")
		return
	}

	query, err := h.queries.Ask(r.Context(), uid, datasetID, req.Question)
	if err != nil {
		_ = WriteError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, query); err != nil {
		h.logger.Error("Failed to encode query response", zap.Error(err))
	}
}

// History handles GET /api/datasets/{id}/queries.
func (h *QueryHandler) History(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := pathUUID(r, "id")
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid dataset id")
		return
	}

	queries, err := h.queries.History(r.Context(), datasetID)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"queries": queries})
}

// Get handles GET /api/queries/{id}.
func (h *QueryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid query id")
		return
	}

	query, err := h.queries.Get(r.Context(), id)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, query)
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

// Feedback handles POST /api/queries/{id}/feedback with a thumbs_up or
// thumbs_down value.
func (h *QueryHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid query id")
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	if err := h.queries.SubmitFeedback(r.Context(), id, req.Feedback); err != nil {
		_ = WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
