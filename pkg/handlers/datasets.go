package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/services"
)

// uploadMemoryLimit bounds how much of a multipart body is held in
// memory; the rest spills to temp files.
const uploadMemoryLimit = 32 << 20

// DatasetHandler handles dataset upload and lifecycle endpoints.
type DatasetHandler struct {
	datasets *services.DatasetService
	logger   *zap.Logger
}

// NewDatasetHandler creates a dataset handler.
func NewDatasetHandler(datasets *services.DatasetService, logger *zap.Logger) *DatasetHandler {
	return &DatasetHandler{datasets: datasets, logger: logger}
}

// RegisterRoutes registers dataset routes on the given mux.
func (h *DatasetHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/datasets", h.Upload)
	mux.HandleFunc("GET /api/datasets", h.List)
	mux.HandleFunc("GET /api/datasets/{id}", h.Get)
	mux.HandleFunc("GET /api/datasets/{id}/preview", h.Preview)
	mux.HandleFunc("DELETE /api/datasets/{id}", h.Delete)
}

// Upload handles POST /api/datasets: a multipart form with one "file"
// field. The response carries the dataset after processing, so its
// status is already ready or error.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_user", "X-User-ID header is required")
		return
	}

	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "expected multipart form upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "missing file field")
		return
	}
	defer file.Close()

	dataset, err := h.datasets.Upload(r.Context(), uid, header.Filename, file, header.Size)
	if err != nil {
		_ = WriteError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, dataset); err != nil {
		h.logger.Error("Failed to encode upload response", zap.Error(err))
	}
}

// List handles GET /api/datasets.
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_user", "X-User-ID header is required")
		return
	}

	datasets, err := h.datasets.List(r.Context(), uid)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"datasets": datasets})
}

// Get handles GET /api/datasets/{id}.
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid dataset id")
		return
	}

	dataset, err := h.datasets.Get(r.Context(), id)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, dataset)
}

// Preview handles GET /api/datasets/{id}/preview?rows=n.
func (h *DatasetHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid dataset id")
		return
	}

	rows := 0
	if raw := r.URL.Query().Get("rows"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "rows must be a positive integer")
			return
		}
		rows = parsed
	}

	records, err := h.datasets.Preview(r.Context(), id, rows)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"rows": records})
}

// Delete handles DELETE /api/datasets/{id}.
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid dataset id")
		return
	}

	if err := h.datasets.Delete(r.Context(), id); err != nil {
		_ = WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
