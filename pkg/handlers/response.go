// Package handlers implements the REST surface: datasets, queries,
// insights and health.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/querylens/querylens-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteError maps application errors to HTTP responses.
func WriteError(w http.ResponseWriter, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return ErrorResponse(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, apperrors.ErrDatasetNotReady):
		return ErrorResponse(w, http.StatusConflict, "dataset_not_ready", err.Error())
	case errors.Is(err, apperrors.ErrUnsupportedFile):
		return ErrorResponse(w, http.StatusUnsupportedMediaType, "unsupported_file", err.Error())
	case errors.Is(err, apperrors.ErrFileTooLarge):
		return ErrorResponse(w, http.StatusRequestEntityTooLarge, "file_too_large", err.Error())
	case errors.Is(err, apperrors.ErrInvalidFeedback):
		return ErrorResponse(w, http.StatusBadRequest, "invalid_feedback", err.Error())
	case errors.Is(err, apperrors.ErrPortNotConfigured):
		return ErrorResponse(w, http.StatusServiceUnavailable, "port_not_configured", err.Error())
	default:
		return ErrorResponse(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// userIDHeader carries the caller's identity. There is no auth layer;
// callers are trusted to identify themselves.
const userIDHeader = "X-User-ID"

func userID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get(userIDHeader))
	return id, err == nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	return id, err == nil
}
