package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrDatasetNotReady   = errors.New("dataset is not ready")
	ErrUnsupportedFile   = errors.New("unsupported file type")
	ErrFileTooLarge      = errors.New("file exceeds maximum allowed size")
	ErrInvalidFeedback   = errors.New("invalid feedback value")
	ErrPortNotConfigured = errors.New("generation port is not configured")
)
