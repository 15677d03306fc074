// Package models contains domain types for querylens-engine.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Dataset represents one uploaded tabular file and its processing state.
type Dataset struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	FileSize    int64     `json:"file_size"`

	// Processing lifecycle
	Status       string  `json:"status"`
	ErrorMessage *string `json:"error_message,omitempty"`

	// Filled once processing succeeds
	RowCount    *int            `json:"row_count,omitempty"`
	ColumnCount *int            `json:"column_count,omitempty"`
	Schema      json.RawMessage `json:"schema,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Dataset status values, in lifecycle order.
const (
	DatasetStatusUploaded   = "uploaded"
	DatasetStatusProcessing = "processing"
	DatasetStatusReady      = "ready"
	DatasetStatusError      = "error"
)

// IsReady reports whether the dataset can be queried.
func (d *Dataset) IsReady() bool {
	return d.Status == DatasetStatusReady
}
