package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Query is one natural-language question compiled and executed against a
// dataset, together with its result.
type Query struct {
	ID        uuid.UUID `json:"id"`
	DatasetID uuid.UUID `json:"dataset_id"`
	UserID    uuid.UUID `json:"user_id"`

	QuestionText string `json:"question_text"`
	QueryType    string `json:"query_type,omitempty"`
	QueryString  string `json:"query_string,omitempty"`
	Explanation  string `json:"explanation,omitempty"`

	Status       string  `json:"status"`
	ErrorMessage *string `json:"error_message,omitempty"`

	// Sanitized, truncated result rows as ordered JSON records.
	Result   json.RawMessage `json:"result,omitempty"`
	RowCount *int            `json:"row_count,omitempty"`

	VisualizationType string  `json:"visualization_type,omitempty"`
	UserFeedback      *string `json:"user_feedback,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Query status values.
const (
	QueryStatusPending = "pending"
	QueryStatusSuccess = "success"
	QueryStatusError   = "error"
)

// User feedback values for a query result.
const (
	FeedbackThumbsUp   = "thumbs_up"
	FeedbackThumbsDown = "thumbs_down"
)

// ValidFeedback contains all accepted feedback values.
var ValidFeedback = []string{FeedbackThumbsUp, FeedbackThumbsDown}

// IsValidFeedback checks whether the given feedback value is accepted.
func IsValidFeedback(feedback string) bool {
	for _, f := range ValidFeedback {
		if f == feedback {
			return true
		}
	}
	return false
}
