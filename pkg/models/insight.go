package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Insight is a synthesized, human-readable explanation of one or more
// statistical findings, with an attached chart configuration. Owned by a
// dataset and optionally tied to a specific query.
type Insight struct {
	ID        uuid.UUID  `json:"id"`
	DatasetID uuid.UUID  `json:"dataset_id"`
	QueryID   *uuid.UUID `json:"query_id,omitempty"`

	InsightType     string  `json:"insight_type"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	ConfidenceScore float64 `json:"confidence_score"`

	SupportingData json.RawMessage `json:"supporting_data,omitempty"`
	VizConfig      json.RawMessage `json:"visualization_config,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Insight type values: the four finding families plus the free-form ones
// the insight-generation port may return.
const (
	InsightTypeCorrelation  = "correlation"
	InsightTypeDistribution = "distribution"
	InsightTypeAnomaly      = "anomaly"
	InsightTypeTrend        = "trend"
	InsightTypeSummary      = "summary"
	InsightTypeStatistical  = "statistical"
)

// MaxInsightTitleLength bounds insight titles.
const MaxInsightTitleLength = 200

// ClampTitle truncates a title to MaxInsightTitleLength runes.
func ClampTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= MaxInsightTitleLength {
		return title
	}
	return string(runes[:MaxInsightTitleLength])
}
