package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidFeedback(t *testing.T) {
	assert.True(t, IsValidFeedback(FeedbackThumbsUp))
	assert.True(t, IsValidFeedback(FeedbackThumbsDown))
	assert.False(t, IsValidFeedback("meh"))
	assert.False(t, IsValidFeedback(""))
}

func TestClampTitle(t *testing.T) {
	short := "Revenue is trending up"
	assert.Equal(t, short, ClampTitle(short))

	long := strings.Repeat("x", MaxInsightTitleLength+50)
	clamped := ClampTitle(long)
	assert.Len(t, clamped, MaxInsightTitleLength)

	// Multibyte titles clamp on rune boundaries.
	unicode := strings.Repeat("é", MaxInsightTitleLength+1)
	assert.Equal(t, MaxInsightTitleLength, len([]rune(ClampTitle(unicode))))
}

func TestDatasetIsReady(t *testing.T) {
	d := &Dataset{Status: DatasetStatusProcessing}
	assert.False(t, d.IsReady())
	d.Status = DatasetStatusReady
	assert.True(t, d.IsReady())
}
