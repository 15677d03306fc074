package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryGeneration(t *testing.T) {
	system, user := QueryGeneration("Dataset has 3 rows and 2 columns.", "what is the average amount per region?")

	assert.Contains(t, system, "query_string")
	assert.Contains(t, system, "GROUP BY")
	assert.Contains(t, user, "Dataset has 3 rows and 2 columns.")
	assert.Contains(t, user, "Question: what is the average amount per region?")
}

func TestInsightGeneration(t *testing.T) {
	system, user := InsightGeneration("Dataset with 100 rows.", "Strong positive correlation between 'a' and 'b' (r=0.910)", "")

	assert.Contains(t, system, "confidence_score")
	assert.Contains(t, user, "Strong positive correlation")
	assert.NotContains(t, user, "Query context")

	_, withContext := InsightGeneration("overview", "finding", "SELECT COUNT(*) -- how many orders")
	assert.Contains(t, withContext, "Query context")
}
