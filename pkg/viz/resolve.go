// Package viz classifies query results into chart categories and builds
// the JSON-compatible chart configurations attached to insights.
package viz

import (
	"strings"

	"github.com/querylens/querylens-engine/pkg/queryengine"
	"github.com/querylens/querylens-engine/pkg/table"
)

// ChartType is one of the fixed chart categories.
type ChartType string

const (
	ChartTable   ChartType = "table"
	ChartNumber  ChartType = "number"
	ChartLine    ChartType = "line"
	ChartPie     ChartType = "pie"
	ChartBar     ChartType = "bar"
	ChartScatter ChartType = "scatter"
)

var (
	timeKeywords = []string{
		"trend", "over time", "timeline", "history", "daily", "monthly", "yearly",
	}
	distributionKeywords = []string{
		"distribution", "percentage", "breakdown", "proportion", "share",
	}
	aggregationKeywords = []string{
		"group", "average", "sum", "count", "total", "top", "bottom", "highest", "lowest",
	}
)

// ResolveType classifies a query result. The decision order is fixed:
// failed or empty results render as tables, a single cell is a number,
// then the query text's time-series, distribution and aggregation
// keywords take precedence, then small column counts default to bars.
func ResolveType(result *table.Table, success bool, queryText string, kind queryengine.Kind) ChartType {
	if !success || result == nil || result.NumRows() == 0 {
		return ChartTable
	}
	if result.NumRows() == 1 && result.NumColumns() == 1 {
		return ChartNumber
	}

	lower := strings.ToLower(queryText)
	switch {
	case containsAny(lower, timeKeywords):
		return ChartLine
	case containsAny(lower, distributionKeywords):
		return ChartPie
	case containsAny(lower, aggregationKeywords) || kind.IsAggregation():
		return ChartBar
	case result.NumColumns() >= 2 && result.NumColumns() <= 3:
		return ChartBar
	default:
		return ChartTable
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
