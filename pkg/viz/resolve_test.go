package viz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylens/querylens-engine/pkg/queryengine"
	"github.com/querylens/querylens-engine/pkg/table"
)

func resultTable(t *testing.T, cols []table.Column, rows [][]any) *table.Table {
	t.Helper()
	tbl, err := table.New(cols, rows)
	require.NoError(t, err)
	return tbl
}

func TestResolveType(t *testing.T) {
	single := resultTable(t,
		[]table.Column{{Name: "total_count", Type: table.ColumnNumeric}},
		[][]any{{42.0}},
	)
	pair := resultTable(t,
		[]table.Column{
			{Name: "region", Type: table.ColumnText},
			{Name: "amount", Type: table.ColumnNumeric},
		},
		[][]any{{"east", 10.0}, {"west", 5.0}},
	)
	wide := resultTable(t,
		[]table.Column{
			{Name: "a", Type: table.ColumnText},
			{Name: "b", Type: table.ColumnText},
			{Name: "c", Type: table.ColumnText},
			{Name: "d", Type: table.ColumnText},
		},
		[][]any{{"1", "2", "3", "4"}},
	)

	tests := []struct {
		name     string
		result   *table.Table
		success  bool
		query    string
		kind     queryengine.Kind
		expected ChartType
	}{
		{name: "error status is always a table", result: single, success: false, query: "count over time", expected: ChartTable},
		{name: "nil result is a table", result: nil, success: true, expected: ChartTable},
		{name: "single cell is a number", result: single, success: true, query: "how many rows", expected: ChartNumber},
		{name: "time keyword wins", result: pair, success: true, query: "revenue trend by month", expected: ChartLine},
		{name: "distribution keyword", result: pair, success: true, query: "breakdown by region", expected: ChartPie},
		{name: "aggregation keyword", result: pair, success: true, query: "the very best sellers, averaged", expected: ChartBar},
		{name: "aggregation plan kind", result: pair, success: true, query: "amounts per region", kind: queryengine.KindGroupAggregate, expected: ChartBar},
		{name: "two columns default to bar", result: pair, success: true, query: "regions and amounts", expected: ChartBar},
		{name: "wide result defaults to table", result: wide, success: true, query: "everything", kind: queryengine.KindPassthrough, expected: ChartTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind := tt.kind
			if kind == "" {
				kind = queryengine.KindProjection
			}
			assert.Equal(t, tt.expected, ResolveType(tt.result, tt.success, tt.query, kind))
		})
	}
}

func TestResolveType_EmptyResultIsTable(t *testing.T) {
	empty := resultTable(t, []table.Column{{Name: "a", Type: table.ColumnText}}, nil)
	assert.Equal(t, ChartTable, ResolveType(empty, true, "count things", queryengine.KindCount))
}
