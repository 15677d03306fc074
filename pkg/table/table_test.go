package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := New(
		[]Column{
			{Name: "region", Type: ColumnText},
			{Name: "amount", Type: ColumnNumeric},
		},
		[][]any{
			{"east", 10.0},
			{"west", 5.0},
			{"east", 30.0},
			{"north", nil},
		},
	)
	require.NoError(t, err)
	return tbl
}

func TestNew_RowWidthMismatch(t *testing.T) {
	_, err := New(
		[]Column{{Name: "a", Type: ColumnText}},
		[][]any{{"x", "extra"}},
	)
	require.Error(t, err)
}

func TestColumnIndex_CaseInsensitive(t *testing.T) {
	tbl := testTable(t)

	idx, ok := tbl.ColumnIndex("AMOUNT")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = tbl.ColumnIndex("missing")
	assert.False(t, ok)
}

func TestNumericValues_SkipsNulls(t *testing.T) {
	tbl := testTable(t)

	vals := tbl.NumericValues("amount")
	assert.Equal(t, []float64{10, 5, 30}, vals)

	assert.Nil(t, tbl.NumericValues("region"))
	assert.Nil(t, tbl.NumericValues("missing"))
}

func TestSelect_PreservesRequestedOrder(t *testing.T) {
	tbl := testTable(t)

	projected, err := tbl.Select("amount", "region")
	require.NoError(t, err)
	assert.Equal(t, []string{"amount", "region"}, projected.ColumnNames())
	assert.Equal(t, 4, projected.NumRows())
	assert.Equal(t, 10.0, projected.At(0, 0))
	assert.Equal(t, "east", projected.At(0, 1))

	_, err = tbl.Select("nope")
	require.Error(t, err)
}

func TestSortBy_NumericDescendingNullsLast(t *testing.T) {
	tbl := testTable(t)

	sorted, err := tbl.SortBy("amount", true)
	require.NoError(t, err)

	assert.Equal(t, 30.0, sorted.At(0, 1))
	assert.Equal(t, 10.0, sorted.At(1, 1))
	assert.Equal(t, 5.0, sorted.At(2, 1))
	assert.Nil(t, sorted.At(3, 1))

	// The original table is untouched.
	assert.Equal(t, 10.0, tbl.At(0, 1))
}

func TestSortBy_TextAscending(t *testing.T) {
	tbl := testTable(t)

	sorted, err := tbl.SortBy("region", false)
	require.NoError(t, err)
	assert.Equal(t, "east", sorted.At(0, 0))
	assert.Equal(t, "east", sorted.At(1, 0))
	assert.Equal(t, "north", sorted.At(2, 0))
	assert.Equal(t, "west", sorted.At(3, 0))
}

func TestSortBy_DescendingKeepsTiesStable(t *testing.T) {
	tbl, err := New(
		[]Column{
			{Name: "region", Type: ColumnText},
			{Name: "count", Type: ColumnNumeric},
		},
		[][]any{
			{"east", 2.0},
			{"west", 2.0},
			{"north", 1.0},
		},
	)
	require.NoError(t, err)

	once, err := tbl.SortBy("count", true)
	require.NoError(t, err)
	twice, err := once.SortBy("count", true)
	require.NoError(t, err)

	// Tied rows keep their original order, and re-sorting changes nothing.
	for _, sorted := range []*Table{once, twice} {
		assert.Equal(t, "east", sorted.At(0, 0))
		assert.Equal(t, "west", sorted.At(1, 0))
		assert.Equal(t, "north", sorted.At(2, 0))
	}
}

func TestFilterRows(t *testing.T) {
	tbl := testTable(t)

	filtered := tbl.FilterRows(func(row []any) bool {
		f, ok := row[1].(float64)
		return ok && f > 8
	})
	assert.Equal(t, 2, filtered.NumRows())
	assert.Equal(t, 4, tbl.NumRows())
}

func TestHead(t *testing.T) {
	tbl := testTable(t)
	assert.Equal(t, 2, tbl.Head(2).NumRows())
	assert.Equal(t, 4, tbl.Head(100).NumRows())
}
