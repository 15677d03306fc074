package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeValue(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected any
	}{
		{name: "nan becomes nil", input: math.NaN(), expected: nil},
		{name: "positive inf becomes nil", input: math.Inf(1), expected: nil},
		{name: "negative inf becomes nil", input: math.Inf(-1), expected: nil},
		{name: "finite float unchanged", input: 3.14, expected: 3.14},
		{name: "string unchanged", input: "hello", expected: "hello"},
		{name: "nil unchanged", input: nil, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeValue(tt.input))
		})
	}
}

func TestSanitizeValue_Nested(t *testing.T) {
	input := map[string]any{
		"values": []any{1.0, math.NaN(), 3.0},
		"bounds": map[string]any{"upper": math.Inf(1)},
	}

	out := SanitizeValue(input).(map[string]any)
	assert.Equal(t, []any{1.0, nil, 3.0}, out["values"])
	assert.Equal(t, map[string]any{"upper": nil}, out["bounds"])
}

func TestSanitizeRecords_Idempotent(t *testing.T) {
	records := []map[string]any{
		{"a": math.NaN(), "b": 1.5},
		{"a": math.Inf(-1), "b": "x"},
	}

	once := SanitizeRecords(records)
	twice := SanitizeRecords(once)
	assert.Equal(t, once, twice)
	assert.Nil(t, once[0]["a"])
	assert.Equal(t, 1.5, once[0]["b"])
}

func TestRecords_TruncatesToTransportCap(t *testing.T) {
	rows := make([][]any, MaxTransportRows+50)
	for i := range rows {
		rows[i] = []any{float64(i)}
	}
	tbl, err := New([]Column{{Name: "n", Type: ColumnNumeric}}, rows)
	require.NoError(t, err)

	records := tbl.Records()
	assert.Len(t, records, MaxTransportRows)
	assert.Equal(t, 0.0, records[0]["n"])
}
