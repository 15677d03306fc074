package table

import "math"

// MaxTransportRows caps how many rows a result may carry when it leaves
// the engine; the persistence layer stores results as JSON and rejects
// oversized payloads.
const MaxTransportRows = 1000

// SanitizeValue replaces float NaN and ±Inf with nil so the value can be
// stored as JSON. Maps and slices are sanitized recursively. Applying it
// twice yields the same result as once.
func SanitizeValue(v any) any {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	case float32:
		return SanitizeValue(float64(val))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = SanitizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = SanitizeValue(item)
		}
		return out
	default:
		return v
	}
}

// SanitizeRecords applies SanitizeValue to every value in every record.
func SanitizeRecords(records []map[string]any) []map[string]any {
	out := make([]map[string]any, len(records))
	for i, rec := range records {
		clean := make(map[string]any, len(rec))
		for k, v := range rec {
			clean[k] = SanitizeValue(v)
		}
		out[i] = clean
	}
	return out
}

// Records converts the table to an ordered sequence of row objects keyed
// by column label, sanitized for JSON transport and truncated to at most
// MaxTransportRows rows.
func (t *Table) Records() []map[string]any {
	n := len(t.rows)
	if n > MaxTransportRows {
		n = MaxTransportRows
	}
	records := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		rec := make(map[string]any, len(t.cols))
		for j, col := range t.cols {
			rec[col.Name] = SanitizeValue(t.rows[i][j])
		}
		records[i] = rec
	}
	return records
}
