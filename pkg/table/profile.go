package table

import (
	"fmt"
	"sort"
	"strings"
)

const (
	profileSampleCount = 3
	profileTopK        = 3
	// Columns with this many distinct values or more are treated as
	// free-form rather than categorical.
	profileCategoryCutoff = 50
)

// CategoryCount is one value and its occurrence count.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnProfile summarizes a single column.
type ColumnProfile struct {
	Name          string          `json:"name"`
	Type          ColumnType      `json:"type"`
	NonNull       int             `json:"non_null"`
	NullPct       float64         `json:"null_percentage"`
	Samples       []any           `json:"sample_values"`
	Min           *float64        `json:"min,omitempty"`
	Max           *float64        `json:"max,omitempty"`
	Mean          *float64        `json:"mean,omitempty"`
	DistinctCount int             `json:"unique_count"`
	TopCategories []CategoryCount `json:"top_categories,omitempty"`
}

// SchemaProfile is a derived, read-only summary of a Table, consumed by
// the query-generation port and by insight formatting.
type SchemaProfile struct {
	RowCount    int             `json:"row_count"`
	ColumnCount int             `json:"column_count"`
	Columns     []ColumnProfile `json:"columns"`
}

// Profile computes a SchemaProfile. Each column is summarized in a single
// pass over its values.
func Profile(t *Table) *SchemaProfile {
	profile := &SchemaProfile{
		RowCount:    t.NumRows(),
		ColumnCount: t.NumColumns(),
		Columns:     make([]ColumnProfile, 0, t.NumColumns()),
	}

	for idx, col := range t.cols {
		cp := ColumnProfile{Name: col.Name, Type: col.Type}

		var (
			sum      float64
			min, max float64
			distinct = make(map[string]int)
		)
		for _, row := range t.rows {
			v := row[idx]
			if v == nil {
				continue
			}
			cp.NonNull++
			if len(cp.Samples) < profileSampleCount {
				cp.Samples = append(cp.Samples, v)
			}
			if f, ok := v.(float64); ok && col.Type == ColumnNumeric {
				if cp.NonNull == 1 {
					min, max = f, f
				}
				if f < min {
					min = f
				}
				if f > max {
					max = f
				}
				sum += f
			} else {
				distinct[fmt.Sprint(v)]++
			}
		}

		if t.NumRows() > 0 {
			cp.NullPct = float64(t.NumRows()-cp.NonNull) / float64(t.NumRows()) * 100
		}

		if col.Type == ColumnNumeric && cp.NonNull > 0 {
			mean := sum / float64(cp.NonNull)
			cp.Min, cp.Max, cp.Mean = &min, &max, &mean
		} else {
			cp.DistinctCount = len(distinct)
			if len(distinct) > 0 && len(distinct) < profileCategoryCutoff {
				cp.TopCategories = topCategories(distinct, profileTopK)
			}
		}

		profile.Columns = append(profile.Columns, cp)
	}

	return profile
}

func topCategories(counts map[string]int, k int) []CategoryCount {
	all := make([]CategoryCount, 0, len(counts))
	for v, c := range counts {
		all = append(all, CategoryCount{Value: v, Count: c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Value < all[j].Value
	})
	if len(all) > k {
		all = all[:k]
	}
	return all
}

// Format renders the profile as the schema description string sent to the
// query-generation port.
func (p *SchemaProfile) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset has %d rows and %d columns.\n\n", p.RowCount, p.ColumnCount)
	b.WriteString("Column Information:\n")

	for _, col := range p.Columns {
		fmt.Fprintf(&b, "- %s: type=%s, non_null=%d (%.1f%%)", col.Name, col.Type, col.NonNull, 100-col.NullPct)
		if col.Type == ColumnNumeric && col.Mean != nil {
			fmt.Fprintf(&b, ", min=%.2f, max=%.2f, mean=%.2f", *col.Min, *col.Max, *col.Mean)
		} else {
			fmt.Fprintf(&b, ", unique_values=%d", col.DistinctCount)
			if len(col.TopCategories) > 0 {
				parts := make([]string, len(col.TopCategories))
				for i, tc := range col.TopCategories {
					parts[i] = fmt.Sprintf("%s: %d", tc.Value, tc.Count)
				}
				fmt.Fprintf(&b, ", top_categories={%s}", strings.Join(parts, ", "))
			}
		}
		samples := make([]string, len(col.Samples))
		for i, s := range col.Samples {
			samples[i] = fmt.Sprint(s)
		}
		fmt.Fprintf(&b, ", samples=[%s]\n", strings.Join(samples, ", "))
	}

	b.WriteString("\nIMPORTANT QUERY FORMATTING:\n")
	b.WriteString("- For aggregations, ALWAYS include the grouping column in SELECT\n")
	b.WriteString("- Example: 'SELECT category, COUNT(*) as count GROUP BY category'\n")
	b.WriteString("- NOT: 'SELECT COUNT(*) GROUP BY category'\n")
	b.WriteString("- This ensures results have meaningful labels, not just values\n")

	return b.String()
}
