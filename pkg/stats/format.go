package stats

import (
	"fmt"
	"strings"

	"github.com/querylens/querylens-engine/pkg/table"
)

func (f CorrelationFinding) Describe() string {
	kind := "positive"
	if f.Coefficient < 0 {
		kind = "negative"
	}
	return fmt.Sprintf("%s %s correlation between '%s' and '%s' (r=%.3f)",
		capitalize(f.Strength), kind, f.Column1, f.Column2, f.Coefficient)
}

func (f DistributionFinding) Describe() string {
	shape := "not normally distributed"
	if f.IsNormal {
		shape = "approximately normally distributed"
	}
	return fmt.Sprintf("Column '%s' is %s: mean=%.2f, median=%.2f, std=%.2f, skewness=%.2f, kurtosis=%.2f (n=%d)",
		f.Column, shape, f.Mean, f.Median, f.Std, f.Skew, f.Kurtosis, f.SampleSize)
}

func (f AnomalyFinding) Describe() string {
	samples := make([]string, len(f.SampleOutliers))
	for i, v := range f.SampleOutliers {
		samples[i] = fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("Column '%s' has %d outliers (%.1f%% of values) outside [%.2f, %.2f], e.g. %s",
		f.Column, f.OutlierCount, f.OutlierPct, f.LowerBound, f.UpperBound, strings.Join(samples, ", "))
}

func (f TrendFinding) Describe() string {
	return fmt.Sprintf("%s %s trend in '%s': slope=%.4f per row, r_squared=%.3f",
		capitalize(f.Strength), f.Direction, f.Column, f.Slope, f.RSquared)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Overview is the dataset-level summary sent alongside findings to the
// insight-generation port.
type Overview struct {
	RowCount           int      `json:"row_count"`
	ColumnCount        int      `json:"column_count"`
	NumericColumns     []string `json:"numeric_columns"`
	CategoricalColumns []string `json:"categorical_columns"`
	MissingValues      int      `json:"missing_values"`
}

// Summarize builds an Overview of the table.
func Summarize(t *table.Table) *Overview {
	missing := 0
	for i := 0; i < t.NumRows(); i++ {
		for _, v := range t.Row(i) {
			if v == nil {
				missing++
			}
		}
	}
	return &Overview{
		RowCount:           t.NumRows(),
		ColumnCount:        t.NumColumns(),
		NumericColumns:     t.NumericColumns(),
		CategoricalColumns: t.CategoricalColumns(),
		MissingValues:      missing,
	}
}

// Format renders the overview as prompt text.
func (o *Overview) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset with %d rows and %d columns.\n", o.RowCount, o.ColumnCount)
	fmt.Fprintf(&b, "Numeric columns: %s\n", joinOrNone(o.NumericColumns))
	fmt.Fprintf(&b, "Categorical columns: %s\n", joinOrNone(o.CategoricalColumns))
	fmt.Fprintf(&b, "Missing values: %d\n", o.MissingValues)
	return b.String()
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
