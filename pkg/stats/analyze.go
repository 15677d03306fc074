// Package stats mines statistical findings from a table: correlated
// column pairs, distribution shape, IQR outliers and linear trends against
// row order. Everything is a pure function of the table; a family whose
// preconditions fail yields an empty finding set, never an error.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/querylens/querylens-engine/pkg/table"
)

const (
	minCorrelationRows    = 10
	correlationThreshold  = 0.5
	strongThreshold       = 0.7
	minDistributionValues = 3
	normalityMinSamples   = 8 // normality is only tested above this
	normalityAlpha        = 0.05
	minAnomalyValues      = 4
	iqrMultiplier         = 1.5
	maxSampleOutliers     = 5
	minTrendValues        = 3
	trendCorrThreshold    = 0.3
	trendAlpha            = 0.05
)

// Finding is one statistical observation, ready to seed insight
// generation.
type Finding interface {
	// Type tags the finding family: correlation, distribution, anomaly
	// or trend.
	Type() string
	// Describe renders the finding for the insight-generation prompt.
	Describe() string
}

// CorrelationFinding is a pair of numeric columns with |r| above the
// reporting threshold.
type CorrelationFinding struct {
	Column1     string  `json:"column1"`
	Column2     string  `json:"column2"`
	Coefficient float64 `json:"coefficient"`
	Strength    string  `json:"strength"`
}

func (CorrelationFinding) Type() string { return "correlation" }

// DistributionFinding summarizes the shape of one numeric column.
type DistributionFinding struct {
	Column     string  `json:"column"`
	Mean       float64 `json:"mean"`
	Median     float64 `json:"median"`
	Std        float64 `json:"std"`
	Skew       float64 `json:"skewness"`
	Kurtosis   float64 `json:"kurtosis"`
	IsNormal   bool    `json:"is_normal"`
	SampleSize int     `json:"sample_size"`
}

func (DistributionFinding) Type() string { return "distribution" }

// AnomalyFinding reports values of a numeric column outside the IQR
// bounds.
type AnomalyFinding struct {
	Column         string    `json:"column"`
	OutlierCount   int       `json:"outlier_count"`
	OutlierPct     float64   `json:"outlier_percentage"`
	LowerBound     float64   `json:"lower_bound"`
	UpperBound     float64   `json:"upper_bound"`
	SampleOutliers []float64 `json:"sample_outliers"`
}

func (AnomalyFinding) Type() string { return "anomaly" }

// TrendFinding is a significant linear trend of a numeric column against
// row order.
type TrendFinding struct {
	Column    string  `json:"column"`
	Slope     float64 `json:"slope"`
	RSquared  float64 `json:"r_squared"`
	Direction string  `json:"direction"`
	Strength  string  `json:"strength"`
}

func (TrendFinding) Type() string { return "trend" }

// Analysis bundles the findings of all four families.
type Analysis struct {
	Correlations  []CorrelationFinding  `json:"correlations"`
	Distributions []DistributionFinding `json:"distributions"`
	Anomalies     []AnomalyFinding      `json:"anomalies"`
	Trends        []TrendFinding        `json:"trends"`
}

// TopFindings returns up to perFamily findings from each family, keeping
// each family's internal ranking order.
func (a *Analysis) TopFindings(perFamily int) []Finding {
	var out []Finding
	for i, f := range a.Correlations {
		if i >= perFamily {
			break
		}
		out = append(out, f)
	}
	for i, f := range a.Distributions {
		if i >= perFamily {
			break
		}
		out = append(out, f)
	}
	for i, f := range a.Anomalies {
		if i >= perFamily {
			break
		}
		out = append(out, f)
	}
	for i, f := range a.Trends {
		if i >= perFamily {
			break
		}
		out = append(out, f)
	}
	return out
}

// Analyze runs all four analysis families over the table.
func Analyze(t *table.Table) *Analysis {
	return &Analysis{
		Correlations:  Correlations(t),
		Distributions: Distributions(t),
		Anomalies:     Anomalies(t),
		Trends:        Trends(t),
	}
}

// Correlations computes pairwise Pearson correlation over all numeric
// column pairs, using rows where both cells are present. Pairs with
// |r| > 0.5 are kept, sorted by |r| descending. Tables with fewer than 10
// rows or fewer than 2 numeric columns produce no findings.
func Correlations(t *table.Table) []CorrelationFinding {
	numeric := t.NumericColumns()
	if t.NumRows() < minCorrelationRows || len(numeric) < 2 {
		return nil
	}

	var findings []CorrelationFinding
	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			xs, ys := pairedValues(t, numeric[i], numeric[j])
			if len(xs) < minCorrelationRows {
				continue
			}
			r := stat.Correlation(xs, ys, nil)
			if math.IsNaN(r) || math.Abs(r) <= correlationThreshold {
				continue
			}
			findings = append(findings, CorrelationFinding{
				Column1:     numeric[i],
				Column2:     numeric[j],
				Coefficient: r,
				Strength:    strengthLabel(r),
			})
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return math.Abs(findings[i].Coefficient) > math.Abs(findings[j].Coefficient)
	})
	return findings
}

// Distributions summarizes every numeric column with at least 3 values.
// Normality is tested with D'Agostino's K-squared when the sample is
// larger than 8, otherwise the column is assumed non-normal.
func Distributions(t *table.Table) []DistributionFinding {
	var findings []DistributionFinding
	for _, col := range t.NumericColumns() {
		values := t.NumericValues(col)
		if len(values) < minDistributionValues {
			continue
		}

		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)

		isNormal := false
		if len(values) > normalityMinSamples {
			if p, ok := normalTestP(values); ok {
				isNormal = p > normalityAlpha
			}
		}

		findings = append(findings, DistributionFinding{
			Column:     col,
			Mean:       stat.Mean(values, nil),
			Median:     quantile(sorted, 0.5),
			Std:        stat.StdDev(values, nil),
			Skew:       stat.Skew(values, nil),
			Kurtosis:   stat.ExKurtosis(values, nil),
			IsNormal:   isNormal,
			SampleSize: len(values),
		})
	}
	return findings
}

// Anomalies flags numeric columns with values outside
// [Q1 - 1.5*IQR, Q3 + 1.5*IQR]. Quartiles use linear interpolation.
func Anomalies(t *table.Table) []AnomalyFinding {
	var findings []AnomalyFinding
	for _, col := range t.NumericColumns() {
		values := t.NumericValues(col)
		if len(values) < minAnomalyValues {
			continue
		}

		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)

		q1 := quantile(sorted, 0.25)
		q3 := quantile(sorted, 0.75)
		iqr := q3 - q1
		lower := q1 - iqrMultiplier*iqr
		upper := q3 + iqrMultiplier*iqr

		var outliers []float64
		for _, v := range values {
			if v < lower || v > upper {
				outliers = append(outliers, v)
			}
		}
		if len(outliers) == 0 {
			continue
		}

		samples := outliers
		if len(samples) > maxSampleOutliers {
			samples = samples[:maxSampleOutliers]
		}
		findings = append(findings, AnomalyFinding{
			Column:         col,
			OutlierCount:   len(outliers),
			OutlierPct:     float64(len(outliers)) / float64(len(values)) * 100,
			LowerBound:     lower,
			UpperBound:     upper,
			SampleOutliers: samples,
		})
	}
	return findings
}

// Trends fits a simple linear regression of each numeric column against
// row order and reports fits with |r| > 0.3 and p < 0.05.
func Trends(t *table.Table) []TrendFinding {
	var findings []TrendFinding
	for _, col := range t.NumericColumns() {
		values := t.NumericValues(col)
		n := len(values)
		if n < minTrendValues {
			continue
		}

		xs := make([]float64, n)
		for i := range xs {
			xs[i] = float64(i)
		}

		r := stat.Correlation(xs, values, nil)
		if math.IsNaN(r) || math.Abs(r) <= trendCorrThreshold {
			continue
		}
		if p := regressionP(r, n); p >= trendAlpha {
			continue
		}

		_, slope := stat.LinearRegression(xs, values, nil, false)
		direction := "increasing"
		if slope < 0 {
			direction = "decreasing"
		}
		findings = append(findings, TrendFinding{
			Column:    col,
			Slope:     slope,
			RSquared:  r * r,
			Direction: direction,
			Strength:  strengthLabel(r),
		})
	}
	return findings
}

// regressionP is the two-sided p-value for the hypothesis that the
// regression slope is zero, via the t statistic of r.
func regressionP(r float64, n int) float64 {
	if n <= 2 {
		return 1
	}
	denom := 1 - r*r
	if denom <= 0 {
		return 0
	}
	t := math.Abs(r) * math.Sqrt(float64(n-2)/denom)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	return 2 * dist.Survival(t)
}

// pairedValues collects the rows where both columns carry a value.
func pairedValues(t *table.Table, col1, col2 string) ([]float64, []float64) {
	idx1, ok1 := t.ColumnIndex(col1)
	idx2, ok2 := t.ColumnIndex(col2)
	if !ok1 || !ok2 {
		return nil, nil
	}
	var xs, ys []float64
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		x, okX := row[idx1].(float64)
		y, okY := row[idx2].(float64)
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

// quantile linearly interpolates the q-th quantile of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := q * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := idx - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func strengthLabel(r float64) string {
	if math.Abs(r) > strongThreshold {
		return "strong"
	}
	return "moderate"
}
