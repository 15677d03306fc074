package viz

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/querylens/querylens-engine/pkg/stats"
)

const (
	maxLinePoints      = 50
	maxFrequencyValues = 15
)

// palette colors repeat when a chart carries more series or bars than
// there are entries.
var palette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2",
	"#59a14f", "#edc949", "#af7aa1", "#ff9da7",
}

func paletteColor(i int) string { return palette[i%len(palette)] }

// Series is one labeled data series of a chart.
type Series struct {
	Label           string `json:"label"`
	Data            []any  `json:"data"`
	BackgroundColor any    `json:"backgroundColor,omitempty"`
	BorderColor     string `json:"borderColor,omitempty"`
}

// Config is a finite, JSON-compatible chart description.
type Config struct {
	Type    ChartType      `json:"type"`
	Labels  []string       `json:"labels"`
	Series  []Series       `json:"datasets"`
	Options map[string]any `json:"options,omitempty"`
}

func emptyConfig() *Config {
	return &Config{Type: ChartBar, Labels: []string{}, Series: []Series{}}
}

// ConfigForFinding maps a statistical finding to its chart shape:
// correlations become scatter plots, trends lines, distributions bars and
// anomalies scatter plots with a separate outlier series.
func ConfigForFinding(f stats.Finding) *Config {
	switch finding := f.(type) {
	case stats.CorrelationFinding:
		return &Config{
			Type:   ChartScatter,
			Labels: []string{},
			Series: []Series{{
				Label:           fmt.Sprintf("%s vs %s", finding.Column1, finding.Column2),
				Data:            []any{},
				BackgroundColor: paletteColor(0),
			}},
			Options: map[string]any{
				"xAxisLabel": finding.Column1,
				"yAxisLabel": finding.Column2,
			},
		}

	case stats.TrendFinding:
		color := "#59a14f"
		if finding.Direction == "decreasing" {
			color = "#e15759"
		}
		return &Config{
			Type:   ChartLine,
			Labels: []string{},
			Series: []Series{{
				Label:       finding.Column,
				Data:        []any{},
				BorderColor: color,
			}},
		}

	case stats.DistributionFinding:
		return &Config{
			Type:   ChartBar,
			Labels: []string{"mean", "median", "std"},
			Series: []Series{{
				Label:           finding.Column,
				Data:            []any{finding.Mean, finding.Median, finding.Std},
				BackgroundColor: paletteColor(0),
			}},
		}

	case stats.AnomalyFinding:
		points := make([]any, len(finding.SampleOutliers))
		for i, v := range finding.SampleOutliers {
			points[i] = map[string]any{"x": i, "y": v}
		}
		return &Config{
			Type:   ChartScatter,
			Labels: []string{},
			Series: []Series{
				{Label: finding.Column, Data: []any{}, BackgroundColor: paletteColor(0)},
				{Label: "outliers", Data: points, BackgroundColor: "#e15759"},
			},
		}

	default:
		return emptyConfig()
	}
}

// ConfigForSupportingData builds a chart from free-form supporting data by
// shape: category/value records become a bar chart, records with several
// numeric metrics a grouped bar chart, numeric lists a line chart and
// string lists a frequency bar chart. Unrecognized shapes get an empty
// chart shell.
func ConfigForSupportingData(data any) *Config {
	switch v := data.(type) {
	case []map[string]any:
		return configForRecords(v)
	case []float64:
		anys := make([]any, len(v))
		for i, f := range v {
			anys[i] = f
		}
		return numericLine(anys)
	case []string:
		anys := make([]any, len(v))
		for i, s := range v {
			anys[i] = s
		}
		return frequencyBar(anys)
	case []any:
		if len(v) == 0 {
			return emptyConfig()
		}
		switch v[0].(type) {
		case float64:
			return numericLine(v)
		case string:
			return frequencyBar(v)
		}
		if records, ok := toRecords(v); ok {
			return configForRecords(records)
		}
		return emptyConfig()
	default:
		return emptyConfig()
	}
}

func toRecords(items []any) ([]map[string]any, bool) {
	records := make([]map[string]any, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		records[i] = rec
	}
	return records, true
}

func configForRecords(records []map[string]any) *Config {
	if len(records) == 0 {
		return emptyConfig()
	}

	first := records[0]
	if _, hasCat := first["category"]; hasCat {
		if _, hasVal := first["value"]; hasVal {
			return categoryValueBar(records)
		}
	}

	var numericKeys, stringKeys []string
	for k, v := range first {
		switch v.(type) {
		case float64:
			numericKeys = append(numericKeys, k)
		case string:
			stringKeys = append(stringKeys, k)
		}
	}
	sort.Strings(numericKeys)
	sort.Strings(stringKeys)

	if len(numericKeys) == 0 {
		return emptyConfig()
	}

	labels := make([]string, len(records))
	for i, rec := range records {
		if len(stringKeys) > 0 {
			labels[i] = fmt.Sprint(rec[stringKeys[0]])
		} else {
			labels[i] = strconv.Itoa(i + 1)
		}
	}

	series := make([]Series, len(numericKeys))
	for s, key := range numericKeys {
		data := make([]any, len(records))
		for i, rec := range records {
			data[i] = rec[key]
		}
		series[s] = Series{
			Label:           key,
			Data:            data,
			BackgroundColor: paletteColor(s),
		}
	}
	return &Config{Type: ChartBar, Labels: labels, Series: series}
}

func categoryValueBar(records []map[string]any) *Config {
	labels := make([]string, len(records))
	data := make([]any, len(records))
	colors := make([]string, len(records))
	for i, rec := range records {
		labels[i] = fmt.Sprint(rec["category"])
		data[i] = rec["value"]
		colors[i] = paletteColor(i)
	}
	return &Config{
		Type:   ChartBar,
		Labels: labels,
		Series: []Series{{Label: "value", Data: data, BackgroundColor: colors}},
	}
}

func numericLine(values []any) *Config {
	if len(values) > maxLinePoints {
		values = values[:maxLinePoints]
	}
	labels := make([]string, len(values))
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}
	return &Config{
		Type:   ChartLine,
		Labels: labels,
		Series: []Series{{Label: "values", Data: values, BorderColor: paletteColor(0)}},
	}
}

// frequencyBar charts the 15 most common values of a string list.
func frequencyBar(values []any) *Config {
	counts := make(map[string]int)
	for _, v := range values {
		counts[fmt.Sprint(v)]++
	}

	type freq struct {
		value string
		count int
	}
	all := make([]freq, 0, len(counts))
	for v, c := range counts {
		all = append(all, freq{value: v, count: c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].value < all[j].value
	})
	if len(all) > maxFrequencyValues {
		all = all[:maxFrequencyValues]
	}

	labels := make([]string, len(all))
	data := make([]any, len(all))
	colors := make([]string, len(all))
	for i, f := range all {
		labels[i] = f.value
		data[i] = float64(f.count)
		colors[i] = paletteColor(i)
	}
	return &Config{
		Type:   ChartBar,
		Labels: labels,
		Series: []Series{{Label: "frequency", Data: data, BackgroundColor: colors}},
	}
}
