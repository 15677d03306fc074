package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/querylens/querylens-engine/pkg/queryengine"
	"github.com/querylens/querylens-engine/pkg/table"
)

// CachedResult is the last successful result for one (user, dataset)
// pair, kept so follow-up questions can refine it without regenerating
// the query.
type CachedResult struct {
	Question    string
	QueryString string
	Result      *table.Table
}

// ResultStore holds one CachedResult per (user, dataset) pair with a TTL.
// Each new successful result replaces the previous one.
type ResultStore struct {
	cache *ttlcache.Cache[string, *CachedResult]
}

// NewResultStore creates a result store whose entries expire after ttl.
func NewResultStore(ttl time.Duration) *ResultStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *CachedResult](ttl),
		ttlcache.WithDisableTouchOnHit[string, *CachedResult](),
	)
	go cache.Start()
	return &ResultStore{cache: cache}
}

func resultKey(userID, datasetID uuid.UUID) string {
	return userID.String() + ":" + datasetID.String()
}

// Put stores the latest successful result for the pair.
func (s *ResultStore) Put(userID, datasetID uuid.UUID, result *CachedResult) {
	s.cache.Set(resultKey(userID, datasetID), result, ttlcache.DefaultTTL)
}

// Get returns the cached result for the pair, or nil when absent or
// expired.
func (s *ResultStore) Get(userID, datasetID uuid.UUID) *CachedResult {
	item := s.cache.Get(resultKey(userID, datasetID))
	if item == nil {
		return nil
	}
	return item.Value()
}

// Stop shuts down the expiry loop.
func (s *ResultStore) Stop() {
	s.cache.Stop()
}

// Follow-up questions refine the previous result instead of starting
// over. Two refinement kinds are recognized: re-sorting and filtering.
var (
	sortKeywords = []string{
		"sort", "order", "arrange", "ranking",
		"highest", "lowest", "top", "bottom",
		"ascending", "descending",
	}
	filterKeywords = []string{
		"filter", "show only", "exclude",
		"greater than", "more than", "above", "over",
		"less than", "fewer than", "below", "under",
	}
	ascendingKeywords = []string{"asc", "ascending", "lowest", "bottom"}

	gtPattern = regexp.MustCompile(`(?i)(?:greater than|more than|above|over|>)\s*(-?\d+(?:\.\d+)?)`)
	ltPattern = regexp.MustCompile(`(?i)(?:less than|fewer than|below|under|<)\s*(-?\d+(?:\.\d+)?)`)
	eqPattern = regexp.MustCompile(`(?i)(?:equals|equal to|exactly|==?)\s*(-?\d+(?:\.\d+)?)`)
)

// SortDelta re-sorts the previous result.
type SortDelta struct {
	Column     string
	Descending bool
}

// FilterDelta keeps only rows whose column satisfies Op against Value.
type FilterDelta struct {
	Column string
	Op     string // ">", "<" or "=="
	Value  float64
}

// Followup is a recognized refinement of a cached result.
type Followup struct {
	Sort   *SortDelta
	Filter *FilterDelta
}

// DetectFollowup decides whether the question refines the previous
// result and, if so, which refinement to apply. It needs the previous
// result's table to resolve column references. Returns nil when the
// question should go through the full pipeline.
func DetectFollowup(question string, previous *CachedResult) *Followup {
	if previous == nil || previous.Result == nil {
		return nil
	}
	lower := strings.ToLower(question)

	if containsAnyKeyword(lower, filterKeywords) {
		if delta := detectFilter(lower, previous.Result); delta != nil {
			return &Followup{Filter: delta}
		}
	}
	if containsAnyKeyword(lower, sortKeywords) {
		if delta := detectSort(lower, previous.Result); delta != nil {
			return &Followup{Sort: delta}
		}
	}
	return nil
}

func detectSort(lower string, t *table.Table) *SortDelta {
	column := findMentionedColumn(lower, t.ColumnNames())
	if column == "" {
		if numeric := t.NumericColumns(); len(numeric) > 0 {
			column = numeric[0]
		} else if names := t.ColumnNames(); len(names) > 0 {
			column = names[0]
		} else {
			return nil
		}
	}
	return &SortDelta{
		Column:     column,
		Descending: !containsAnyKeyword(lower, ascendingKeywords),
	}
}

func detectFilter(lower string, t *table.Table) *FilterDelta {
	op, value, ok := parseThreshold(lower)
	if !ok {
		return nil
	}

	column := findMentionedColumn(lower, t.NumericColumns())
	if column == "" {
		numeric := t.NumericColumns()
		if len(numeric) == 0 {
			return nil
		}
		column = numeric[0]
	}
	return &FilterDelta{Column: column, Op: op, Value: value}
}

func parseThreshold(lower string) (string, float64, bool) {
	for _, candidate := range []struct {
		pattern *regexp.Regexp
		op      string
	}{
		{gtPattern, ">"},
		{ltPattern, "<"},
		{eqPattern, "=="},
	} {
		if m := candidate.pattern.FindStringSubmatch(lower); m != nil {
			value, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				return candidate.op, value, true
			}
		}
	}
	return "", 0, false
}

// findMentionedColumn returns the first column whose name appears in the
// question, preferring longer names so "total_amount" wins over "total".
func findMentionedColumn(lower string, names []string) string {
	best := ""
	for _, name := range names {
		if strings.Contains(lower, strings.ToLower(name)) && len(name) > len(best) {
			best = name
		}
	}
	return best
}

func containsAnyKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Apply produces the refined table from the previous result.
func (f *Followup) Apply(previous *CachedResult) (*table.Table, error) {
	t := previous.Result

	switch {
	case f.Filter != nil:
		idx, ok := t.ColumnIndex(f.Filter.Column)
		if !ok {
			return nil, fmt.Errorf("column %q not in previous result", f.Filter.Column)
		}
		return t.FilterRows(func(row []any) bool {
			v, ok := row[idx].(float64)
			if !ok {
				return false
			}
			switch f.Filter.Op {
			case ">":
				return v > f.Filter.Value
			case "<":
				return v < f.Filter.Value
			default:
				return v == f.Filter.Value
			}
		}), nil

	case f.Sort != nil:
		return t.SortBy(f.Sort.Column, f.Sort.Descending)

	default:
		return nil, fmt.Errorf("empty followup")
	}
}

// Kind reports the plan kind of the applied refinement.
func (f *Followup) Kind() queryengine.Kind {
	if f.Sort != nil {
		return queryengine.KindSort
	}
	return queryengine.KindFilter
}

// Describe renders the refinement as a query-like string for history.
func (f *Followup) Describe(previousQuery string) string {
	switch {
	case f.Filter != nil:
		return fmt.Sprintf("%s [refined: %s %s %g]", previousQuery, f.Filter.Column, f.Filter.Op, f.Filter.Value)
	case f.Sort != nil:
		dir := "DESC"
		if !f.Sort.Descending {
			dir = "ASC"
		}
		return fmt.Sprintf("%s [refined: ORDER BY %s %s]", previousQuery, f.Sort.Column, dir)
	default:
		return previousQuery
	}
}
