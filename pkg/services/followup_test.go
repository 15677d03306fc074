package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylens/querylens-engine/pkg/queryengine"
	"github.com/querylens/querylens-engine/pkg/table"
)

func previousResult(t *testing.T) *CachedResult {
	t.Helper()
	tbl, err := table.ReadCSV([]byte("region,amount\neast,10\nwest,30\nnorth,20\n"))
	require.NoError(t, err)
	return &CachedResult{
		Question:    "sales by region",
		QueryString: "SELECT region, amount FROM data",
		Result:      tbl,
	}
}

func TestDetectFollowup_NoPrevious(t *testing.T) {
	assert.Nil(t, DetectFollowup("sort by amount", nil))
}

func TestDetectFollowup_SortDefaultsDescending(t *testing.T) {
	prev := previousResult(t)
	f := DetectFollowup("sort by amount", prev)
	require.NotNil(t, f)
	require.NotNil(t, f.Sort)
	assert.Equal(t, "amount", f.Sort.Column)
	assert.True(t, f.Sort.Descending)
}

func TestDetectFollowup_SortAscending(t *testing.T) {
	prev := previousResult(t)
	f := DetectFollowup("order by amount ascending", prev)
	require.NotNil(t, f)
	require.NotNil(t, f.Sort)
	assert.False(t, f.Sort.Descending)
}

func TestDetectFollowup_SortWithoutColumnPicksFirstNumeric(t *testing.T) {
	prev := previousResult(t)
	f := DetectFollowup("show me the highest first", prev)
	require.NotNil(t, f)
	require.NotNil(t, f.Sort)
	assert.Equal(t, "amount", f.Sort.Column)
	assert.True(t, f.Sort.Descending)
}

func TestDetectFollowup_FilterThresholds(t *testing.T) {
	prev := previousResult(t)

	tests := []struct {
		question string
		op       string
		value    float64
	}{
		{"show only amount greater than 15", ">", 15},
		{"filter rows with amount above 12.5", ">", 12.5},
		{"exclude anything, keep amount less than 25", "<", 25},
		{"show only rows where amount equals 20", "==", 20},
	}
	for _, tt := range tests {
		f := DetectFollowup(tt.question, prev)
		require.NotNil(t, f, tt.question)
		require.NotNil(t, f.Filter, tt.question)
		assert.Equal(t, tt.op, f.Filter.Op, tt.question)
		assert.Equal(t, tt.value, f.Filter.Value, tt.question)
		assert.Equal(t, "amount", f.Filter.Column, tt.question)
	}
}

func TestDetectFollowup_FreshQuestionIsNotFollowup(t *testing.T) {
	prev := previousResult(t)
	assert.Nil(t, DetectFollowup("what is the average amount per region", prev))
}

func TestFollowupApply_Filter(t *testing.T) {
	prev := previousResult(t)
	f := &Followup{Filter: &FilterDelta{Column: "amount", Op: ">", Value: 15}}

	result, err := f.Apply(prev)
	require.NoError(t, err)
	assert.Equal(t, 2, result.NumRows())
}

func TestFollowupApply_Sort(t *testing.T) {
	prev := previousResult(t)
	f := &Followup{Sort: &SortDelta{Column: "amount", Descending: true}}

	result, err := f.Apply(prev)
	require.NoError(t, err)
	assert.Equal(t, "west", result.At(0, 0))
	assert.Equal(t, "east", result.At(2, 0))
}

func TestFollowupKind_MatchesDelta(t *testing.T) {
	sort := &Followup{Sort: &SortDelta{Column: "amount", Descending: true}}
	assert.Equal(t, queryengine.KindSort, sort.Kind())

	filter := &Followup{Filter: &FilterDelta{Column: "amount", Op: ">", Value: 1}}
	assert.Equal(t, queryengine.KindFilter, filter.Kind())
}

func TestFollowupApply_SortTwiceKeepsTiedRowOrder(t *testing.T) {
	tbl, err := table.ReadCSV([]byte("region,count\neast,2\nwest,2\nnorth,1\n"))
	require.NoError(t, err)
	prev := &CachedResult{Result: tbl}
	f := &Followup{Sort: &SortDelta{Column: "count", Descending: true}}

	once, err := f.Apply(prev)
	require.NoError(t, err)
	twice, err := f.Apply(&CachedResult{Result: once})
	require.NoError(t, err)

	for _, result := range []*table.Table{once, twice} {
		assert.Equal(t, "east", result.At(0, 0))
		assert.Equal(t, "west", result.At(1, 0))
		assert.Equal(t, "north", result.At(2, 0))
	}
}

func TestFollowupApply_UnknownColumnFails(t *testing.T) {
	prev := previousResult(t)
	f := &Followup{Filter: &FilterDelta{Column: "missing", Op: ">", Value: 1}}

	_, err := f.Apply(prev)
	assert.Error(t, err)
}

func TestResultStore_RoundTripAndExpiry(t *testing.T) {
	store := NewResultStore(25 * time.Millisecond)
	defer store.Stop()

	userID := uuid.New()
	datasetID := uuid.New()
	assert.Nil(t, store.Get(userID, datasetID))

	prev := previousResult(t)
	store.Put(userID, datasetID, prev)
	require.NotNil(t, store.Get(userID, datasetID))

	// A different pair sees nothing.
	assert.Nil(t, store.Get(uuid.New(), datasetID))

	time.Sleep(60 * time.Millisecond)
	assert.Nil(t, store.Get(userID, datasetID))
}
