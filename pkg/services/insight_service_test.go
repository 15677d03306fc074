package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylens/querylens-engine/pkg/llm"
	"github.com/querylens/querylens-engine/pkg/models"
	"github.com/querylens/querylens-engine/pkg/table"
)

// trendCSV has a clean upward trend and a correlated pair, enough rows
// for the analyzers to fire.
const trendCSV = `month,revenue,cost
1,10,8
2,20,15
3,30,22
4,40,30
5,50,38
6,60,45
7,70,52
8,80,60
9,90,68
10,100,75
11,110,82
12,120,90
`

const insightResponse = `{
  "insight_type": "trend",
  "title": "Revenue climbs steadily",
  "description": "Revenue increases month over month with no dips.",
  "confidence_score": 0.9,
  "recommendations": ["Keep the current strategy"]
}`

func newInsightFixture(t *testing.T, mock *llm.MockLLMClient) (*InsightService, *memInsightRepo) {
	t.Helper()
	repo := newMemInsightRepo()
	pool := llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: 2}, testLogger())
	svc := NewInsightService(repo, NewInsightGenerator(mock, testLogger()), pool, 8, testLogger())
	return svc, repo
}

func trendTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.ReadCSV([]byte(trendCSV))
	require.NoError(t, err)
	return tbl
}

func TestGenerateForDataset_StoresInsights(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return insightResponse, nil
	}
	svc, repo := newInsightFixture(t, mock)
	datasetID := uuid.New()

	stored, err := svc.GenerateForDataset(context.Background(), datasetID, trendTable(t))
	require.NoError(t, err)
	require.Greater(t, stored, 0)

	insights, err := repo.ListByDataset(context.Background(), datasetID)
	require.NoError(t, err)
	require.Len(t, insights, stored)

	for _, insight := range insights {
		assert.Equal(t, "Revenue climbs steadily", insight.Title)
		assert.InDelta(t, 0.9, insight.ConfidenceScore, 1e-9)
		assert.NotEmpty(t, insight.SupportingData)
		assert.NotEmpty(t, insight.VizConfig)
	}
}

func TestGenerateForDataset_PortFailureSkipsFindings(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "", errors.New("model unavailable")
	}
	svc, repo := newInsightFixture(t, mock)
	datasetID := uuid.New()

	stored, err := svc.GenerateForDataset(context.Background(), datasetID, trendTable(t))
	require.NoError(t, err)
	assert.Zero(t, stored)

	insights, err := repo.ListByDataset(context.Background(), datasetID)
	require.NoError(t, err)
	assert.Empty(t, insights)
}

func TestGenerateForDataset_PartialFailureKeepsRest(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		if strings.Contains(prompt, "correlation") {
			return "", errors.New("model hiccup")
		}
		return insightResponse, nil
	}
	svc, repo := newInsightFixture(t, mock)
	datasetID := uuid.New()

	stored, err := svc.GenerateForDataset(context.Background(), datasetID, trendTable(t))
	require.NoError(t, err)
	assert.Greater(t, stored, 0)

	insights, err := repo.ListByDataset(context.Background(), datasetID)
	require.NoError(t, err)
	assert.Len(t, insights, stored)
}

func TestGenerateForDataset_CapsAtMaxInsights(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return insightResponse, nil
	}
	repo := newMemInsightRepo()
	pool := llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: 2}, testLogger())
	svc := NewInsightService(repo, NewInsightGenerator(mock, testLogger()), pool, 1, testLogger())

	stored, err := svc.GenerateForDataset(context.Background(), uuid.New(), trendTable(t))
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
}

func TestGenerateForDataset_NoFindings(t *testing.T) {
	mock := llm.NewMockLLMClient()
	svc, _ := newInsightFixture(t, mock)

	// Two text columns and too few rows for any analyzer.
	tbl, err := table.ReadCSV([]byte("name,city\nann,berlin\nbob,paris\n"))
	require.NoError(t, err)

	stored, err := svc.GenerateForDataset(context.Background(), uuid.New(), tbl)
	require.NoError(t, err)
	assert.Zero(t, stored)
	assert.Zero(t, mock.GenerateResponseCalls)
}

func TestGenerateForQuery_TiesInsightToQuery(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return insightResponse, nil
	}
	svc, repo := newInsightFixture(t, mock)

	query := &models.Query{
		ID:           uuid.New(),
		DatasetID:    uuid.New(),
		QuestionText: "revenue per month",
		QueryString:  "SELECT month, revenue FROM data",
	}

	insight, err := svc.GenerateForQuery(context.Background(), query, trendTable(t))
	require.NoError(t, err)
	require.NotNil(t, insight.QueryID)
	assert.Equal(t, query.ID, *insight.QueryID)

	stored, err := repo.GetByID(context.Background(), insight.ID)
	require.NoError(t, err)
	assert.Equal(t, query.DatasetID, stored.DatasetID)
}
