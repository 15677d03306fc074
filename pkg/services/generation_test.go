package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylens/querylens-engine/pkg/apperrors"
	"github.com/querylens/querylens-engine/pkg/llm"
)

func TestQueryGenerator_ParsesWrappedJSON(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "Here is the query:\n```json\n" + generationResponse("SELECT COUNT(*) FROM data") + "\n```", nil
	}
	gen := NewQueryGenerator(mock, testLogger())

	generated, err := gen.Generate(context.Background(), "schema", "how many rows")
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM data", generated.QueryString)
	assert.Equal(t, "aggregation", generated.QueryType)
}

func TestQueryGenerator_EmptyQueryFails(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return generationResponse("  "), nil
	}
	gen := NewQueryGenerator(mock, testLogger())

	_, err := gen.Generate(context.Background(), "schema", "question")
	assert.Error(t, err)
}

func TestQueryGenerator_NilClient(t *testing.T) {
	gen := NewQueryGenerator(nil, testLogger())
	_, err := gen.Generate(context.Background(), "schema", "question")
	assert.True(t, errors.Is(err, apperrors.ErrPortNotConfigured))
}

func TestInsightGenerator_PropagatesPortError(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "", errors.New("boom")
	}
	gen := NewInsightGenerator(mock, testLogger())

	_, err := gen.Generate(context.Background(), "overview", "finding", "")
	assert.Error(t, err)
}

func TestGeneratedInsightConfidence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"number", `0.7`, 0.7},
		{"quoted", `"0.4"`, 0.4},
		{"above one clamps", `3`, 1},
		{"negative clamps", `-0.5`, 0},
		{"garbage", `"high"`, 0},
		{"missing", `null`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &GeneratedInsight{ConfidenceScore: json.RawMessage(tt.raw)}
			assert.InDelta(t, tt.want, g.Confidence(), 1e-9)
		})
	}
}
