// Package services contains the application services: dataset lifecycle,
// question answering, insight generation and the background jobs that
// keep them tidy.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/apperrors"
	"github.com/querylens/querylens-engine/pkg/jsonutil"
	"github.com/querylens/querylens-engine/pkg/llm"
	"github.com/querylens/querylens-engine/pkg/prompts"
	"github.com/querylens/querylens-engine/pkg/retry"
)

const (
	queryGenTemperature   = 0.1
	insightGenTemperature = 0.4
)

// portRetry backs off briefly on transient port failures. Permanent
// failures (auth, bad model) surface immediately via llm.Error.
var portRetry = &retry.Config{
	MaxRetries:   2,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     5 * time.Second,
	Multiplier:   2.0,
	JitterFactor: 0.1,
}

func generateWithRetry(ctx context.Context, client llm.LLMClient, prompt, system string, temperature float64) (string, error) {
	var response string
	err := retry.DoIfRetryable(ctx, portRetry, func() error {
		var err error
		response, err = client.GenerateResponse(ctx, prompt, system, temperature)
		return err
	})
	return response, err
}

// GeneratedQuery is the parsed response of the query-generation port.
type GeneratedQuery struct {
	QueryType             string `json:"query_type"`
	QueryString           string `json:"query_string"`
	Explanation           string `json:"explanation"`
	VisualizationTypeHint string `json:"visualization_type_hint"`
}

// GeneratedInsight is the parsed response of the insight-generation port.
// ConfidenceScore stays raw because models sometimes return it as a string.
type GeneratedInsight struct {
	InsightType     string          `json:"insight_type"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	ConfidenceScore json.RawMessage `json:"confidence_score"`
	Recommendations []string        `json:"recommendations"`
}

// Confidence returns the confidence score clamped to [0, 1].
func (g *GeneratedInsight) Confidence() float64 {
	score, ok := jsonutil.FlexibleFloatValue(g.ConfidenceScore)
	if !ok {
		return 0
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// QueryGenerator invokes the query-generation port: schema plus question
// in, a constrained query out.
type QueryGenerator struct {
	client llm.LLMClient
	logger *zap.Logger
}

// NewQueryGenerator creates a query generator. A nil client leaves the
// port unconfigured; Generate then fails with ErrPortNotConfigured.
func NewQueryGenerator(client llm.LLMClient, logger *zap.Logger) *QueryGenerator {
	return &QueryGenerator{
		client: client,
		logger: logger.Named("query-generator"),
	}
}

// Generate asks the model for a query answering the question over the
// given schema description.
func (g *QueryGenerator) Generate(ctx context.Context, schema, question string) (*GeneratedQuery, error) {
	if g.client == nil {
		return nil, apperrors.ErrPortNotConfigured
	}

	system, user := prompts.QueryGeneration(schema, question)
	response, err := generateWithRetry(ctx, g.client, user, system, queryGenTemperature)
	if err != nil {
		return nil, fmt.Errorf("query generation failed: %w", err)
	}

	generated, err := llm.ParseJSONResponse[GeneratedQuery](response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query generation response: %w", err)
	}

	generated.QueryString = strings.TrimSpace(generated.QueryString)
	if generated.QueryString == "" {
		return nil, fmt.Errorf("query generation returned an empty query")
	}

	g.logger.Debug("Generated query",
		zap.String("query_type", generated.QueryType),
		zap.String("query_string", generated.QueryString),
	)
	return &generated, nil
}

// InsightGenerator invokes the insight-generation port: a dataset
// overview and one statistical finding in, a narrated insight out.
type InsightGenerator struct {
	client llm.LLMClient
	logger *zap.Logger
}

// NewInsightGenerator creates an insight generator.
func NewInsightGenerator(client llm.LLMClient, logger *zap.Logger) *InsightGenerator {
	return &InsightGenerator{
		client: client,
		logger: logger.Named("insight-generator"),
	}
}

// Generate narrates one finding. queryContext is optional.
func (g *InsightGenerator) Generate(ctx context.Context, overview, finding, queryContext string) (*GeneratedInsight, error) {
	if g.client == nil {
		return nil, apperrors.ErrPortNotConfigured
	}

	system, user := prompts.InsightGeneration(overview, finding, queryContext)
	response, err := generateWithRetry(ctx, g.client, user, system, insightGenTemperature)
	if err != nil {
		return nil, fmt.Errorf("insight generation failed: %w", err)
	}

	generated, err := llm.ParseJSONResponse[GeneratedInsight](response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse insight generation response: %w", err)
	}

	if strings.TrimSpace(generated.Title) == "" {
		return nil, fmt.Errorf("insight generation returned an empty title")
	}
	return &generated, nil
}
