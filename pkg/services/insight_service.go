package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/llm"
	"github.com/querylens/querylens-engine/pkg/models"
	"github.com/querylens/querylens-engine/pkg/repositories"
	"github.com/querylens/querylens-engine/pkg/stats"
	"github.com/querylens/querylens-engine/pkg/table"
	"github.com/querylens/querylens-engine/pkg/viz"
)

// findingsPerFamily caps how many findings of each kind (correlation,
// distribution, anomaly, trend) are narrated per run.
const findingsPerFamily = 2

// InsightService turns statistical findings into stored, narrated
// insights.
type InsightService struct {
	insights    repositories.InsightRepository
	generator   *InsightGenerator
	pool        *llm.WorkerPool
	maxInsights int
	logger      *zap.Logger
}

// NewInsightService creates an insight service.
func NewInsightService(
	insights repositories.InsightRepository,
	generator *InsightGenerator,
	pool *llm.WorkerPool,
	maxInsights int,
	logger *zap.Logger,
) *InsightService {
	return &InsightService{
		insights:    insights,
		generator:   generator,
		pool:        pool,
		maxInsights: maxInsights,
		logger:      logger.Named("insight-service"),
	}
}

// GenerateForDataset analyzes the table, narrates the strongest findings
// through the insight-generation port and persists the results. One
// finding failing to narrate or persist never stops the others; the
// count of stored insights is returned.
func (s *InsightService) GenerateForDataset(ctx context.Context, datasetID uuid.UUID, t *table.Table) (int, error) {
	analysis := stats.Analyze(t)
	findings := analysis.TopFindings(findingsPerFamily)
	if len(findings) > s.maxInsights {
		findings = findings[:s.maxInsights]
	}
	if len(findings) == 0 {
		s.logger.Debug("No findings to narrate", zap.String("dataset_id", datasetID.String()))
		return 0, nil
	}

	overview := stats.Summarize(t).Format()

	items := make([]llm.WorkItem[*models.Insight], 0, len(findings))
	for i, finding := range findings {
		finding := finding
		items = append(items, llm.WorkItem[*models.Insight]{
			ID: fmt.Sprintf("%s/%s-%d", datasetID, finding.Type(), i),
			Execute: func(ctx context.Context) (*models.Insight, error) {
				return s.narrate(ctx, datasetID, overview, finding)
			},
		})
	}

	stored := 0
	for _, result := range llm.Process(ctx, s.pool, items, nil) {
		if result.Err != nil {
			s.logger.Warn("Skipping finding",
				zap.String("item", result.ID),
				zap.Error(result.Err),
			)
			continue
		}
		if err := s.insights.Create(ctx, result.Result); err != nil {
			s.logger.Warn("Failed to store insight",
				zap.String("item", result.ID),
				zap.Error(err),
			)
			continue
		}
		stored++
	}

	s.logger.Info("Generated insights",
		zap.String("dataset_id", datasetID.String()),
		zap.Int("findings", len(findings)),
		zap.Int("stored", stored),
	)
	return stored, nil
}

func (s *InsightService) narrate(ctx context.Context, datasetID uuid.UUID, overview string, finding stats.Finding) (*models.Insight, error) {
	generated, err := s.generator.Generate(ctx, overview, finding.Describe(), "")
	if err != nil {
		return nil, err
	}

	supporting, err := json.Marshal(finding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal finding: %w", err)
	}
	vizConfig, err := json.Marshal(viz.ConfigForFinding(finding))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal visualization config: %w", err)
	}

	insightType := generated.InsightType
	if insightType == "" {
		insightType = finding.Type()
	}

	return &models.Insight{
		DatasetID:       datasetID,
		InsightType:     insightType,
		Title:           models.ClampTitle(generated.Title),
		Description:     generated.Description,
		ConfidenceScore: generated.Confidence(),
		SupportingData:  supporting,
		VizConfig:       vizConfig,
	}, nil
}

// GenerateForQuery narrates an insight tied to one query result, using
// the result rows as supporting data.
func (s *InsightService) GenerateForQuery(ctx context.Context, query *models.Query, result *table.Table) (*models.Insight, error) {
	overview := stats.Summarize(result).Format()
	queryContext := fmt.Sprintf("Question: %s\nQuery: %s", query.QuestionText, query.QueryString)

	findings := stats.Analyze(result).TopFindings(1)
	findingText := "No statistically significant pattern was detected."
	if len(findings) > 0 {
		findingText = findings[0].Describe()
	}

	generated, err := s.generator.Generate(ctx, overview, findingText, queryContext)
	if err != nil {
		return nil, err
	}

	records := result.Records()
	supporting, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal supporting data: %w", err)
	}
	vizConfig, err := json.Marshal(viz.ConfigForSupportingData(records))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal visualization config: %w", err)
	}

	insightType := generated.InsightType
	if insightType == "" {
		insightType = models.InsightTypeSummary
	}

	insight := &models.Insight{
		DatasetID:       query.DatasetID,
		QueryID:         &query.ID,
		InsightType:     insightType,
		Title:           models.ClampTitle(generated.Title),
		Description:     generated.Description,
		ConfidenceScore: generated.Confidence(),
		SupportingData:  supporting,
		VizConfig:       vizConfig,
	}
	if err := s.insights.Create(ctx, insight); err != nil {
		return nil, err
	}
	return insight, nil
}

// Get returns one insight.
func (s *InsightService) Get(ctx context.Context, id uuid.UUID) (*models.Insight, error) {
	return s.insights.GetByID(ctx, id)
}

// List returns a dataset's insights ordered by confidence.
func (s *InsightService) List(ctx context.Context, datasetID uuid.UUID) ([]*models.Insight, error) {
	return s.insights.ListByDataset(ctx, datasetID)
}

// Delete removes one insight.
func (s *InsightService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.insights.Delete(ctx, id)
}
