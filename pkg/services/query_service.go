package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/apperrors"
	"github.com/querylens/querylens-engine/pkg/logging"
	"github.com/querylens/querylens-engine/pkg/models"
	"github.com/querylens/querylens-engine/pkg/queryengine"
	"github.com/querylens/querylens-engine/pkg/repositories"
	"github.com/querylens/querylens-engine/pkg/table"
	"github.com/querylens/querylens-engine/pkg/viz"
)

// QueryService answers natural-language questions over ready datasets.
// Every question becomes a query record; the record ends success with
// result rows attached, or error with the failure recorded.
type QueryService struct {
	queries   repositories.QueryRepository
	datasets  *DatasetService
	generator *QueryGenerator
	results   *ResultStore
	logger    *zap.Logger
}

// NewQueryService creates a query service.
func NewQueryService(
	queries repositories.QueryRepository,
	datasets *DatasetService,
	generator *QueryGenerator,
	results *ResultStore,
	logger *zap.Logger,
) *QueryService {
	return &QueryService{
		queries:   queries,
		datasets:  datasets,
		generator: generator,
		results:   results,
		logger:    logger.Named("query-service"),
	}
}

// Ask runs the full question pipeline. The returned query record always
// exists, whatever the outcome; the error reports terminal failures like
// an unknown or unready dataset.
func (s *QueryService) Ask(ctx context.Context, userID, datasetID uuid.UUID, question string) (*models.Query, error) {
	dataset, err := s.datasets.Get(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if !dataset.IsReady() {
		return nil, fmt.Errorf("dataset %s has status %s: %w", datasetID, dataset.Status, apperrors.ErrDatasetNotReady)
	}

	query := &models.Query{
		DatasetID:    datasetID,
		UserID:       userID,
		QuestionText: question,
		Status:       models.QueryStatusPending,
	}
	if err := s.queries.Create(ctx, query); err != nil {
		return nil, err
	}

	if err := s.answer(ctx, query, dataset, question); err != nil {
		s.logger.Info("Query failed",
			zap.String("query_id", query.ID.String()),
			zap.String("question", logging.TruncateString(question, logging.MaxQueryLogLength)),
			zap.Error(err),
		)
		msg := err.Error()
		if updateErr := s.queries.UpdateError(ctx, query.ID, msg); updateErr != nil {
			return query, updateErr
		}
		query.Status = models.QueryStatusError
		query.ErrorMessage = &msg
	}
	return query, nil
}

func (s *QueryService) answer(ctx context.Context, query *models.Query, dataset *models.Dataset, question string) error {
	// Follow-up questions refine the cached previous result when one
	// exists and the refinement applies cleanly; anything else goes
	// through the full generate-compile-execute pipeline.
	previous := s.results.Get(query.UserID, query.DatasetID)
	if followup := DetectFollowup(question, previous); followup != nil {
		result, err := followup.Apply(previous)
		if err == nil {
			query.QueryType = "followup"
			query.QueryString = followup.Describe(previous.QueryString)
			query.Explanation = "Refined the previous result."
			return s.finish(ctx, query, result, followup.Kind())
		}
		s.logger.Debug("Followup refinement failed, recompiling",
			zap.String("query_id", query.ID.String()),
			zap.Error(err),
		)
	}

	t, err := s.datasets.LoadTable(ctx, query.DatasetID)
	if err != nil {
		return err
	}

	profile := table.Profile(t)
	generated, err := s.generator.Generate(ctx, profile.Format(), question)
	if err != nil {
		return err
	}
	query.QueryType = generated.QueryType
	query.QueryString = generated.QueryString
	query.Explanation = generated.Explanation

	result, plan, err := queryengine.Compile(t, generated.QueryString)
	if err != nil {
		return err
	}
	return s.finish(ctx, query, result, plan.Kind)
}

// finish sanitizes and persists a successful result, then refreshes the
// follow-up cache.
func (s *QueryService) finish(ctx context.Context, query *models.Query, result *table.Table, kind queryengine.Kind) error {
	records := result.Records()
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	rowCount := result.NumRows()
	query.Status = models.QueryStatusSuccess
	query.Result = payload
	query.RowCount = &rowCount
	query.VisualizationType = string(viz.ResolveType(result, true, query.QuestionText, kind))

	if err := s.queries.UpdateResult(ctx, query); err != nil {
		return err
	}

	s.results.Put(query.UserID, query.DatasetID, &CachedResult{
		Question:    query.QuestionText,
		QueryString: query.QueryString,
		Result:      result,
	})

	s.logger.Info("Query answered",
		zap.String("query_id", query.ID.String()),
		zap.Int("rows", rowCount),
		zap.String("visualization", query.VisualizationType),
	)
	return nil
}

// Get returns one query record.
func (s *QueryService) Get(ctx context.Context, id uuid.UUID) (*models.Query, error) {
	return s.queries.GetByID(ctx, id)
}

// History returns all query records for a dataset, newest first.
func (s *QueryService) History(ctx context.Context, datasetID uuid.UUID) ([]*models.Query, error) {
	return s.queries.ListByDataset(ctx, datasetID)
}

// SubmitFeedback records a thumbs up or down on a query result.
func (s *QueryService) SubmitFeedback(ctx context.Context, id uuid.UUID, feedback string) error {
	if !models.IsValidFeedback(feedback) {
		return fmt.Errorf("feedback %q: %w", feedback, apperrors.ErrInvalidFeedback)
	}
	return s.queries.UpdateFeedback(ctx, id, feedback)
}
