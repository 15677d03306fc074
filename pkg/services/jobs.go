package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/models"
	"github.com/querylens/querylens-engine/pkg/repositories"
)

// InsightSweeper periodically generates insights for ready datasets that
// have none, or whose newest insight is older than the recency window.
type InsightSweeper struct {
	datasets   repositories.DatasetRepository
	insights   repositories.InsightRepository
	datasetSvc *DatasetService
	insightSvc *InsightService
	interval   time.Duration
	recency    time.Duration
	logger     *zap.Logger
}

// NewInsightSweeper creates the sweep job.
func NewInsightSweeper(
	datasets repositories.DatasetRepository,
	insights repositories.InsightRepository,
	datasetSvc *DatasetService,
	insightSvc *InsightService,
	interval, recency time.Duration,
	logger *zap.Logger,
) *InsightSweeper {
	return &InsightSweeper{
		datasets:   datasets,
		insights:   insights,
		datasetSvc: datasetSvc,
		insightSvc: insightSvc,
		interval:   interval,
		recency:    recency,
		logger:     logger.Named("insight-sweeper"),
	}
}

// Run sweeps on the configured interval until the context is canceled.
// A zero interval disables the sweep.
func (s *InsightSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Insight sweep disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. A dataset failing never stops the rest.
func (s *InsightSweeper) Sweep(ctx context.Context) {
	datasets, err := s.datasets.ListByStatus(ctx, models.DatasetStatusReady)
	if err != nil {
		s.logger.Warn("Sweep failed to list datasets", zap.Error(err))
		return
	}

	swept := 0
	for _, dataset := range datasets {
		if ctx.Err() != nil {
			return
		}

		latest, err := s.insights.LatestCreatedAt(ctx, dataset.ID)
		if err != nil {
			s.logger.Warn("Failed to check insight recency",
				zap.String("dataset_id", dataset.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if latest != nil && time.Since(*latest) < s.recency {
			continue
		}

		t, err := s.datasetSvc.LoadTable(ctx, dataset.ID)
		if err != nil {
			s.logger.Warn("Failed to load dataset for sweep",
				zap.String("dataset_id", dataset.ID.String()),
				zap.Error(err),
			)
			continue
		}

		if _, err := s.insightSvc.GenerateForDataset(ctx, dataset.ID, t); err != nil {
			s.logger.Warn("Insight generation failed",
				zap.String("dataset_id", dataset.ID.String()),
				zap.Error(err),
			)
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.Info("Insight sweep complete", zap.Int("datasets", swept))
	}
}

// CleanupJob periodically removes stale data: failed datasets past their
// retention, stored result rows past theirs, and orphaned insights.
type CleanupJob struct {
	datasets   repositories.DatasetRepository
	queries    repositories.QueryRepository
	insights   repositories.InsightRepository
	datasetSvc *DatasetService

	interval        time.Duration
	failedRetention time.Duration
	resultRetention time.Duration
	logger          *zap.Logger
}

// NewCleanupJob creates the cleanup job.
func NewCleanupJob(
	datasets repositories.DatasetRepository,
	queries repositories.QueryRepository,
	insights repositories.InsightRepository,
	datasetSvc *DatasetService,
	interval, failedRetention, resultRetention time.Duration,
	logger *zap.Logger,
) *CleanupJob {
	return &CleanupJob{
		datasets:        datasets,
		queries:         queries,
		insights:        insights,
		datasetSvc:      datasetSvc,
		interval:        interval,
		failedRetention: failedRetention,
		resultRetention: resultRetention,
		logger:          logger.Named("cleanup"),
	}
}

// Run cleans on the configured interval until the context is canceled.
// A zero interval disables cleanup.
func (j *CleanupJob) Run(ctx context.Context) {
	if j.interval <= 0 {
		j.logger.Info("Cleanup disabled")
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Clean(ctx)
		}
	}
}

// Clean runs one cleanup pass.
func (j *CleanupJob) Clean(ctx context.Context) {
	now := time.Now().UTC()

	failed, err := j.datasets.ListFailedBefore(ctx, now.Add(-j.failedRetention))
	if err != nil {
		j.logger.Warn("Failed to list stale failed datasets", zap.Error(err))
	} else {
		for _, dataset := range failed {
			if err := j.datasetSvc.DeleteStored(ctx, dataset); err != nil {
				j.logger.Warn("Failed to delete stored file",
					zap.String("dataset_id", dataset.ID.String()),
					zap.Error(err),
				)
			}
			if err := j.datasets.Delete(ctx, dataset.ID); err != nil {
				j.logger.Warn("Failed to delete failed dataset",
					zap.String("dataset_id", dataset.ID.String()),
					zap.Error(err),
				)
				continue
			}
			j.logger.Info("Removed failed dataset",
				zap.String("dataset_id", dataset.ID.String()),
			)
		}
	}

	cleared, err := j.queries.ClearResultsBefore(ctx, now.Add(-j.resultRetention))
	if err != nil {
		j.logger.Warn("Failed to clear old query results", zap.Error(err))
	} else if cleared > 0 {
		j.logger.Info("Cleared old query results", zap.Int64("queries", cleared))
	}

	orphaned, err := j.insights.DeleteOrphaned(ctx)
	if err != nil {
		j.logger.Warn("Failed to delete orphaned insights", zap.Error(err))
	} else if orphaned > 0 {
		j.logger.Info("Deleted orphaned insights", zap.Int64("insights", orphaned))
	}
}
