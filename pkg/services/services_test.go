package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/apperrors"
	"github.com/querylens/querylens-engine/pkg/models"
	"github.com/querylens/querylens-engine/pkg/repositories"
)

// In-memory repository fakes shared by the service tests.

type memDatasetRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.Dataset
}

var _ repositories.DatasetRepository = (*memDatasetRepo)(nil)

func newMemDatasetRepo() *memDatasetRepo {
	return &memDatasetRepo{items: map[uuid.UUID]*models.Dataset{}}
}

func (r *memDatasetRepo) Create(ctx context.Context, d *models.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	copied := *d
	r.items[d.ID] = &copied
	return nil
}

func (r *memDatasetRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *memDatasetRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Dataset
	for _, d := range r.items {
		if d.UserID == userID {
			copied := *d
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memDatasetRepo) ListByStatus(ctx context.Context, status string) ([]*models.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Dataset
	for _, d := range r.items {
		if d.Status == status {
			copied := *d
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memDatasetRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	d.Status = status
	d.ErrorMessage = errorMessage
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memDatasetRepo) UpdateProfile(ctx context.Context, dataset *models.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[dataset.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	d.RowCount = dataset.RowCount
	d.ColumnCount = dataset.ColumnCount
	d.Schema = dataset.Schema
	return nil
}

func (r *memDatasetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memDatasetRepo) ListFailedBefore(ctx context.Context, cutoff time.Time) ([]*models.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Dataset
	for _, d := range r.items {
		if d.Status == models.DatasetStatusError && d.UpdatedAt.Before(cutoff) {
			copied := *d
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memQueryRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.Query
}

var _ repositories.QueryRepository = (*memQueryRepo)(nil)

func newMemQueryRepo() *memQueryRepo {
	return &memQueryRepo{items: map[uuid.UUID]*models.Query{}}
}

func (r *memQueryRepo) Create(ctx context.Context, q *models.Query) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	q.CreatedAt = time.Now().UTC()
	copied := *q
	r.items[q.ID] = &copied
	return nil
}

func (r *memQueryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Query, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *q
	return &copied, nil
}

func (r *memQueryRepo) ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]*models.Query, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Query
	for _, q := range r.items {
		if q.DatasetID == datasetID {
			copied := *q
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memQueryRepo) UpdateResult(ctx context.Context, query *models.Query) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.items[query.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	q.QueryType = query.QueryType
	q.QueryString = query.QueryString
	q.Explanation = query.Explanation
	q.Status = query.Status
	q.ErrorMessage = nil
	q.Result = query.Result
	q.RowCount = query.RowCount
	q.VisualizationType = query.VisualizationType
	return nil
}

func (r *memQueryRepo) UpdateError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.items[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	q.Status = models.QueryStatusError
	q.ErrorMessage = &errorMessage
	return nil
}

func (r *memQueryRepo) UpdateFeedback(ctx context.Context, id uuid.UUID, feedback string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.items[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	q.UserFeedback = &feedback
	return nil
}

func (r *memQueryRepo) ClearResultsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var cleared int64
	for _, q := range r.items {
		if q.CreatedAt.Before(cutoff) && q.Result != nil {
			q.Result = nil
			cleared++
		}
	}
	return cleared, nil
}

type memInsightRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.Insight
}

var _ repositories.InsightRepository = (*memInsightRepo)(nil)

func newMemInsightRepo() *memInsightRepo {
	return &memInsightRepo{items: map[uuid.UUID]*models.Insight{}}
}

func (r *memInsightRepo) Create(ctx context.Context, i *models.Insight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	i.CreatedAt = time.Now().UTC()
	copied := *i
	r.items[i.ID] = &copied
	return nil
}

func (r *memInsightRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Insight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *i
	return &copied, nil
}

func (r *memInsightRepo) ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]*models.Insight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Insight
	for _, i := range r.items {
		if i.DatasetID == datasetID {
			copied := *i
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memInsightRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memInsightRepo) LatestCreatedAt(ctx context.Context, datasetID uuid.UUID) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *time.Time
	for _, i := range r.items {
		if i.DatasetID == datasetID && (latest == nil || i.CreatedAt.After(*latest)) {
			t := i.CreatedAt
			latest = &t
		}
	}
	return latest, nil
}

func (r *memInsightRepo) DeleteOrphaned(ctx context.Context) (int64, error) {
	return 0, nil
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
