// Package repositories provides PostgreSQL data access for datasets,
// queries and insights.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/querylens/querylens-engine/pkg/apperrors"
	"github.com/querylens/querylens-engine/pkg/database"
	"github.com/querylens/querylens-engine/pkg/models"
)

// DatasetRepository provides data access for datasets.
type DatasetRepository interface {
	Create(ctx context.Context, dataset *models.Dataset) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dataset, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Dataset, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Dataset, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
	UpdateProfile(ctx context.Context, dataset *models.Dataset) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListFailedBefore(ctx context.Context, cutoff time.Time) ([]*models.Dataset, error)
}

type datasetRepository struct {
	db *database.DB
}

// NewDatasetRepository creates a dataset repository.
func NewDatasetRepository(db *database.DB) DatasetRepository {
	return &datasetRepository{db: db}
}

var _ DatasetRepository = (*datasetRepository)(nil)

const datasetColumns = `id, user_id, name, filename, storage_path, file_size,
       status, error_message, row_count, column_count, schema,
       created_at, updated_at`

func (r *datasetRepository) Create(ctx context.Context, dataset *models.Dataset) error {
	if dataset.ID == uuid.Nil {
		dataset.ID = uuid.New()
	}
	now := time.Now().UTC()
	dataset.CreatedAt = now
	dataset.UpdatedAt = now

	query := `
		INSERT INTO datasets (
			id, user_id, name, filename, storage_path, file_size,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		dataset.ID,
		dataset.UserID,
		dataset.Name,
		dataset.Filename,
		dataset.StoragePath,
		dataset.FileSize,
		dataset.Status,
		dataset.CreatedAt,
		dataset.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	return nil
}

func (r *datasetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	query := fmt.Sprintf(`SELECT %s FROM datasets WHERE id = $1`, datasetColumns)

	dataset, err := scanDataset(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("dataset %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return dataset, nil
}

func (r *datasetRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Dataset, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM datasets
		WHERE user_id = $1
		ORDER BY created_at DESC`, datasetColumns)

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	return collectDatasets(rows)
}

func (r *datasetRepository) ListByStatus(ctx context.Context, status string) ([]*models.Dataset, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM datasets
		WHERE status = $1
		ORDER BY created_at DESC`, datasetColumns)

	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets by status: %w", err)
	}
	defer rows.Close()

	return collectDatasets(rows)
}

func (r *datasetRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	query := `
		UPDATE datasets
		SET status = $2, error_message = $3, updated_at = now()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to update dataset status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dataset %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// UpdateProfile stores the shape discovered during processing: row and
// column counts plus the serialized schema profile.
func (r *datasetRepository) UpdateProfile(ctx context.Context, dataset *models.Dataset) error {
	query := `
		UPDATE datasets
		SET row_count = $2, column_count = $3, schema = $4, updated_at = now()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		dataset.ID,
		dataset.RowCount,
		dataset.ColumnCount,
		[]byte(dataset.Schema),
	)
	if err != nil {
		return fmt.Errorf("failed to update dataset profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dataset %s: %w", dataset.ID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *datasetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dataset %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// ListFailedBefore returns datasets stuck in error status since before the
// cutoff; the cleanup job removes them together with their stored files.
func (r *datasetRepository) ListFailedBefore(ctx context.Context, cutoff time.Time) ([]*models.Dataset, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM datasets
		WHERE status = $1 AND updated_at < $2`, datasetColumns)

	rows, err := r.db.Query(ctx, query, models.DatasetStatusError, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed datasets: %w", err)
	}
	defer rows.Close()

	return collectDatasets(rows)
}

func collectDatasets(rows pgx.Rows) ([]*models.Dataset, error) {
	var datasets []*models.Dataset
	for rows.Next() {
		dataset, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, dataset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate datasets: %w", err)
	}
	return datasets, nil
}

func scanDataset(row pgx.Row) (*models.Dataset, error) {
	var dataset models.Dataset
	var schema []byte

	err := row.Scan(
		&dataset.ID,
		&dataset.UserID,
		&dataset.Name,
		&dataset.Filename,
		&dataset.StoragePath,
		&dataset.FileSize,
		&dataset.Status,
		&dataset.ErrorMessage,
		&dataset.RowCount,
		&dataset.ColumnCount,
		&schema,
		&dataset.CreatedAt,
		&dataset.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	dataset.Schema = schema
	return &dataset, nil
}
