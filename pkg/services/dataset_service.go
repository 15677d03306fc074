package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/apperrors"
	"github.com/querylens/querylens-engine/pkg/models"
	"github.com/querylens/querylens-engine/pkg/repositories"
	"github.com/querylens/querylens-engine/pkg/storage"
	"github.com/querylens/querylens-engine/pkg/table"
)

// DefaultPreviewRows is how many rows Preview returns when the caller
// does not say.
const DefaultPreviewRows = 10

var supportedExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
}

// DatasetService manages the dataset lifecycle: upload, parse and
// profile, preview, delete.
type DatasetService struct {
	datasets       repositories.DatasetRepository
	store          storage.ObjectStore
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewDatasetService creates a dataset service.
func NewDatasetService(
	datasets repositories.DatasetRepository,
	store storage.ObjectStore,
	maxUploadBytes int64,
	logger *zap.Logger,
) *DatasetService {
	return &DatasetService{
		datasets:       datasets,
		store:          store,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.Named("dataset-service"),
	}
}

// Upload validates and stores an uploaded file, records the dataset and
// runs processing synchronously. The returned dataset reflects the final
// processing outcome, ready or error.
func (s *DatasetService) Upload(ctx context.Context, userID uuid.UUID, filename string, r io.Reader, size int64) (*models.Dataset, error) {
	ext := strings.ToLower(path.Ext(filename))
	if !supportedExtensions[ext] {
		return nil, fmt.Errorf("file %q: %w", filename, apperrors.ErrUnsupportedFile)
	}
	if size > s.maxUploadBytes {
		return nil, fmt.Errorf("file is %d bytes, limit is %d: %w", size, s.maxUploadBytes, apperrors.ErrFileTooLarge)
	}

	// Re-check while reading; the declared size is client-supplied.
	content, err := io.ReadAll(io.LimitReader(r, s.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(content)) > s.maxUploadBytes {
		return nil, fmt.Errorf("file exceeds %d bytes: %w", s.maxUploadBytes, apperrors.ErrFileTooLarge)
	}

	dataset := &models.Dataset{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     strings.TrimSuffix(filename, ext),
		Filename: filename,
		FileSize: int64(len(content)),
		Status:   models.DatasetStatusUploaded,
	}
	dataset.StoragePath = fmt.Sprintf("datasets/%s/%s", dataset.ID, filename)

	if err := s.store.Put(ctx, dataset.StoragePath, strings.NewReader(string(content)), int64(len(content))); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	if err := s.datasets.Create(ctx, dataset); err != nil {
		return nil, err
	}

	s.logger.Info("Dataset uploaded",
		zap.String("dataset_id", dataset.ID.String()),
		zap.String("filename", filename),
		zap.Int64("size", dataset.FileSize),
	)

	if err := s.Process(ctx, dataset); err != nil {
		s.logger.Warn("Dataset processing failed",
			zap.String("dataset_id", dataset.ID.String()),
			zap.Error(err),
		)
	}
	return dataset, nil
}

// Process parses and profiles a stored dataset. On success the dataset
// becomes ready with its row count, column count and schema filled in;
// on failure it becomes error with the message recorded. The passed
// dataset is updated in place.
func (s *DatasetService) Process(ctx context.Context, dataset *models.Dataset) error {
	if err := s.datasets.UpdateStatus(ctx, dataset.ID, models.DatasetStatusProcessing, nil); err != nil {
		return err
	}
	dataset.Status = models.DatasetStatusProcessing

	t, err := s.loadStored(ctx, dataset)
	if err == nil {
		err = s.applyProfile(ctx, dataset, t)
	}
	if err != nil {
		msg := err.Error()
		if updateErr := s.datasets.UpdateStatus(ctx, dataset.ID, models.DatasetStatusError, &msg); updateErr != nil {
			return updateErr
		}
		dataset.Status = models.DatasetStatusError
		dataset.ErrorMessage = &msg
		return err
	}

	if err := s.datasets.UpdateStatus(ctx, dataset.ID, models.DatasetStatusReady, nil); err != nil {
		return err
	}
	dataset.Status = models.DatasetStatusReady
	dataset.ErrorMessage = nil

	s.logger.Info("Dataset ready",
		zap.String("dataset_id", dataset.ID.String()),
		zap.Intp("rows", dataset.RowCount),
		zap.Intp("columns", dataset.ColumnCount),
	)
	return nil
}

func (s *DatasetService) applyProfile(ctx context.Context, dataset *models.Dataset, t *table.Table) error {
	profile := table.Profile(t)
	schema, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal schema profile: %w", err)
	}

	rows := t.NumRows()
	cols := t.NumColumns()
	dataset.RowCount = &rows
	dataset.ColumnCount = &cols
	dataset.Schema = schema
	return s.datasets.UpdateProfile(ctx, dataset)
}

// Get returns one dataset by ID.
func (s *DatasetService) Get(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	return s.datasets.GetByID(ctx, id)
}

// List returns all datasets owned by a user, newest first.
func (s *DatasetService) List(ctx context.Context, userID uuid.UUID) ([]*models.Dataset, error) {
	return s.datasets.ListByUser(ctx, userID)
}

// Delete removes the dataset record and its stored file. Queries and
// insights go with it via foreign keys.
func (s *DatasetService) Delete(ctx context.Context, id uuid.UUID) error {
	dataset, err := s.datasets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, dataset.StoragePath); err != nil {
		s.logger.Warn("Failed to delete stored file",
			zap.String("dataset_id", id.String()),
			zap.Error(err),
		)
	}
	return s.datasets.Delete(ctx, id)
}

// Preview returns the first n rows of a ready dataset as sanitized
// records.
func (s *DatasetService) Preview(ctx context.Context, id uuid.UUID, n int) ([]map[string]any, error) {
	if n <= 0 {
		n = DefaultPreviewRows
	}
	t, err := s.LoadTable(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.Head(n).Records(), nil
}

// LoadTable loads and parses the stored file of a ready dataset.
func (s *DatasetService) LoadTable(ctx context.Context, id uuid.UUID) (*table.Table, error) {
	dataset, err := s.datasets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !dataset.IsReady() {
		return nil, fmt.Errorf("dataset %s has status %s: %w", id, dataset.Status, apperrors.ErrDatasetNotReady)
	}
	return s.loadStored(ctx, dataset)
}

func (s *DatasetService) loadStored(ctx context.Context, dataset *models.Dataset) (*table.Table, error) {
	rc, err := s.store.Get(ctx, dataset.StoragePath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored file: %w", err)
	}
	return table.Read(content, dataset.Filename)
}

// DeleteStored removes just the stored file, used by cleanup when the
// record is deleted separately.
func (s *DatasetService) DeleteStored(ctx context.Context, dataset *models.Dataset) error {
	return s.store.Delete(ctx, dataset.StoragePath)
}
