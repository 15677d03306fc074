package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylens/querylens-engine/pkg/apperrors"
	"github.com/querylens/querylens-engine/pkg/models"
	"github.com/querylens/querylens-engine/pkg/storage"
)

const salesCSV = "region,amount,category\neast,10,a\neast,30,a\nwest,5,b\n"

func newDatasetFixture(t *testing.T) (*DatasetService, *memDatasetRepo) {
	t.Helper()
	store, err := storage.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	repo := newMemDatasetRepo()
	return NewDatasetService(repo, store, 1<<20, testLogger()), repo
}

func TestDatasetUpload_CSVBecomesReady(t *testing.T) {
	svc, _ := newDatasetFixture(t)
	userID := uuid.New()

	dataset, err := svc.Upload(context.Background(), userID, "sales.csv", strings.NewReader(salesCSV), int64(len(salesCSV)))
	require.NoError(t, err)

	assert.Equal(t, models.DatasetStatusReady, dataset.Status)
	assert.Equal(t, "sales", dataset.Name)
	require.NotNil(t, dataset.RowCount)
	assert.Equal(t, 3, *dataset.RowCount)
	require.NotNil(t, dataset.ColumnCount)
	assert.Equal(t, 3, *dataset.ColumnCount)
	assert.NotEmpty(t, dataset.Schema)
}

func TestDatasetUpload_RejectsUnsupportedExtension(t *testing.T) {
	svc, _ := newDatasetFixture(t)

	_, err := svc.Upload(context.Background(), uuid.New(), "notes.txt", strings.NewReader("hello"), 5)
	assert.True(t, errors.Is(err, apperrors.ErrUnsupportedFile))
}

func TestDatasetUpload_RejectsOversizedFile(t *testing.T) {
	store, err := storage.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	svc := NewDatasetService(newMemDatasetRepo(), store, 10, testLogger())

	_, err = svc.Upload(context.Background(), uuid.New(), "big.csv", strings.NewReader(salesCSV), int64(len(salesCSV)))
	assert.True(t, errors.Is(err, apperrors.ErrFileTooLarge))
}

func TestDatasetUpload_UnparseableFileBecomesError(t *testing.T) {
	svc, _ := newDatasetFixture(t)

	dataset, err := svc.Upload(context.Background(), uuid.New(), "empty.csv", strings.NewReader(""), 0)
	require.NoError(t, err)

	assert.Equal(t, models.DatasetStatusError, dataset.Status)
	require.NotNil(t, dataset.ErrorMessage)
	assert.NotEmpty(t, *dataset.ErrorMessage)
}

func TestDatasetPreview(t *testing.T) {
	svc, _ := newDatasetFixture(t)

	dataset, err := svc.Upload(context.Background(), uuid.New(), "sales.csv", strings.NewReader(salesCSV), int64(len(salesCSV)))
	require.NoError(t, err)

	records, err := svc.Preview(context.Background(), dataset.ID, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "east", records[0]["region"])
	assert.Equal(t, float64(10), records[0]["amount"])
}

func TestDatasetPreview_NotReady(t *testing.T) {
	svc, repo := newDatasetFixture(t)

	dataset := &models.Dataset{UserID: uuid.New(), Status: models.DatasetStatusProcessing}
	require.NoError(t, repo.Create(context.Background(), dataset))

	_, err := svc.Preview(context.Background(), dataset.ID, 5)
	assert.True(t, errors.Is(err, apperrors.ErrDatasetNotReady))
}

func TestDatasetDelete_RemovesRecordAndFile(t *testing.T) {
	svc, _ := newDatasetFixture(t)

	dataset, err := svc.Upload(context.Background(), uuid.New(), "sales.csv", strings.NewReader(salesCSV), int64(len(salesCSV)))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), dataset.ID))

	_, err = svc.Get(context.Background(), dataset.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
