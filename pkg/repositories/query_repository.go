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

// QueryRepository provides data access for query records.
type QueryRepository interface {
	Create(ctx context.Context, query *models.Query) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Query, error)
	ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]*models.Query, error)
	UpdateResult(ctx context.Context, query *models.Query) error
	UpdateError(ctx context.Context, id uuid.UUID, errorMessage string) error
	UpdateFeedback(ctx context.Context, id uuid.UUID, feedback string) error
	ClearResultsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type queryRepository struct {
	db *database.DB
}

// NewQueryRepository creates a query repository.
func NewQueryRepository(db *database.DB) QueryRepository {
	return &queryRepository{db: db}
}

var _ QueryRepository = (*queryRepository)(nil)

const queryColumns = `id, dataset_id, user_id, question_text, query_type,
       query_string, explanation, status, error_message, result, row_count,
       visualization_type, user_feedback, created_at, updated_at`

func (r *queryRepository) Create(ctx context.Context, query *models.Query) error {
	if query.ID == uuid.Nil {
		query.ID = uuid.New()
	}
	now := time.Now().UTC()
	query.CreatedAt = now
	query.UpdatedAt = now

	sql := `
		INSERT INTO queries (
			id, dataset_id, user_id, question_text, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, sql,
		query.ID,
		query.DatasetID,
		query.UserID,
		query.QuestionText,
		query.Status,
		query.CreatedAt,
		query.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create query: %w", err)
	}
	return nil
}

func (r *queryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Query, error) {
	sql := fmt.Sprintf(`SELECT %s FROM queries WHERE id = $1`, queryColumns)

	query, err := scanQuery(r.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("query %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get query: %w", err)
	}
	return query, nil
}

func (r *queryRepository) ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]*models.Query, error) {
	sql := fmt.Sprintf(`
		SELECT %s FROM queries
		WHERE dataset_id = $1
		ORDER BY created_at DESC`, queryColumns)

	rows, err := r.db.Query(ctx, sql, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer rows.Close()

	var queries []*models.Query
	for rows.Next() {
		query, err := scanQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query: %w", err)
		}
		queries = append(queries, query)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queries: %w", err)
	}
	return queries, nil
}

// UpdateResult persists a successful execution: the generated query, the
// sanitized result rows and the chosen visualization type.
func (r *queryRepository) UpdateResult(ctx context.Context, query *models.Query) error {
	sql := `
		UPDATE queries
		SET query_type = $2, query_string = $3, explanation = $4,
		    status = $5, error_message = NULL, result = $6, row_count = $7,
		    visualization_type = $8, updated_at = now()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, sql,
		query.ID,
		query.QueryType,
		query.QueryString,
		query.Explanation,
		query.Status,
		[]byte(query.Result),
		query.RowCount,
		query.VisualizationType,
	)
	if err != nil {
		return fmt.Errorf("failed to update query result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("query %s: %w", query.ID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *queryRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	sql := `
		UPDATE queries
		SET status = $2, error_message = $3, updated_at = now()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, sql, id, models.QueryStatusError, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to update query error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("query %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *queryRepository) UpdateFeedback(ctx context.Context, id uuid.UUID, feedback string) error {
	if !models.IsValidFeedback(feedback) {
		return fmt.Errorf("feedback %q: %w", feedback, apperrors.ErrInvalidFeedback)
	}

	sql := `
		UPDATE queries
		SET user_feedback = $2, updated_at = now()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, sql, id, feedback)
	if err != nil {
		return fmt.Errorf("failed to update query feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("query %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// ClearResultsBefore drops stored result rows for queries older than the
// cutoff, keeping the query metadata itself for history.
func (r *queryRepository) ClearResultsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	sql := `
		UPDATE queries
		SET result = NULL, updated_at = now()
		WHERE created_at < $1 AND result IS NOT NULL`

	tag, err := r.db.Exec(ctx, sql, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clear old query results: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanQuery(row pgx.Row) (*models.Query, error) {
	var query models.Query
	var queryType, queryString, explanation, vizType *string
	var result []byte

	err := row.Scan(
		&query.ID,
		&query.DatasetID,
		&query.UserID,
		&query.QuestionText,
		&queryType,
		&queryString,
		&explanation,
		&query.Status,
		&query.ErrorMessage,
		&result,
		&query.RowCount,
		&vizType,
		&query.UserFeedback,
		&query.CreatedAt,
		&query.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if queryType != nil {
		query.QueryType = *queryType
	}
	if queryString != nil {
		query.QueryString = *queryString
	}
	if explanation != nil {
		query.Explanation = *explanation
	}
	if vizType != nil {
		query.VisualizationType = *vizType
	}
	query.Result = result
	return &query, nil
}
