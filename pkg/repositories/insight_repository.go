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

// InsightRepository provides data access for insights.
type InsightRepository interface {
	Create(ctx context.Context, insight *models.Insight) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Insight, error)
	ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]*models.Insight, error)
	Delete(ctx context.Context, id uuid.UUID) error
	LatestCreatedAt(ctx context.Context, datasetID uuid.UUID) (*time.Time, error)
	DeleteOrphaned(ctx context.Context) (int64, error)
}

type insightRepository struct {
	db *database.DB
}

// NewInsightRepository creates an insight repository.
func NewInsightRepository(db *database.DB) InsightRepository {
	return &insightRepository{db: db}
}

var _ InsightRepository = (*insightRepository)(nil)

const insightColumns = `id, dataset_id, query_id, insight_type, title,
       description, confidence_score, supporting_data, visualization_config,
       created_at`

func (r *insightRepository) Create(ctx context.Context, insight *models.Insight) error {
	if insight.ID == uuid.Nil {
		insight.ID = uuid.New()
	}
	insight.CreatedAt = time.Now().UTC()
	insight.Title = models.ClampTitle(insight.Title)

	sql := `
		INSERT INTO insights (
			id, dataset_id, query_id, insight_type, title, description,
			confidence_score, supporting_data, visualization_config, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, sql,
		insight.ID,
		insight.DatasetID,
		insight.QueryID,
		insight.InsightType,
		insight.Title,
		insight.Description,
		insight.ConfidenceScore,
		[]byte(insight.SupportingData),
		[]byte(insight.VizConfig),
		insight.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create insight: %w", err)
	}
	return nil
}

func (r *insightRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Insight, error) {
	sql := fmt.Sprintf(`SELECT %s FROM insights WHERE id = $1`, insightColumns)

	insight, err := scanInsight(r.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("insight %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get insight: %w", err)
	}
	return insight, nil
}

func (r *insightRepository) ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]*models.Insight, error) {
	sql := fmt.Sprintf(`
		SELECT %s FROM insights
		WHERE dataset_id = $1
		ORDER BY confidence_score DESC, created_at DESC`, insightColumns)

	rows, err := r.db.Query(ctx, sql, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	defer rows.Close()

	var insights []*models.Insight
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		insights = append(insights, insight)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate insights: %w", err)
	}
	return insights, nil
}

func (r *insightRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM insights WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete insight: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("insight %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// LatestCreatedAt returns the timestamp of the newest insight for a dataset,
// or nil when the dataset has none. The sweep job uses it to skip datasets
// with recent insights.
func (r *insightRepository) LatestCreatedAt(ctx context.Context, datasetID uuid.UUID) (*time.Time, error) {
	var latest *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT max(created_at) FROM insights WHERE dataset_id = $1`,
		datasetID,
	).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest insight time: %w", err)
	}
	return latest, nil
}

// DeleteOrphaned removes insights whose dataset no longer exists. The
// foreign key normally cascades; this covers rows from before the
// constraint existed.
func (r *insightRepository) DeleteOrphaned(ctx context.Context) (int64, error) {
	sql := `
		DELETE FROM insights
		WHERE NOT EXISTS (
			SELECT 1 FROM datasets WHERE datasets.id = insights.dataset_id
		)`

	tag, err := r.db.Exec(ctx, sql)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned insights: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanInsight(row pgx.Row) (*models.Insight, error) {
	var insight models.Insight
	var supporting, viz []byte

	err := row.Scan(
		&insight.ID,
		&insight.DatasetID,
		&insight.QueryID,
		&insight.InsightType,
		&insight.Title,
		&insight.Description,
		&insight.ConfidenceScore,
		&supporting,
		&viz,
		&insight.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	insight.SupportingData = supporting
	insight.VizConfig = viz
	return &insight, nil
}
