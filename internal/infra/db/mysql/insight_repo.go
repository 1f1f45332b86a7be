package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	domain "github.com/neuralcode/insight/internal/domain/insight"
)

type InsightRepository struct {
	db *sql.DB
}

func NewInsightRepository(db *sql.DB) *InsightRepository {
	return &InsightRepository{db: db}
}

// Save inserts an insight record
func (r *InsightRepository) Save(ctx context.Context, i *domain.Insight) error {
	const q = `
INSERT INTO analysis_insights
  (id, analysis_id, result_json, created_at)
VALUES (?,?,?,?)
ON DUPLICATE KEY UPDATE
  analysis_id=VALUES(analysis_id), result_json=VALUES(result_json);
`
	result := i.Result
	if strings.TrimSpace(result) == "" {
		// result_json column requires valid JSON; use empty object
		result = "{}"
	}
	createdAt := i.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q, i.ID, stringOrDash(i.AnalysisID), result, createdAt)
	return err
}

// Paginate returns a page of insight records ordered by created_at desc
func (r *InsightRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Insight, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, analysis_id, result_json, created_at
FROM analysis_insights
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Insight
	for rows.Next() {
		var i domain.Insight
		var created time.Time
		if err := rows.Scan(&i.ID, &i.AnalysisID, &i.Result, &created); err != nil {
			return nil, err
		}
		i.CreatedAt = created
		out = append(out, &i)
	}
	return out, rows.Err()
}

// LatestByAnalysis returns the newest insight for an analysis; nil when none exists
func (r *InsightRepository) LatestByAnalysis(ctx context.Context, analysisID string) (*domain.Insight, error) {
	const q = `
SELECT id, analysis_id, result_json, created_at
FROM analysis_insights
WHERE analysis_id = ?
ORDER BY created_at DESC, id DESC
LIMIT 1;`
	var i domain.Insight
	var created time.Time
	err := r.db.QueryRowContext(ctx, q, analysisID).Scan(&i.ID, &i.AnalysisID, &i.Result, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	i.CreatedAt = created
	return &i, nil
}
