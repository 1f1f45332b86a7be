package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	domain "github.com/neuralcode/insight/internal/domain/analysis"
)

type AnalysisRepository struct{ db *sql.DB }

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository { return &AnalysisRepository{db: db} }

const analysisColumns = `id, repository_url, branch_name, status, start_time, end_time, error_message, storage_location, remote_location`

// Save insert/update analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO code_analysis
(id, repository_url, branch_name, status, start_time, end_time, error_message, storage_location, remote_location)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
 status = EXCLUDED.status,
 end_time = EXCLUDED.end_time,
 error_message = EXCLUDED.error_message,
 storage_location = EXCLUDED.storage_location,
 remote_location = EXCLUDED.remote_location;`

	status := string(a.Status)
	if strings.TrimSpace(status) == "" {
		status = "-"
	}
	start := a.StartTime
	if start.IsZero() {
		start = time.Now()
	}
	var end sql.NullTime
	if a.EndTime != nil {
		end = sql.NullTime{Time: *a.EndTime, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.RepositoryURL, a.BranchName, status, start, end,
		a.ErrorMessage, a.StorageLocation, a.RemoteLocation,
	)
	return err
}

// Get by ID; nil when absent
func (r *AnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM code_analysis
WHERE id=$1 LIMIT 1;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *AnalysisRepository) FindByRepositoryURL(ctx context.Context, repositoryURL string) ([]*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM code_analysis
WHERE repository_url=$1 ORDER BY start_time DESC;`
	rows, err := r.db.QueryContext(ctx, q, repositoryURL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalyses(rows)
}

func (r *AnalysisRepository) Latest(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT ` + analysisColumns + `
FROM code_analysis
ORDER BY start_time DESC LIMIT $1;`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalyses(rows)
}

func (r *AnalysisRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM code_analysis;`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*domain.Analysis, error) {
	var a domain.Analysis
	var end sql.NullTime
	if err := row.Scan(
		&a.ID, &a.RepositoryURL, &a.BranchName, &a.Status, &a.StartTime, &end,
		&a.ErrorMessage, &a.StorageLocation, &a.RemoteLocation,
	); err != nil {
		return nil, err
	}
	if end.Valid {
		t := end.Time
		a.EndTime = &t
	}
	return &a, nil
}

func collectAnalyses(rows *sql.Rows) ([]*domain.Analysis, error) {
	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
