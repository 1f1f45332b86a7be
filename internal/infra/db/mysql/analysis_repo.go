package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/neuralcode/insight/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

const analysisColumns = `id, repository_url, branch_name, status, start_time, end_time, error_message, storage_location, remote_location`

// Save insert/update analysis record (upsert by id)
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO code_analysis
(id, repository_url, branch_name, status, start_time, end_time, error_message, storage_location, remote_location)
VALUES (?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status),
 end_time=VALUES(end_time),
 error_message=VALUES(error_message),
 storage_location=VALUES(storage_location),
 remote_location=VALUES(remote_location);
`
	status := stringOrDash(string(a.Status))
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

// Get by ID; returns nil, nil when no record exists
func (r *AnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM code_analysis
WHERE id=? LIMIT 1;
`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// FindByRepositoryURL is the secondary-index lookup; empty slice when nothing matches
func (r *AnalysisRepository) FindByRepositoryURL(ctx context.Context, repositoryURL string) ([]*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM code_analysis
WHERE repository_url=? ORDER BY start_time DESC;
`
	rows, err := r.db.QueryContext(ctx, q, repositoryURL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalyses(rows)
}

// Latest analyses, newest first
func (r *AnalysisRepository) Latest(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT ` + analysisColumns + `
FROM code_analysis
ORDER BY start_time DESC LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalyses(rows)
}

// Count total analyses
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
