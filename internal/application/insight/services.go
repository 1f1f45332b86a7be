package insight

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/neuralcode/insight/internal/application"
	analysisdomain "github.com/neuralcode/insight/internal/domain/analysis"
	"github.com/neuralcode/insight/internal/domain/ai"
	domain "github.com/neuralcode/insight/internal/domain/insight"
)

const manifestMaxFiles = 200

// Service runs an AI summary over a stored checkout and persists the result.
type Service struct {
	Analyses analysisdomain.Repository
	Repo     domain.Repository
	Client   ai.Client
	Clock    application.Clock
}

func NewService(analyses analysisdomain.Repository, repo domain.Repository, client ai.Client, clock application.Clock) *Service {
	return &Service{Analyses: analyses, Repo: repo, Client: client, Clock: clock}
}

// AnalyzeAndStore builds the working-tree manifest for a stored analysis,
// asks the AI client for a summary, and persists it.
func (s *Service) AnalyzeAndStore(ctx context.Context, analysisID string) (*domain.Insight, error) {
	rec, err := s.Analyses.Get(ctx, analysisdomain.AnalysisID(analysisID))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, analysisdomain.ErrNotFound
	}
	if rec.Status != analysisdomain.StatusStoredLocal && rec.Status != analysisdomain.StatusStoredRemote {
		return nil, fmt.Errorf("analysis %s has no stored checkout (status %s)", analysisID, rec.Status)
	}

	manifest, err := domain.BuildManifest(rec.StorageLocation, manifestMaxFiles)
	if err != nil {
		return nil, fmt.Errorf("build manifest for %s: %w", rec.StorageLocation, err)
	}

	result, err := s.Client.Summarize(ctx, manifest)
	if err != nil {
		return nil, err
	}

	ins := &domain.Insight{
		ID:         domain.InsightID(uuid.New().String()),
		AnalysisID: analysisID,
		Result:     result,
		CreatedAt:  s.Clock.Now(),
	}
	if err := s.Repo.Save(ctx, ins); err != nil {
		return nil, fmt.Errorf("save insight: %w", err)
	}
	return ins, nil
}

// ListInsights returns a page of stored insights, newest first.
func (s *Service) ListInsights(ctx context.Context, page, pageSize int) ([]*domain.Insight, error) {
	return s.Repo.Paginate(ctx, page, pageSize)
}

// LatestForAnalysis returns the newest insight for one analysis, or ErrNotFound.
func (s *Service) LatestForAnalysis(ctx context.Context, analysisID string) (*domain.Insight, error) {
	ins, err := s.Repo.LatestByAnalysis(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if ins == nil {
		return nil, analysisdomain.ErrNotFound
	}
	return ins, nil
}
