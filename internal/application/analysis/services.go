package analysis

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/neuralcode/insight/internal/application"
	domain "github.com/neuralcode/insight/internal/domain/analysis"
	clonedomain "github.com/neuralcode/insight/internal/domain/clone"
	"github.com/neuralcode/insight/internal/domain/faults"
)

// Service implements use-cases untuk Analysis lifecycle.
// Service is designed to be used concurrently and is thread-safe: each call
// operates on its own record and its own clone directory, so different
// analyses never contend at the data level.
type Service struct {
	Repo      domain.Repository
	Cloner    domain.Cloner
	Artifacts domain.ArtifactStore // optional; nil means local-only workflow
	Faults    faults.Repository    // optional; best-effort failure journal
	Clock     application.Clock
}

// Command untuk start analysis
type StartAnalysisCommand struct {
	RepositoryURL string
	BranchName    string
}

// StartAnalysis creates the record, runs the bounded clone, and advances the
// record to its terminal state. The initial STARTED write must succeed before
// any clone work begins: an id a caller has seen must always be resolvable.
func (s *Service) StartAnalysis(ctx context.Context, cmd StartAnalysisCommand) (*domain.Analysis, error) {
	// validasi input duluan, sebelum ada side effect apapun
	if strings.TrimSpace(cmd.RepositoryURL) == "" {
		return nil, &clonedomain.Error{
			Reason:  clonedomain.ReasonInvalidURL,
			Message: "repository URL cannot be empty",
		}
	}
	if strings.TrimSpace(cmd.BranchName) == "" {
		return nil, &clonedomain.Error{
			Reason:        clonedomain.ReasonInvalidURL,
			RepositoryURL: cmd.RepositoryURL,
			Message:       "branch name cannot be empty",
		}
	}

	now := s.Clock.Now()
	id := domain.AnalysisID(uuid.New().String())

	rec := &domain.Analysis{
		ID:            id,
		RepositoryURL: cmd.RepositoryURL,
		BranchName:    cmd.BranchName,
		Status:        domain.StatusStarted,
		StartTime:     now,
	}
	if err := s.Repo.Save(ctx, rec); err != nil {
		// never clone work for an analysis that cannot be tracked
		return nil, fmt.Errorf("save initial analysis record: %w", err)
	}

	localPath, err := s.Cloner.Clone(ctx, cmd.RepositoryURL, cmd.BranchName, id)
	if err != nil {
		return s.failAnalysis(rec, "clone", err)
	}

	rec.Status = domain.StatusStoredLocal
	rec.StorageLocation = localPath

	if s.Artifacts == nil {
		end := s.Clock.Now()
		rec.EndTime = &end
		s.persistTerminal(rec)
		return rec, nil
	}

	// intermediate write so lookups during a long upload see STORED_LOCAL
	if err := s.Repo.Save(ctx, rec); err != nil {
		log.Printf("analysis %s: failed to persist STORED_LOCAL status: %v", id, err)
	}

	remote, err := s.Artifacts.UploadDirectory(ctx, localPath, string(id))
	if err != nil {
		// artifacts lokal sengaja tidak dihapus, biar bisa dipulihkan manual
		return s.failAnalysis(rec, "upload", &domain.UploadError{AnalysisID: id, LocalPath: localPath, Err: err})
	}

	rec.Status = domain.StatusStoredRemote
	rec.RemoteLocation = remote
	end := s.Clock.Now()
	rec.EndTime = &end
	s.persistTerminal(rec)
	return rec, nil
}

// persistTerminal writes the final success state. A failed write here is a
// best-effort consistency gap: the clone already succeeded, so the result is
// returned with the last-known-good status and the gap is logged, not surfaced.
func (s *Service) persistTerminal(rec *domain.Analysis) {
	if err := s.Repo.Save(context.Background(), rec); err != nil {
		log.Printf("analysis %s: failed to persist %s status: %v", rec.ID, rec.Status, err)
	}
}

// failAnalysis issues the compensating write. The caller always learns about
// the original failure; a secondary persistence failure never masks it.
func (s *Service) failAnalysis(rec *domain.Analysis, phase string, cause error) (*domain.Analysis, error) {
	log.Printf("analysis %s failed during %s: %v", rec.ID, phase, cause)

	end := s.Clock.Now()
	rec.Status = domain.StatusError
	rec.ErrorMessage = cause.Error()
	rec.EndTime = &end

	// pakai context.Background() supaya compensating write gak ikut kebatalkan
	if err := s.Repo.Save(context.Background(), rec); err != nil {
		log.Printf("analysis %s: failed to persist ERROR status: %v", rec.ID, err)
	}
	if s.Faults != nil {
		f := &faults.Fault{
			AnalysisID: string(rec.ID),
			Phase:      phase,
			Message:    cause.Error(),
			CreatedAt:  end,
		}
		if err := s.Faults.Save(context.Background(), f); err != nil {
			log.Printf("analysis %s: failed to journal %s fault: %v", rec.ID, phase, err)
		}
	}
	return nil, cause
}

// Get ambil 1 analysis by id
func (s *Service) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

// ListByRepositoryURL returns every analysis recorded for a repository URL.
// Zero matches is reported as ErrNotFound, same signal as a bad id.
func (s *Service) ListByRepositoryURL(ctx context.Context, repositoryURL string) ([]*domain.Analysis, error) {
	list, err := s.Repo.FindByRepositoryURL(ctx, repositoryURL)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, domain.ErrNotFound
	}
	return list, nil
}

// Latest ambil N analysis terakhir
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	return s.Repo.Latest(ctx, limit)
}

// Count total analyses tracked
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.Repo.Count(ctx)
}

// ListFaults returns the failure journal for one analysis.
func (s *Service) ListFaults(ctx context.Context, analysisID string, limit int) ([]*faults.Fault, error) {
	if s.Faults == nil {
		return nil, nil
	}
	return s.Faults.ListByAnalysis(ctx, analysisID, limit)
}
