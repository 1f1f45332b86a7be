package clone

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	analysisdomain "github.com/neuralcode/insight/internal/domain/analysis"
	domain "github.com/neuralcode/insight/internal/domain/clone"
)

const (
	// DefaultTimeout is the wall-clock bound on a single checkout attempt.
	DefaultTimeout = 10 * time.Minute

	defaultMaxConcurrent = 4
)

// Service orchestrates a single bounded clone: validate the repository
// reference, derive the directory-naming hint, run the checkout executor under
// the deadline, and map every failure into one typed outcome.
// Holds no per-call state; safe to invoke concurrently for different analyses.
type Service struct {
	Executor domain.Executor
	Timeout  time.Duration

	// sem bounds concurrent checkouts so slow clones can't pile up unbounded.
	sem chan struct{}
}

func NewService(executor domain.Executor, timeout time.Duration, maxConcurrent int) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Service{
		Executor: executor,
		Timeout:  timeout,
		sem:      make(chan struct{}, maxConcurrent),
	}
}

// Clone implements the analysis.Cloner port.
// Validation runs before anything is allocated: an invalid reference never
// creates a directory or touches the network.
func (s *Service) Clone(ctx context.Context, repositoryURL, branchName string, id analysisdomain.AnalysisID) (string, error) {
	if strings.TrimSpace(repositoryURL) == "" {
		return "", &domain.Error{
			Reason:        domain.ReasonInvalidURL,
			AnalysisID:    string(id),
			RepositoryURL: repositoryURL,
			Message:       "repository URL cannot be empty",
		}
	}

	// hint dipakai buat nama direktori doang; checkout tetap pakai ref asli.
	// Including the analysis id keeps concurrent clones of the same repo/branch
	// from ever colliding.
	dirName := fmt.Sprintf("%s-%s-%s",
		domain.ProjectNameFromURL(repositoryURL),
		domain.SanitizeBranchFragment(branchName),
		id,
	)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return "", s.wrap(repositoryURL, id, ctx.Err(), false)
	}
	defer func() { <-s.sem }()

	cctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	log.Printf("starting clone: repository=%s branch=%s analysis=%s", repositoryURL, branchName, id)
	path, err := s.Executor.Checkout(cctx, repositoryURL, branchName, dirName)
	if err != nil {
		// executor leaves partial directories behind; cleanup happens here
		if path != "" {
			if rmErr := os.RemoveAll(path); rmErr != nil {
				log.Printf("failed to remove partial clone dir %s: %v", path, rmErr)
			}
		}
		timedOut := errors.Is(cctx.Err(), context.DeadlineExceeded)
		return "", s.wrap(repositoryURL, id, err, timedOut)
	}

	log.Printf("clone finished: repository=%s analysis=%s path=%s", repositoryURL, id, path)
	return path, nil
}

func (s *Service) wrap(repositoryURL string, id analysisdomain.AnalysisID, err error, timedOut bool) *domain.Error {
	switch {
	case timedOut || errors.Is(err, context.DeadlineExceeded):
		return &domain.Error{
			Reason:        domain.ReasonTimeout,
			AnalysisID:    string(id),
			RepositoryURL: repositoryURL,
			Message:       fmt.Sprintf("repository clone timed out after %s", s.Timeout),
			Err:           err,
		}
	case errors.Is(err, context.Canceled):
		return &domain.Error{
			Reason:        domain.ReasonTimeout,
			AnalysisID:    string(id),
			RepositoryURL: repositoryURL,
			Message:       "repository clone cancelled",
			Err:           err,
		}
	case errors.Is(err, domain.ErrWorkspace):
		return &domain.Error{
			Reason:        domain.ReasonIO,
			AnalysisID:    string(id),
			RepositoryURL: repositoryURL,
			Message:       "io error during clone",
			Err:           err,
		}
	default:
		return &domain.Error{
			Reason:        domain.ReasonGit,
			AnalysisID:    string(id),
			RepositoryURL: repositoryURL,
			Message:       "git operation failed",
			Err:           err,
		}
	}
}
