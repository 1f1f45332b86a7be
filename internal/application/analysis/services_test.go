package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/neuralcode/insight/internal/domain/analysis"
	clonedomain "github.com/neuralcode/insight/internal/domain/clone"
	"github.com/neuralcode/insight/internal/domain/faults"
)

type memRepo struct {
	mu      sync.Mutex
	items   map[domain.AnalysisID]*domain.Analysis
	history []domain.Status // status at each successful save

	failAll        bool
	failAfterFirst bool
	saves          int
}

func newMemRepo() *memRepo {
	return &memRepo{items: map[domain.AnalysisID]*domain.Analysis{}}
}

func (r *memRepo) Save(_ context.Context, a *domain.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.failAll || (r.failAfterFirst && r.saves > 1) {
		return errors.New("db unavailable")
	}
	cp := *a
	r.items[a.ID] = &cp
	r.history = append(r.history, a.Status)
	return nil
}

func (r *memRepo) Get(_ context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id], nil
}

func (r *memRepo) FindByRepositoryURL(_ context.Context, repositoryURL string) ([]*domain.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Analysis
	for _, a := range r.items {
		if a.RepositoryURL == repositoryURL {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) Latest(_ context.Context, limit int) ([]*domain.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Analysis
	for _, a := range r.items {
		if len(out) >= limit {
			break
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *memRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

type fakeCloner struct {
	path  string
	err   error
	calls int
}

func (f *fakeCloner) Clone(_ context.Context, _, _ string, _ domain.AnalysisID) (string, error) {
	f.calls++
	return f.path, f.err
}

type fakeStore struct {
	remote string
	err    error

	gotLocalPath string
	gotKeyPrefix string
}

func (f *fakeStore) UploadDirectory(_ context.Context, localPath, keyPrefix string) (string, error) {
	f.gotLocalPath = localPath
	f.gotKeyPrefix = keyPrefix
	if f.err != nil {
		return "", f.err
	}
	return f.remote, nil
}

type memFaults struct {
	mu    sync.Mutex
	items []*faults.Fault
}

func (m *memFaults) Save(_ context.Context, f *faults.Fault) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, f)
	return nil
}

func (m *memFaults) ListByAnalysis(_ context.Context, analysisID string, limit int) ([]*faults.Fault, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*faults.Fault
	for _, f := range m.items {
		if f.AnalysisID == analysisID && len(out) < limit {
			out = append(out, f)
		}
	}
	return out, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestService(repo *memRepo, cloner *fakeCloner) *Service {
	return &Service{
		Repo:   repo,
		Cloner: cloner,
		Clock:  fixedClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)},
	}
}

func TestStartAnalysisLocalOnlySuccess(t *testing.T) {
	repo := newMemRepo()
	cloner := &fakeCloner{path: "/data/checkouts/my-repo-main-x"}
	svc := newTestService(repo, cloner)

	rec, err := svc.StartAnalysis(context.Background(), StartAnalysisCommand{
		RepositoryURL: "https://github.com/acme/my-repo.git",
		BranchName:    "main",
	})

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.StatusStoredLocal, rec.Status)
	assert.Equal(t, "/data/checkouts/my-repo-main-x", rec.StorageLocation)
	require.NotNil(t, rec.EndTime, "terminal state must carry an end time")
	assert.Empty(t, rec.ErrorMessage)

	// id returned to the caller must resolve
	got, err := svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStoredLocal, got.Status)

	// record went STARTED then terminal, never skipped the initial write
	require.Len(t, repo.history, 2)
	assert.Equal(t, domain.StatusStarted, repo.history[0])
	assert.Equal(t, domain.StatusStoredLocal, repo.history[1])
}

func TestStartAnalysisCloneFailure(t *testing.T) {
	repo := newMemRepo()
	cause := &clonedomain.Error{
		Reason:        clonedomain.ReasonGit,
		RepositoryURL: "https://github.com/acme/gone.git",
		Message:       "git operation failed",
		Err:           errors.New("repository not found"),
	}
	cloner := &fakeCloner{err: cause}
	journal := &memFaults{}
	svc := newTestService(repo, cloner)
	svc.Faults = journal

	rec, err := svc.StartAnalysis(context.Background(), StartAnalysisCommand{
		RepositoryURL: "https://github.com/acme/gone.git",
		BranchName:    "main",
	})

	assert.Nil(t, rec)
	var ce *clonedomain.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, clonedomain.ReasonGit, ce.Reason)

	// compensating write landed
	require.Len(t, repo.history, 2)
	assert.Equal(t, domain.StatusError, repo.history[1])
	for _, a := range repo.items {
		assert.Equal(t, cause.Error(), a.ErrorMessage)
		require.NotNil(t, a.EndTime)
	}

	// fault journaled for the clone phase
	require.Len(t, journal.items, 1)
	assert.Equal(t, "clone", journal.items[0].Phase)
}

func TestStartAnalysisCompensatingWriteFailureKeepsOriginalError(t *testing.T) {
	repo := newMemRepo()
	repo.failAfterFirst = true
	cause := &clonedomain.Error{Reason: clonedomain.ReasonTimeout, Message: "repository clone timed out after 10m0s"}
	cloner := &fakeCloner{err: cause}
	svc := newTestService(repo, cloner)

	_, err := svc.StartAnalysis(context.Background(), StartAnalysisCommand{
		RepositoryURL: "https://github.com/acme/slow.git",
		BranchName:    "main",
	})

	// persistence failure must never mask the clone failure
	var ce *clonedomain.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, clonedomain.ReasonTimeout, ce.Reason)
}

func TestStartAnalysisInitialSaveFailureSkipsClone(t *testing.T) {
	repo := newMemRepo()
	repo.failAll = true
	cloner := &fakeCloner{path: "/data/x"}
	svc := newTestService(repo, cloner)

	_, err := svc.StartAnalysis(context.Background(), StartAnalysisCommand{
		RepositoryURL: "https://github.com/acme/repo.git",
		BranchName:    "main",
	})

	require.Error(t, err)
	assert.Zero(t, cloner.calls, "no clone work for an analysis that cannot be tracked")
}

func TestStartAnalysisBlankInputsRejectedBeforeSideEffects(t *testing.T) {
	for name, cmd := range map[string]StartAnalysisCommand{
		"blank url":    {RepositoryURL: "  ", BranchName: "main"},
		"blank branch": {RepositoryURL: "https://github.com/acme/repo.git", BranchName: ""},
	} {
		t.Run(name, func(t *testing.T) {
			repo := newMemRepo()
			cloner := &fakeCloner{}
			svc := newTestService(repo, cloner)

			_, err := svc.StartAnalysis(context.Background(), cmd)

			var ce *clonedomain.Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, clonedomain.ReasonInvalidURL, ce.Reason)
			assert.Zero(t, repo.saves)
			assert.Zero(t, cloner.calls)
		})
	}
}

func TestStartAnalysisUploadSuccess(t *testing.T) {
	repo := newMemRepo()
	cloner := &fakeCloner{path: "/data/checkouts/my-repo-main-x"}
	store := &fakeStore{remote: "minio://analyses/abc/"}
	svc := newTestService(repo, cloner)
	svc.Artifacts = store

	rec, err := svc.StartAnalysis(context.Background(), StartAnalysisCommand{
		RepositoryURL: "https://github.com/acme/my-repo.git",
		BranchName:    "main",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusStoredRemote, rec.Status)
	assert.Equal(t, "minio://analyses/abc/", rec.RemoteLocation)
	assert.Equal(t, "/data/checkouts/my-repo-main-x", rec.StorageLocation)
	require.NotNil(t, rec.EndTime)
	assert.Equal(t, "/data/checkouts/my-repo-main-x", store.gotLocalPath)
	assert.Equal(t, string(rec.ID), store.gotKeyPrefix)

	// STORED_LOCAL was visible during the upload window
	require.Len(t, repo.history, 3)
	assert.Equal(t, domain.StatusStoredLocal, repo.history[1])
	assert.Equal(t, domain.StatusStoredRemote, repo.history[2])
}

func TestStartAnalysisUploadFailure(t *testing.T) {
	repo := newMemRepo()
	cloner := &fakeCloner{path: "/data/checkouts/my-repo-main-x"}
	store := &fakeStore{err: errors.New("connection refused")}
	journal := &memFaults{}
	svc := newTestService(repo, cloner)
	svc.Artifacts = store
	svc.Faults = journal

	rec, err := svc.StartAnalysis(context.Background(), StartAnalysisCommand{
		RepositoryURL: "https://github.com/acme/my-repo.git",
		BranchName:    "main",
	})

	assert.Nil(t, rec)
	var ue *domain.UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "/data/checkouts/my-repo-main-x", ue.LocalPath)

	require.Len(t, journal.items, 1)
	assert.Equal(t, "upload", journal.items[0].Phase)

	for _, a := range repo.items {
		assert.Equal(t, domain.StatusError, a.Status)
	}
}

func TestGetUnknownAnalysis(t *testing.T) {
	svc := newTestService(newMemRepo(), &fakeCloner{})

	_, err := svc.Get(context.Background(), "missing-id")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByRepositoryURL(t *testing.T) {
	repo := newMemRepo()
	cloner := &fakeCloner{path: "/data/x"}
	svc := newTestService(repo, cloner)

	_, err := svc.StartAnalysis(context.Background(), StartAnalysisCommand{
		RepositoryURL: "https://github.com/acme/repo.git",
		BranchName:    "main",
	})
	require.NoError(t, err)

	list, err := svc.ListByRepositoryURL(context.Background(), "https://github.com/acme/repo.git")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListByRepositoryURL(context.Background(), "https://github.com/acme/other.git")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
