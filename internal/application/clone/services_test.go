package clone

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analysisdomain "github.com/neuralcode/insight/internal/domain/analysis"
	domain "github.com/neuralcode/insight/internal/domain/clone"
)

type fakeExecutor struct {
	path  string
	err   error
	delay time.Duration

	calls  int
	gotURL string
	gotRef string
	gotDir string
}

func (f *fakeExecutor) Checkout(ctx context.Context, repositoryURL, branchName, dirName string) (string, error) {
	f.calls++
	f.gotURL, f.gotRef, f.gotDir = repositoryURL, branchName, dirName
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return f.path, ctx.Err()
		}
	}
	return f.path, f.err
}

func TestCloneRejectsBlankURLBeforeExecutor(t *testing.T) {
	exec := &fakeExecutor{}
	svc := NewService(exec, time.Minute, 1)

	_, err := svc.Clone(context.Background(), "   ", "main", "id-1")

	var ce *domain.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.ReasonInvalidURL, ce.Reason)
	assert.Equal(t, "id-1", ce.AnalysisID)
	assert.Zero(t, exec.calls, "executor must not run for an invalid reference")
}

func TestCloneDirectoryNamingAndOriginalRef(t *testing.T) {
	exec := &fakeExecutor{path: "/tmp/out"}
	svc := NewService(exec, time.Minute, 1)

	id := analysisdomain.AnalysisID("3f2c9a10-0000-4000-8000-000000000001")
	path, err := svc.Clone(context.Background(), "https://github.com/acme/my-repo.git", "feature/user-auth", id)

	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", path)
	assert.Equal(t, fmt.Sprintf("my-repo-feature-user-auth-%s", id), exec.gotDir)
	// checkout keeps the unsanitized ref
	assert.Equal(t, "feature/user-auth", exec.gotRef)
}

func TestCloneTimeout(t *testing.T) {
	exec := &fakeExecutor{delay: 500 * time.Millisecond}
	svc := NewService(exec, 20*time.Millisecond, 1)

	_, err := svc.Clone(context.Background(), "https://github.com/acme/slow.git", "main", "id-2")

	var ce *domain.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.ReasonTimeout, ce.Reason)
	assert.Equal(t, "id-2", ce.AnalysisID)
	assert.Equal(t, "https://github.com/acme/slow.git", ce.RepositoryURL)
}

func TestCloneGitFailureRemovesPartialDir(t *testing.T) {
	partial := filepath.Join(t.TempDir(), "partial")
	require.NoError(t, os.MkdirAll(partial, 0o755))

	exec := &fakeExecutor{path: partial, err: errors.New("repository not found")}
	svc := NewService(exec, time.Minute, 1)

	_, err := svc.Clone(context.Background(), "https://github.com/acme/gone.git", "main", "id-3")

	var ce *domain.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.ReasonGit, ce.Reason)

	_, statErr := os.Stat(partial)
	assert.True(t, os.IsNotExist(statErr), "partial clone directory should be removed")
}

func TestCloneWorkspaceFailureMapsToIO(t *testing.T) {
	exec := &fakeExecutor{err: fmt.Errorf("%w: create work dir: permission denied", domain.ErrWorkspace)}
	svc := NewService(exec, time.Minute, 1)

	_, err := svc.Clone(context.Background(), "https://github.com/acme/repo.git", "main", "id-4")

	var ce *domain.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.ReasonIO, ce.Reason)
	assert.ErrorIs(t, err, domain.ErrWorkspace)
}

func TestCloneCancelledContext(t *testing.T) {
	exec := &fakeExecutor{delay: 500 * time.Millisecond}
	svc := NewService(exec, time.Minute, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := svc.Clone(ctx, "https://github.com/acme/repo.git", "main", "id-5")

	var ce *domain.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.ReasonTimeout, ce.Reason)
	assert.ErrorIs(t, err, context.Canceled)
}
