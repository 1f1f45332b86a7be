package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	domain "github.com/neuralcode/insight/internal/domain/clone"
)

// Cloner performs full git checkouts into per-analysis directories under a
// configured base dir. It implements the clone.Executor port.
type Cloner struct {
	baseDir string
}

func NewCloner(baseDir string) *Cloner {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "insight-checkouts")
	}
	return &Cloner{baseDir: baseDir}
}

// Checkout clones repositoryURL at branchName into a fresh directory named
// dirName. The directory must not already exist: dirName includes the analysis
// id, so a collision means a duplicated id and is treated as an error.
// On failure the partially populated directory is left in place and its path
// is returned with the error; removal is the orchestrator's responsibility.
func (c *Cloner) Checkout(ctx context.Context, repositoryURL, branchName, dirName string) (string, error) {
	if err := os.MkdirAll(c.baseDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create base dir %s: %v", domain.ErrWorkspace, c.baseDir, err)
	}

	workDir := filepath.Join(c.baseDir, dirName)
	if err := os.Mkdir(workDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create work dir %s: %v", domain.ErrWorkspace, workDir, err)
	}

	opts := &gogit.CloneOptions{
		URL: repositoryURL,
	}
	if branchName != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branchName)
		opts.SingleBranch = true
	}

	// PlainCloneContext aborts the in-flight transfer when ctx is cancelled;
	// go-git's filesystem storer holds no lingering handles after return, so
	// there is nothing further to release on any exit path.
	if _, err := gogit.PlainCloneContext(ctx, workDir, false, opts); err != nil {
		return workDir, fmt.Errorf("git clone %s: %w", repositoryURL, err)
	}

	return workDir, nil
}
