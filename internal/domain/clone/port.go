package clone

import "context"

// Executor port (interface untuk checkout yang beneran nyentuh network/disk)
// Checkout clones repositoryURL at branchName into a fresh directory named
// dirName. On failure the partially populated directory is left in place and
// its path is returned alongside the error; cleanup belongs to the caller.
type Executor interface {
	Checkout(ctx context.Context, repositoryURL, branchName, dirName string) (string, error)
}
