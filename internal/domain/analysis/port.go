package analysis

import "context"

// Repository port (interface untuk persistence)
// Get and FindByRepositoryURL return nil / empty slice when nothing matches;
// mapping a miss to ErrNotFound is the application layer's job.
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id AnalysisID) (*Analysis, error)
	FindByRepositoryURL(ctx context.Context, repositoryURL string) ([]*Analysis, error)
	Latest(ctx context.Context, limit int) ([]*Analysis, error)
	Count(ctx context.Context) (int64, error)
}

// Cloner port (interface untuk orchestrated checkout)
// Returns the local path of the checked-out working tree.
type Cloner interface {
	Clone(ctx context.Context, repositoryURL, branchName string, id AnalysisID) (string, error)
}

// ArtifactStore port (interface untuk penyimpanan remote)
// UploadDirectory pushes a whole working tree under keyPrefix and returns the
// remote location. Local files are left in place on every outcome.
type ArtifactStore interface {
	UploadDirectory(ctx context.Context, localPath, keyPrefix string) (string, error)
}
