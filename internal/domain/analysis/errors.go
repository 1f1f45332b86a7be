package analysis

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates no analysis exists for the requested id or repository URL.
var ErrNotFound = errors.New("analysis not found")

// UploadError wraps a failed artifact-store upload. Local artifacts are kept so
// they can be recovered manually.
type UploadError struct {
	AnalysisID AnalysisID
	LocalPath  string
	Err        error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload repository for analysis %s from %s: %v", e.AnalysisID, e.LocalPath, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
