package clone

import (
	"errors"
	"fmt"
)

// ErrWorkspace marks local filesystem failures (directory creation, disk), as
// opposed to git transport/protocol failures.
var ErrWorkspace = errors.New("workspace error")

// Reason classifies a failed clone attempt.
type Reason string

const (
	ReasonInvalidURL Reason = "invalid_url"
	ReasonTimeout    Reason = "timeout"
	ReasonGit        Reason = "git"
	ReasonIO         Reason = "io"
)

// Error is the one failure type the clone orchestrator returns. Every instance
// carries the analysis id and repository URL so callers can correlate without
// re-deriving context.
type Error struct {
	Reason        Reason
	AnalysisID    string
	RepositoryURL string
	Message       string
	Err           error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (analysis %s, repository %s): %v", e.Message, e.AnalysisID, e.RepositoryURL, e.Err)
	}
	return fmt.Sprintf("%s (analysis %s, repository %s)", e.Message, e.AnalysisID, e.RepositoryURL)
}

func (e *Error) Unwrap() error { return e.Err }
