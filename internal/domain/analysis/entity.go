package analysis

import (
	"time"
)

// ID tipe untuk Analysis
type AnalysisID string

// Status enum
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStoredLocal  Status = "STORED_LOCAL"
	StatusStoredRemote Status = "STORED_REMOTE"
	StatusError        Status = "ERROR"
)

// Aggregate Root: Analysis
// One analysis tracks a single repository/branch checkout request through its
// lifecycle. Records are only ever written by the application service; once a
// record reaches ERROR or its final stored status no further transition happens.
type Analysis struct {
	ID              AnalysisID `json:"id"`
	RepositoryURL   string     `json:"repository_url"`
	BranchName      string     `json:"branch_name"`
	Status          Status     `json:"status"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	StorageLocation string     `json:"storage_location,omitempty"`
	RemoteLocation  string     `json:"remote_location,omitempty"`
}
