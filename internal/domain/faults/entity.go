package faults

import "time"

// Fault represents a persisted failure entry for an analysis. The lifecycle
// record only keeps the last error message; the fault journal keeps every
// failure with its phase for diagnostics.
type Fault struct {
	ID         int64     `json:"id"`
	AnalysisID string    `json:"analysis_id"`
	Phase      string    `json:"phase,omitempty"` // clone | upload | insight
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}
