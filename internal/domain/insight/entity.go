package insight

import "time"

// InsightID identifier type
type InsightID string

// Insight represents an AI summary of a stored checkout, kept for auditing and retrieval
type Insight struct {
	ID         InsightID `json:"id"`
	AnalysisID string    `json:"analysis_id"`
	Result     string    `json:"result"` // JSON string from AI
	CreatedAt  time.Time `json:"created_at"`
}
