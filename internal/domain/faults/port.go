package faults

import (
	"context"
)

// Repository defines persistence for analysis faults
type Repository interface {
	Save(ctx context.Context, f *Fault) error
	ListByAnalysis(ctx context.Context, analysisID string, limit int) ([]*Fault, error)
}
