package ai

import "context"

type Client interface {
	Summarize(ctx context.Context, manifest string) (string, error)
}
