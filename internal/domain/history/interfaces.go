package history

import "context"

// Store persists batch summaries.
type Store interface {
	Append(ctx context.Context, entry BatchSummary) error
	Read(ctx context.Context) ([]BatchSummary, error)
	Clear(ctx context.Context) error
}
