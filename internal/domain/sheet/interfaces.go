package sheet

import (
	"context"
	"time"
)

// Repository provides persistence for sheets.
type Repository interface {
	Create(ctx context.Context, s *ServiceSheet) error
	Get(ctx context.Context, id string) (*ServiceSheet, error)
	List(ctx context.Context, opts ListOptions) ([]SheetSummary, error)
	UpdateRecord(ctx context.Context, rec *ActivityRecord) error
	UpdateStatus(ctx context.Context, id string, status Status, completedAt *time.Time) error
}
