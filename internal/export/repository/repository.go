package repository

import (
	"context"
	"time"

	"taskplane/internal/export/domain"
)

// Store defines persistence for export jobs and the work queue feeding the
// worker. Lookups are keyed by org; a job never resolves outside its org.
type Store interface {
	Save(ctx context.Context, job *domain.Job) error
	GetInOrg(ctx context.Context, orgID, id string) (*domain.Job, error)
	Enqueue(ctx context.Context, job *domain.Job) error
	// Dequeue blocks up to timeout for the next queued job. A drained queue
	// returns (nil, nil).
	Dequeue(ctx context.Context, timeout time.Duration) (*domain.Job, error)
}
