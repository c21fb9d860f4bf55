package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"taskplane/internal/export/domain"
	"taskplane/internal/security"
)

// Sentinel errors for the export service; handler maps them to HTTP codes.
var ErrJobNotFound = errors.New("export job not found")

// JobStore is the minimal store needed by the export service.
type JobStore interface {
	GetInOrg(ctx context.Context, orgID, id string) (*domain.Job, error)
	Enqueue(ctx context.Context, job *domain.Job) error
}

// ExportService accepts export requests from authenticated org members and
// exposes job status scoped to the requester's org. Running the job belongs
// to the worker.
type ExportService struct {
	jobs           JobStore
	storageTimeout time.Duration
}

// NewExportService returns an ExportService backed by the given store.
func NewExportService(jobs JobStore, storageTimeout time.Duration) *ExportService {
	return &ExportService{jobs: jobs, storageTimeout: storageTimeout}
}

// Request enqueues a CSV export of the actor's org. The handler checks the
// actor's live membership before calling in.
func (s *ExportService) Request(ctx context.Context, actor *security.Claims) (*domain.Job, error) {
	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	job := &domain.Job{
		ID:          uuid.New().String(),
		OrgID:       actor.OrgID,
		RequestedBy: actor.UserID,
		Status:      domain.StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Status returns the job, scoped to the actor's org.
func (s *ExportService) Status(ctx context.Context, actor *security.Claims, id string) (*domain.Job, error) {
	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	job, err := s.jobs.GetInOrg(ctx, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func (s *ExportService) withStorageTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storageTimeout)
}
