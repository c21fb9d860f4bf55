package repository

import (
	"context"

	"taskplane/internal/task/domain"
)

// Repository defines persistence for tasks. Every lookup and mutation is
// keyed by org_id; there is no way to reach another org's rows through this
// interface.
type Repository interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByIDInOrg(ctx context.Context, orgID, id string) (*domain.Task, error)
	// ListByOrg returns up to limit tasks ordered by (created_at DESC, id DESC),
	// starting strictly after the cursor position when cursor is non-nil.
	ListByOrg(ctx context.Context, orgID string, cursor *Cursor, limit int) ([]*domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	DeleteInOrg(ctx context.Context, orgID, id string) (bool, error)
}
