package repository

import (
	"context"

	"taskplane/internal/membership/domain"
)

// Repository defines persistence for memberships.
type Repository interface {
	GetByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Membership, error)
	Create(ctx context.Context, m *domain.Membership) error
}
