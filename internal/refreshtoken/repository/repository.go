package repository

import (
	"context"

	"taskplane/internal/refreshtoken/domain"
)

// Repository defines persistence for refresh token chains.
type Repository interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	// Revoke marks the token revoked. It returns true only for the caller
	// that flipped revoked_at; an already revoked token returns false.
	Revoke(ctx context.Context, id string) (bool, error)
	// RevokeAllByUserOrg revokes every live token the user holds for the org.
	RevokeAllByUserOrg(ctx context.Context, userID, orgID string) error
}
