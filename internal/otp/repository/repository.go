package repository

import (
	"context"

	"taskplane/internal/otp/domain"
)

// Repository defines persistence for login challenges.
type Repository interface {
	Create(ctx context.Context, c *domain.Challenge) error
	GetByID(ctx context.Context, id string) (*domain.Challenge, error)
	GetLatestActiveByUser(ctx context.Context, userID string) (*domain.Challenge, error)
	// Consume marks the challenge used. It returns true only for the caller
	// that flipped consumed_at; a challenge already consumed returns false.
	Consume(ctx context.Context, id string) (bool, error)
}
