package repository

import (
	"context"
	"database/sql"
	"errors"

	"taskplane/internal/otp/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a challenge repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the challenge. The challenge must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Challenge) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO otp_challenges (id, user_id, code_hash, expires_at, consumed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.UserID, c.CodeHash, c.ExpiresAt, c.ConsumedAt, c.CreatedAt)
	return err
}

// GetByID returns the challenge for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, code_hash, expires_at, consumed_at, created_at
		 FROM otp_challenges WHERE id = $1`, id)
	return scanChallenge(row)
}

// GetLatestActiveByUser returns the newest unconsumed challenge for the user,
// or nil if none exists. Expiry is not checked here; the caller decides.
func (r *PostgresRepository) GetLatestActiveByUser(ctx context.Context, userID string) (*domain.Challenge, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, code_hash, expires_at, consumed_at, created_at
		 FROM otp_challenges WHERE user_id = $1 AND consumed_at IS NULL
		 ORDER BY created_at DESC LIMIT 1`, userID)
	return scanChallenge(row)
}

// Consume sets consumed_at for the challenge if it is still unconsumed.
// The guarded UPDATE makes exactly one concurrent caller win.
func (r *PostgresRepository) Consume(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otp_challenges SET consumed_at = now() WHERE id = $1 AND consumed_at IS NULL`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func scanChallenge(row *sql.Row) (*domain.Challenge, error) {
	var c domain.Challenge
	var consumedAt sql.NullTime
	if err := row.Scan(&c.ID, &c.UserID, &c.CodeHash, &c.ExpiresAt, &consumedAt, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if consumedAt.Valid {
		c.ConsumedAt = &consumedAt.Time
	}
	return &c, nil
}
