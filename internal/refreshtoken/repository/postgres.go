package repository

import (
	"context"
	"database/sql"
	"errors"

	"taskplane/internal/refreshtoken/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a refresh token repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the token. The token must have ID and TokenHash set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	var rotatedFrom sql.NullString
	if t.RotatedFrom != "" {
		rotatedFrom = sql.NullString{String: t.RotatedFrom, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, org_id, token_hash, issued_at, expires_at, revoked_at, rotated_from)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.UserID, t.OrgID, t.TokenHash, t.IssuedAt, t.ExpiresAt, t.RevokedAt, rotatedFrom)
	return err
}

// GetByHash returns the token with the given hash, or nil if not found.
func (r *PostgresRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, org_id, token_hash, issued_at, expires_at, revoked_at, rotated_from
		 FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	var t domain.RefreshToken
	var revokedAt sql.NullTime
	var rotatedFrom sql.NullString
	if err := row.Scan(&t.ID, &t.UserID, &t.OrgID, &t.TokenHash, &t.IssuedAt, &t.ExpiresAt, &revokedAt, &rotatedFrom); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if revokedAt.Valid {
		t.RevokedAt = &revokedAt.Time
	}
	t.RotatedFrom = rotatedFrom.String
	return &t, nil
}

// Revoke sets revoked_at for the token if it is still live. The guarded
// UPDATE makes exactly one concurrent caller win.
func (r *PostgresRepository) Revoke(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevokeAllByUserOrg revokes every live token for (userID, orgID).
func (r *PostgresRepository) RevokeAllByUserOrg(ctx context.Context, userID, orgID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = now()
		 WHERE user_id = $1 AND org_id = $2 AND revoked_at IS NULL`, userID, orgID)
	return err
}
