package repository

import (
	"context"
	"database/sql"
	"errors"

	"taskplane/internal/membership/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByUserAndOrg returns the membership for (userID, orgID), or nil if the
// user is not a member of the org. It returns an error only for database failures.
func (r *PostgresRepository) GetByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT user_id, org_id, role, created_at FROM memberships WHERE user_id = $1 AND org_id = $2`,
		userID, orgID)
	var m domain.Membership
	if err := row.Scan(&m.UserID, &m.OrgID, &m.Role, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListByUser returns all memberships for the user, oldest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, org_id, role, created_at FROM memberships WHERE user_id = $1 ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.UserID, &m.OrgID, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// Create persists the membership.
func (r *PostgresRepository) Create(ctx context.Context, m *domain.Membership) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO memberships (user_id, org_id, role, created_at) VALUES ($1, $2, $3, $4)`,
		m.UserID, m.OrgID, m.Role, m.CreatedAt)
	return err
}
