package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	membershipdomain "taskplane/internal/membership/domain"
	orgdomain "taskplane/internal/organization/domain"
	userdomain "taskplane/internal/user/domain"
)

// Duplicate-key errors surfaced from the registration transaction. A register
// that races past the service's pre-checks still lands here instead of
// leaking a raw constraint violation.
var (
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrDuplicateSubdomain = errors.New("subdomain already exists")
)

// PostgresRegistrar persists an organization, its first user, and the admin
// membership in one transaction, so a failed registration leaves no orphan
// org squatting the subdomain.
type PostgresRegistrar struct {
	db *sql.DB
}

// NewPostgresRegistrar returns a registrar that uses the given db for persistence.
func NewPostgresRegistrar(db *sql.DB) *PostgresRegistrar {
	return &PostgresRegistrar{db: db}
}

// CreateAccount inserts the org, user, and membership atomically.
func (r *PostgresRegistrar) CreateAccount(ctx context.Context, org *orgdomain.Org, u *userdomain.User, m *membershipdomain.Membership) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO organizations (id, subdomain, name, created_at) VALUES ($1, $2, $3, $4)`,
		org.ID, org.Subdomain, org.Name, org.CreatedAt); err != nil {
		return mapDuplicate(err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt); err != nil {
		return mapDuplicate(err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO memberships (user_id, org_id, role, created_at) VALUES ($1, $2, $3, $4)`,
		m.UserID, m.OrgID, m.Role, m.CreatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// mapDuplicate translates a postgres unique violation into the matching
// sentinel; other errors pass through.
func mapDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "subdomain"):
		return ErrDuplicateSubdomain
	case strings.Contains(pgErr.ConstraintName, "email"):
		return ErrDuplicateEmail
	}
	return err
}
