package repository

import (
	"context"
	"database/sql"
	"errors"

	"taskplane/internal/organization/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an organization repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the organization for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Org, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, subdomain, name, created_at FROM organizations WHERE id = $1`, id)
	return scanOrg(row)
}

// GetBySubdomain returns the organization for subdomain, or nil if not found.
func (r *PostgresRepository) GetBySubdomain(ctx context.Context, subdomain string) (*domain.Org, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, subdomain, name, created_at FROM organizations WHERE subdomain = $1`, subdomain)
	return scanOrg(row)
}

// Create persists the organization. The org must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.Org) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizations (id, subdomain, name, created_at) VALUES ($1, $2, $3, $4)`,
		o.ID, o.Subdomain, o.Name, o.CreatedAt)
	return err
}

func scanOrg(row *sql.Row) (*domain.Org, error) {
	var o domain.Org
	if err := row.Scan(&o.ID, &o.Subdomain, &o.Name, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}
