package repository

import (
	"context"
	"database/sql"
	"errors"

	"taskplane/internal/task/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a task repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the task. The task must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, org_id, title, description, status, assignee_id, due_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.OrgID, t.Title, t.Description, t.Status,
		nullString(t.AssigneeID), t.DueDate, t.CreatedAt, t.UpdatedAt)
	return err
}

// GetByIDInOrg returns the task for (orgID, id), or nil if not found. A task
// belonging to another org is indistinguishable from a missing one.
func (r *PostgresRepository) GetByIDInOrg(ctx context.Context, orgID, id string) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, org_id, title, description, status, assignee_id, due_date, created_at, updated_at
		 FROM tasks WHERE org_id = $1 AND id = $2`, orgID, id)
	t, err := scanTask(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// ListByOrg returns up to limit tasks for the org, newest first, starting
// strictly after the cursor position when cursor is non-nil.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string, cursor *Cursor, limit int) ([]*domain.Task, error) {
	var rows *sql.Rows
	var err error
	if cursor == nil {
		rows, err = r.db.QueryContext(ctx,
			`SELECT id, org_id, title, description, status, assignee_id, due_date, created_at, updated_at
			 FROM tasks WHERE org_id = $1
			 ORDER BY created_at DESC, id DESC LIMIT $2`, orgID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT id, org_id, title, description, status, assignee_id, due_date, created_at, updated_at
			 FROM tasks WHERE org_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC LIMIT $4`, orgID, cursor.CreatedAt, cursor.ID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update rewrites the mutable fields of the task, keyed by (org_id, id).
func (r *PostgresRepository) Update(ctx context.Context, t *domain.Task) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET title = $3, description = $4, status = $5, assignee_id = $6, due_date = $7, updated_at = $8
		 WHERE org_id = $1 AND id = $2`,
		t.OrgID, t.ID, t.Title, t.Description, t.Status,
		nullString(t.AssigneeID), t.DueDate, t.UpdatedAt)
	return err
}

// DeleteInOrg removes the task, reporting whether a row was deleted.
func (r *PostgresRepository) DeleteInOrg(ctx context.Context, orgID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func scanTask(scan func(dest ...any) error) (*domain.Task, error) {
	var t domain.Task
	var assignee sql.NullString
	var due sql.NullTime
	if err := scan(&t.ID, &t.OrgID, &t.Title, &t.Description, &t.Status,
		&assignee, &due, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.AssigneeID = assignee.String
	if due.Valid {
		t.DueDate = &due.Time
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
