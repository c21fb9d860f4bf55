package domain

import (
	"errors"
	"time"
)

// Status is the task workflow state.
type Status string

const (
	StatusTodo  Status = "todo"
	StatusDoing Status = "doing"
	StatusDone  Status = "done"
)

// Valid reports whether the status is one of the known states.
func (s Status) Valid() bool {
	return s == StatusTodo || s == StatusDoing || s == StatusDone
}

// Task is an org-scoped work item. AssigneeID and DueDate are optional.
type Task struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Validate validates the task for persistence. Returns an error describing the first validation failure.
func (t *Task) Validate() error {
	if t.Title == "" {
		return errors.New("title is required")
	}
	if len(t.Title) > 200 {
		return errors.New("title must be at most 200 characters")
	}
	if !t.Status.Valid() {
		return errors.New("status must be todo, doing, or done")
	}
	if t.OrgID == "" {
		return errors.New("org_id is required")
	}
	return nil
}
