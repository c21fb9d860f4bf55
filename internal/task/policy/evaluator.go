package policy

import (
	"context"

	"taskplane/internal/task/domain"
)

// Actor is the authenticated identity a decision is made for.
type Actor struct {
	UserID string
	Role   string
}

// Decision holds the outcome of a task policy evaluation.
type Decision struct {
	AllowUpdate bool
	AllowDelete bool
}

// Evaluator decides which task mutations an actor may perform.
type Evaluator interface {
	Evaluate(ctx context.Context, actor Actor, task *domain.Task) (Decision, error)
}
