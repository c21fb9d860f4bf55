package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"taskplane/internal/realtime"
	"taskplane/internal/security"
	"taskplane/internal/task/domain"
	"taskplane/internal/task/policy"
	"taskplane/internal/task/repository"
)

// Sentinel errors for the task service; handler maps them to HTTP codes.
var (
	ErrValidation   = errors.New("validation failed")
	ErrTaskNotFound = errors.New("task not found")
	ErrUnauthorized = errors.New("not allowed for this task")
)

// TaskRepo is the minimal task repository needed by the service.
type TaskRepo interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByIDInOrg(ctx context.Context, orgID, id string) (*domain.Task, error)
	ListByOrg(ctx context.Context, orgID string, cursor *repository.Cursor, limit int) ([]*domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	DeleteInOrg(ctx context.Context, orgID, id string) (bool, error)
}

// Publisher fans a mutation event out to the org's live connections.
type Publisher interface {
	Publish(orgID string, ev realtime.Event) int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TaskService implements org-scoped task CRUD. Every mutation publishes its
// event synchronously before returning; delivery beyond that point is fire
// and forget.
type TaskService struct {
	repo           TaskRepo
	publisher      Publisher
	policy         policy.Evaluator
	storageTimeout time.Duration
}

// NewTaskService returns a TaskService with the given dependencies.
func NewTaskService(repo TaskRepo, publisher Publisher, evaluator policy.Evaluator, storageTimeout time.Duration) *TaskService {
	return &TaskService{repo: repo, publisher: publisher, policy: evaluator, storageTimeout: storageTimeout}
}

// CreateInput holds the fields for a new task.
type CreateInput struct {
	Title       string
	Description string
	Status      domain.Status
	AssigneeID  string
	DueDate     *time.Time
}

// UpdateInput holds a partial update; nil fields stay unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *domain.Status
	AssigneeID  *string
	DueDate     *time.Time
}

// Create inserts a task in the actor's org and publishes task_created.
func (s *TaskService) Create(ctx context.Context, actor *security.Claims, in CreateInput) (*domain.Task, error) {
	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	status := in.Status
	if status == "" {
		status = domain.StatusTodo
	}
	t := &domain.Task{
		ID:          uuid.New().String(),
		OrgID:       actor.OrgID,
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		AssigneeID:  in.AssigneeID,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.publish(realtime.EventTaskCreated, actor, t)
	return t, nil
}

// Get returns the task, scoped to the actor's org.
func (s *TaskService) Get(ctx context.Context, actor *security.Claims, id string) (*domain.Task, error) {
	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	t, err := s.repo.GetByIDInOrg(ctx, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

// List returns one page of the org's tasks, newest first, and the cursor for
// the next page. An empty next cursor means the listing is exhausted.
func (s *TaskService) List(ctx context.Context, actor *security.Claims, cursorStr string, limit int) ([]*domain.Task, string, error) {
	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	cursor, err := repository.DecodeCursor(cursorStr)
	if err != nil {
		return nil, "", err
	}
	tasks, err := s.repo.ListByOrg(ctx, actor.OrgID, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	next := ""
	if len(tasks) == limit {
		last := tasks[len(tasks)-1]
		next = repository.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return tasks, next, nil
}

// Update applies a partial update and publishes task_updated. Admins may
// update any task in their org, members only tasks assigned to them.
func (s *TaskService) Update(ctx context.Context, actor *security.Claims, id string, in UpdateInput) (*domain.Task, error) {
	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	t, err := s.repo.GetByIDInOrg(ctx, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTaskNotFound
	}
	decision, err := s.policy.Evaluate(ctx, policy.Actor{UserID: actor.UserID, Role: actor.Role}, t)
	if err != nil {
		return nil, err
	}
	if !decision.AllowUpdate {
		return nil, ErrUnauthorized
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.AssigneeID != nil {
		t.AssigneeID = *in.AssigneeID
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	t.UpdatedAt = time.Now().UTC()
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.publish(realtime.EventTaskUpdated, actor, t)
	return t, nil
}

// Delete removes the task and publishes task_deleted carrying the last state
// of the record. Admins only.
func (s *TaskService) Delete(ctx context.Context, actor *security.Claims, id string) error {
	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	t, err := s.repo.GetByIDInOrg(ctx, actor.OrgID, id)
	if err != nil {
		return err
	}
	if t == nil {
		return ErrTaskNotFound
	}
	decision, err := s.policy.Evaluate(ctx, policy.Actor{UserID: actor.UserID, Role: actor.Role}, t)
	if err != nil {
		return err
	}
	if !decision.AllowDelete {
		return ErrUnauthorized
	}
	deleted, err := s.repo.DeleteInOrg(ctx, actor.OrgID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrTaskNotFound
	}
	s.publish(realtime.EventTaskDeleted, actor, t)
	return nil
}

func (s *TaskService) publish(eventType string, actor *security.Claims, t *domain.Task) {
	raw, err := json.Marshal(t)
	if err != nil {
		log.Printf("task: marshal event record task_id=%s err=%v", t.ID, err)
		return
	}
	s.publisher.Publish(t.OrgID, realtime.Event{
		Type:   eventType,
		UserID: actor.UserID,
		Task:   raw,
	})
}

func (s *TaskService) withStorageTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storageTimeout)
}
