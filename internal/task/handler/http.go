package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"taskplane/internal/server/middleware"
	"taskplane/internal/server/respond"
	"taskplane/internal/task/domain"
	"taskplane/internal/task/service"
)

// TaskHandler exposes org-scoped task CRUD over HTTP. Every route requires a
// validated access token; the token's org claim scopes all reads and writes.
type TaskHandler struct {
	tasks *service.TaskService
}

func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	AssigneeID  string     `json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
}

type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	AssigneeID  *string    `json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
}

type listTasksResponse struct {
	Tasks      []*domain.Task `json:"tasks"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		respond.BadRequest(w, "missing authentication")
		return
	}
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body")
		return
	}
	t, err := h.tasks.Create(r.Context(), claims, service.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.Status(req.Status),
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, t)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		respond.BadRequest(w, "missing authentication")
		return
	}
	t, err := h.tasks.Get(r.Context(), claims, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, t)
}

// List returns the org's tasks newest first with cursor pagination. Query
// params: cursor (opaque, from a previous page) and limit.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		respond.BadRequest(w, "missing authentication")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respond.BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}
	tasks, next, err := h.tasks.List(r.Context(), claims, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		respond.Error(w, err)
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	respond.JSON(w, http.StatusOK, listTasksResponse{Tasks: tasks, NextCursor: next})
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		respond.BadRequest(w, "missing authentication")
		return
	}
	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body")
		return
	}
	in := service.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	}
	if req.Status != nil {
		st := domain.Status(*req.Status)
		in.Status = &st
	}
	t, err := h.tasks.Update(r.Context(), claims, chi.URLParam(r, "id"), in)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		respond.BadRequest(w, "missing authentication")
		return
	}
	if err := h.tasks.Delete(r.Context(), claims, chi.URLParam(r, "id")); err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusNoContent, nil)
}
