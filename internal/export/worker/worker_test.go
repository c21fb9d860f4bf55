package worker

import (
	"context"
	"encoding/csv"
	"os"
	"sort"
	"testing"
	"time"

	"taskplane/internal/export/domain"
	taskdomain "taskplane/internal/task/domain"
	taskrepo "taskplane/internal/task/repository"
)

type memJobStore struct {
	saved []*domain.Job
}

func (s *memJobStore) Save(_ context.Context, job *domain.Job) error {
	cp := *job
	s.saved = append(s.saved, &cp)
	return nil
}

func (s *memJobStore) Dequeue(_ context.Context, _ time.Duration) (*domain.Job, error) {
	return nil, nil
}

type memTaskLister struct {
	tasks map[string][]*taskdomain.Task // by org
}

func (l *memTaskLister) ListByOrg(_ context.Context, orgID string, cursor *taskrepo.Cursor, limit int) ([]*taskdomain.Task, error) {
	all := append([]*taskdomain.Task(nil), l.tasks[orgID]...)
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	var out []*taskdomain.Task
	for _, t := range all {
		if cursor != nil {
			after := t.CreatedAt.Before(cursor.CreatedAt) ||
				(t.CreatedAt.Equal(cursor.CreatedAt) && t.ID < cursor.ID)
			if !after {
				continue
			}
		}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func TestProcess_WritesCSVAndMarksDone(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	lister := &memTaskLister{tasks: map[string][]*taskdomain.Task{
		"org-1": {
			{ID: "t1", OrgID: "org-1", Title: "first", Status: taskdomain.StatusTodo, CreatedAt: base, UpdatedAt: base},
			{ID: "t2", OrgID: "org-1", Title: "second", Status: taskdomain.StatusDone, AssigneeID: "u1", CreatedAt: base.Add(time.Minute), UpdatedAt: base},
		},
		"org-2": {
			{ID: "t9", OrgID: "org-2", Title: "other org", Status: taskdomain.StatusTodo, CreatedAt: base, UpdatedAt: base},
		},
	}}
	store := &memJobStore{}
	w := New(store, lister, t.TempDir())

	job := &domain.Job{ID: "job-1", OrgID: "org-1", RequestedBy: "u1", Status: domain.StatusQueued}
	w.Process(context.Background(), job)

	if job.Status != domain.StatusDone {
		t.Fatalf("status = %q error = %q, want done", job.Status, job.Error)
	}
	if len(store.saved) != 2 {
		t.Fatalf("status saves = %d, want running then done", len(store.saved))
	}
	if store.saved[0].Status != domain.StatusRunning || store.saved[1].Status != domain.StatusDone {
		t.Errorf("transitions = %q, %q", store.saved[0].Status, store.saved[1].Status)
	}

	f, err := os.Open(job.File)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2 tasks", len(rows))
	}
	if rows[0][0] != "id" || rows[1][0] != "t2" || rows[2][0] != "t1" {
		t.Errorf("rows = %v, want newest first after header", rows)
	}
	for _, row := range rows[1:] {
		if row[1] == "other org" {
			t.Error("export contains another org's task")
		}
	}
}

type failingLister struct{}

func (failingLister) ListByOrg(_ context.Context, _ string, _ *taskrepo.Cursor, _ int) ([]*taskdomain.Task, error) {
	return nil, os.ErrDeadlineExceeded
}

func TestProcess_FailureMarksFailed(t *testing.T) {
	store := &memJobStore{}
	w := New(store, failingLister{}, t.TempDir())

	job := &domain.Job{ID: "job-1", OrgID: "org-1", Status: domain.StatusQueued}
	w.Process(context.Background(), job)

	if job.Status != domain.StatusFailed {
		t.Fatalf("status = %q, want failed", job.Status)
	}
	if job.Error == "" {
		t.Error("failed job has no error message")
	}
}
