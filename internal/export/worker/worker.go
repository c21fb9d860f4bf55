// Package worker drains the export queue and renders one CSV file per job.
// It runs as its own process (cmd/worker) so slow exports never contend with
// the request path.
package worker

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"taskplane/internal/export/domain"
	taskdomain "taskplane/internal/task/domain"
	taskrepo "taskplane/internal/task/repository"
)

const (
	dequeueTimeout = 5 * time.Second
	pageSize       = 500
)

// JobStore is the minimal export store needed by the worker.
type JobStore interface {
	Save(ctx context.Context, job *domain.Job) error
	Dequeue(ctx context.Context, timeout time.Duration) (*domain.Job, error)
}

// TaskLister pages through an org's tasks.
type TaskLister interface {
	ListByOrg(ctx context.Context, orgID string, cursor *taskrepo.Cursor, limit int) ([]*taskdomain.Task, error)
}

// Worker processes export jobs one at a time.
type Worker struct {
	jobs   JobStore
	tasks  TaskLister
	outDir string
}

// New returns a worker writing CSV files under outDir.
func New(jobs JobStore, tasks TaskLister, outDir string) *Worker {
	return &Worker{jobs: jobs, tasks: tasks, outDir: outDir}
}

// Run drains the queue until ctx is done. A failing job is marked failed and
// the worker moves on; it never exits on a per-job error.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := w.jobs.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("worker: dequeue failed err=%v", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}
		w.Process(ctx, job)
	}
}

// Process runs a single job to completion, updating its status record at
// each transition.
func (w *Worker) Process(ctx context.Context, job *domain.Job) {
	job.Status = domain.StatusRunning
	job.UpdatedAt = time.Now().UTC()
	if err := w.jobs.Save(ctx, job); err != nil {
		log.Printf("worker: mark running job_id=%s err=%v", job.ID, err)
	}

	file, err := w.export(ctx, job)
	job.UpdatedAt = time.Now().UTC()
	if err != nil {
		log.Printf("worker: export failed job_id=%s org_id=%s err=%v", job.ID, job.OrgID, err)
		job.Status = domain.StatusFailed
		job.Error = err.Error()
	} else {
		job.Status = domain.StatusDone
		job.File = file
	}
	if err := w.jobs.Save(ctx, job); err != nil {
		log.Printf("worker: save final status job_id=%s err=%v", job.ID, err)
	}
}

func (w *Worker) export(ctx context.Context, job *domain.Job) (string, error) {
	if err := os.MkdirAll(w.outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(w.outDir, job.ID+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"id", "title", "description", "status", "assignee_id", "due_date", "created_at", "updated_at"}); err != nil {
		return "", err
	}
	var cursor *taskrepo.Cursor
	for {
		tasks, err := w.tasks.ListByOrg(ctx, job.OrgID, cursor, pageSize)
		if err != nil {
			return "", err
		}
		for _, t := range tasks {
			due := ""
			if t.DueDate != nil {
				due = t.DueDate.UTC().Format(time.RFC3339)
			}
			row := []string{
				t.ID, t.Title, t.Description, string(t.Status), t.AssigneeID, due,
				t.CreatedAt.UTC().Format(time.RFC3339), t.UpdatedAt.UTC().Format(time.RFC3339),
			}
			if err := cw.Write(row); err != nil {
				return "", err
			}
		}
		if len(tasks) < pageSize {
			break
		}
		last := tasks[len(tasks)-1]
		cursor = &taskrepo.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", err
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("sync %s: %w", path, err)
	}
	return path, nil
}
