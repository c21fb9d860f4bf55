package domain

import "time"

// Status is the export job lifecycle state.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is one CSV export request, keyed by org and requester. Status records
// live in Redis with a bounded TTL; the export itself lands in a file.
type Job struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	RequestedBy string    `json:"requested_by"`
	Status      Status    `json:"status"`
	File        string    `json:"file,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
