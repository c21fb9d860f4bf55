package domain

import "time"

// AuditLog is one recorded security-relevant event, org-scoped like
// everything else.
type AuditLog struct {
	ID        string
	OrgID     string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
