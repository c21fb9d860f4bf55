package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"taskplane/internal/audit/domain"
	auditrepo "taskplane/internal/audit/repository"
	"taskplane/internal/telemetry"
)

// SentinelOrgID is the org_id used for audit events that have no org
// (e.g. login_failure before any org is resolved).
const SentinelOrgID = "_system"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP
// extractor. When an emitter is set, every entry is also mirrored to the
// observability backend asynchronously.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	emitter     telemetry.EventEmitter
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor
// for client IP. ipExtractor and emitter may be nil.
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, emitter telemetry.EventEmitter) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor, emitter: emitter}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if orgID == "" {
		orgID = SentinelOrgID
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
	telemetry.EmitAsync(l.emitter, ctx, &telemetry.Event{
		OrgID:     entry.OrgID,
		UserID:    entry.UserID,
		Action:    entry.Action,
		Resource:  entry.Resource,
		IP:        entry.IP,
		Metadata:  entry.Metadata,
		CreatedAt: entry.CreatedAt,
	})
}

// NopLogger discards all events. Useful where audit is not wired.
type NopLogger struct{}

func (NopLogger) LogEvent(context.Context, string, string, string, string, string) {}
