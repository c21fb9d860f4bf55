package handler

import (
	"net/http"
	"strconv"
	"time"

	auditdomain "taskplane/internal/audit/domain"
	auditrepo "taskplane/internal/audit/repository"
	"taskplane/internal/platform/rbac"
	"taskplane/internal/server/respond"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// AuditHandler exposes the org's audit trail. Listing requires a live admin
// membership, not just the role claim baked into the token.
type AuditHandler struct {
	repo        auditrepo.Repository
	memberships rbac.OrgMembershipGetter
}

func NewAuditHandler(repo auditrepo.Repository, memberships rbac.OrgMembershipGetter) *AuditHandler {
	return &AuditHandler{repo: repo, memberships: memberships}
}

type auditEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type listAuditResponse struct {
	Entries []auditEntry `json:"entries"`
}

// List returns the org's audit entries newest first. Query params: limit and
// offset.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, _, err := rbac.RequireOrgAdmin(r.Context(), h.memberships)
	if err != nil {
		respond.Error(w, err)
		return
	}
	limit, offset, ok := pagination(r)
	if !ok {
		respond.BadRequest(w, "invalid limit or offset")
		return
	}
	entries, err := h.repo.ListByOrg(r.Context(), orgID, limit, offset)
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := listAuditResponse{Entries: make([]auditEntry, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, newAuditEntry(e))
	}
	respond.JSON(w, http.StatusOK, out)
}

func newAuditEntry(e *auditdomain.AuditLog) auditEntry {
	return auditEntry{
		ID:        e.ID,
		UserID:    e.UserID,
		Action:    e.Action,
		Resource:  e.Resource,
		IP:        e.IP,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt,
	}
}

func pagination(r *http.Request) (limit, offset int32, ok bool) {
	limit = defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > maxLimit {
			n = maxLimit
		}
		limit = int32(n)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		offset = int32(n)
	}
	return limit, offset, true
}
