package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"taskplane/internal/export/service"
	"taskplane/internal/platform/rbac"
	"taskplane/internal/server/middleware"
	"taskplane/internal/server/respond"
)

// ExportHandler exposes CSV export job submission and status over HTTP. Both
// operations require a live org membership, not just the role claim baked
// into the token.
type ExportHandler struct {
	exports     *service.ExportService
	memberships rbac.OrgMembershipGetter
}

func NewExportHandler(exports *service.ExportService, memberships rbac.OrgMembershipGetter) *ExportHandler {
	return &ExportHandler{exports: exports, memberships: memberships}
}

// Request enqueues a CSV export of the caller's org tasks and returns the
// queued job. The worker process picks it up asynchronously.
func (h *ExportHandler) Request(w http.ResponseWriter, r *http.Request) {
	if _, _, err := rbac.RequireOrgMember(r.Context(), h.memberships); err != nil {
		respond.Error(w, err)
		return
	}
	claims, _ := middleware.GetClaims(r.Context())
	job, err := h.exports.Request(r.Context(), claims)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusAccepted, job)
}

// Status returns the job's current state. Jobs are only visible inside the
// org that requested them.
func (h *ExportHandler) Status(w http.ResponseWriter, r *http.Request) {
	if _, _, err := rbac.RequireOrgMember(r.Context(), h.memberships); err != nil {
		respond.Error(w, err)
		return
	}
	claims, _ := middleware.GetClaims(r.Context())
	job, err := h.exports.Status(r.Context(), claims, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, job)
}
