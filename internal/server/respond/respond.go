// Package respond centralizes JSON response writing and the mapping from
// service errors to HTTP status codes.
package respond

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	authsvc "taskplane/internal/auth/service"
	"taskplane/internal/credential"
	exportsvc "taskplane/internal/export/service"
	otpsvc "taskplane/internal/otp/service"
	"taskplane/internal/platform/rbac"
	taskrepo "taskplane/internal/task/repository"
	tasksvc "taskplane/internal/task/service"
	"taskplane/internal/tenant"
)

type errorResponse struct {
	Error string `json:"error"`
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("respond: failed to encode response: %v", err)
	}
}

// Error maps service errors to HTTP status codes and writes a JSON error
// body. Unrecognized errors become a generic 500 so internal detail never
// leaks to clients.
func Error(w http.ResponseWriter, err error) {
	status := statusForError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("respond: internal error: %v", err)
		msg = "internal server error"
	}
	JSON(w, status, errorResponse{Error: msg})
}

// BadRequest writes a 400 with the given message.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, credential.ErrInvalidCredentials),
		errors.Is(err, otpsvc.ErrCodeInvalid),
		errors.Is(err, otpsvc.ErrCodeExpired),
		errors.Is(err, otpsvc.ErrCodeAlreadyUsed),
		errors.Is(err, authsvc.ErrInvalidRefreshToken),
		errors.Is(err, authsvc.ErrRefreshTokenExpired),
		errors.Is(err, authsvc.ErrTokenReuseDetected),
		errors.Is(err, rbac.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, authsvc.ErrNotOrgMember),
		errors.Is(err, rbac.ErrNotMember),
		errors.Is(err, rbac.ErrAdminRequired),
		errors.Is(err, tasksvc.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, tenant.ErrUnknownTenant),
		errors.Is(err, tasksvc.ErrTaskNotFound),
		errors.Is(err, exportsvc.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, authsvc.ErrEmailAlreadyRegistered),
		errors.Is(err, authsvc.ErrSubdomainTaken):
		return http.StatusConflict
	case errors.Is(err, credential.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, taskrepo.ErrBadCursor),
		errors.Is(err, authsvc.ErrValidation),
		errors.Is(err, tasksvc.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
