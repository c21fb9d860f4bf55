// Package server wires the HTTP surface: routing, shared middleware, and the
// mapping from service errors to responses.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"taskplane/internal/audit"
	audithandler "taskplane/internal/audit/handler"
	authhandler "taskplane/internal/auth/handler"
	exporthandler "taskplane/internal/export/handler"
	healthhandler "taskplane/internal/health/handler"
	"taskplane/internal/realtime"
	"taskplane/internal/server/middleware"
	taskhandler "taskplane/internal/task/handler"
	"taskplane/internal/tenant"
)

// Deps holds everything the router needs. All fields are required except
// Auditor, which defaults to a no-op.
type Deps struct {
	Tokens   middleware.TokenValidator
	Resolver *tenant.Resolver
	Auditor  audit.AuditLogger

	Auth     *authhandler.AuthHandler
	AuditLog *audithandler.AuditHandler
	Tasks    *taskhandler.TaskHandler
	Exports  *exporthandler.ExportHandler
	Health   *healthhandler.Handler
	Realtime *realtime.Handler
}

// NewRouter builds the chi router for the API server.
func NewRouter(d Deps) http.Handler {
	auditor := d.Auditor
	if auditor == nil {
		auditor = audit.NopLogger{}
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.ClientIPFromRequest)
	r.Use(middleware.Authenticate(d.Tokens))
	r.Use(middleware.ResolveTenant(d.Resolver))

	r.Get("/healthz", d.Health.HealthCheck)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", d.Auth.Register)
		r.Post("/login", d.Auth.Login)
		r.Post("/verify-otp", d.Auth.VerifyOTP)
		r.Post("/refresh", d.Auth.Refresh)
		r.Post("/logout", d.Auth.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(middleware.Audit(auditor, "/healthz", "/ws"))

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", d.Tasks.Create)
			r.Get("/", d.Tasks.List)
			r.Get("/{id}", d.Tasks.Get)
			r.Patch("/{id}", d.Tasks.Update)
			r.Delete("/{id}", d.Tasks.Delete)
		})

		r.Route("/exports", func(r chi.Router) {
			r.Post("/", d.Exports.Request)
			r.Get("/{id}", d.Exports.Status)
		})

		r.Get("/audit", d.AuditLog.List)
	})

	// WebSocket auth happens inside the handshake so the close frame can
	// carry a policy violation status instead of a plain HTTP error.
	r.Get("/ws/{orgID}", d.Realtime.ServeWS)

	return r
}
