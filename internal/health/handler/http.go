package handler

import (
	"context"
	"net/http"

	"taskplane/internal/server/respond"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Handler serves readiness for Kubernetes, load balancers, and CI. A nil
// check is skipped, so the handler stays usable in partial setups.
type Handler struct {
	db    Pinger
	cache Pinger
}

func NewHandler(db, cache Pinger) *Handler {
	return &Handler{db: db, cache: cache}
}

type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db,omitempty"`
	Cache  string `json:"cache,omitempty"`
}

// HealthCheck returns 200 when every configured dependency responds and 503
// otherwise. Check failures never panic the server; they only flip status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	res := healthResponse{Status: "ok"}
	status := http.StatusOK
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			res.Status = "degraded"
			res.DB = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	if h.cache != nil {
		if err := h.cache.PingContext(r.Context()); err != nil {
			res.Status = "degraded"
			res.Cache = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	respond.JSON(w, status, res)
}
