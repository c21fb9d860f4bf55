package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"taskplane/internal/security"
)

// Policy violation close status, sent when the handshake token is missing,
// invalid, or scoped to a different org than the requested channel.
const closeStatusPolicyViolation = 1008

// TokenValidator verifies an access token and returns its claims.
type TokenValidator interface {
	ValidateAccess(token string) (*security.Claims, error)
}

// Handler upgrades GET /ws/{orgID} requests and runs the per-connection loop.
type Handler struct {
	hub       *Hub
	validator TokenValidator
}

// NewHandler returns a websocket handler backed by the hub.
func NewHandler(hub *Hub, validator TokenValidator) *Handler {
	return &Handler{hub: hub, validator: validator}
}

// ServeWS handles GET /ws/{orgID}.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	websocket.Handler(func(conn *websocket.Conn) {
		h.handleConn(conn, orgID)
	}).ServeHTTP(w, r)
}

func (h *Handler) handleConn(conn *websocket.Conn, orgID string) {
	defer func() {
		_ = conn.Close()
	}()

	p := newPeer(conn, conn, "")
	claims, err := h.validator.ValidateAccess(handshakeToken(conn.Request()))
	if err != nil {
		log.Printf("realtime: handshake rejected org_id=%s err=%v", orgID, err)
		_ = conn.WriteClose(closeStatusPolicyViolation)
		p.close()
		return
	}
	if claims.OrgID != orgID {
		// A token for another org never reaches the room, not even read-only.
		log.Printf("realtime: handshake rejected org_id=%s token_org_id=%s user_id=%s", orgID, claims.OrgID, claims.UserID)
		_ = conn.WriteClose(closeStatusPolicyViolation)
		p.close()
		return
	}
	p.userID = claims.UserID
	p.setState(StateAuthenticated)

	h.hub.subscribe(orgID, p)
	defer h.hub.unsubscribe(orgID, p)

	if err := p.send(Event{Type: EventConnected, OrgID: orgID, UserID: claims.UserID}); err != nil {
		return
	}

	decoder := json.NewDecoder(conn)
	for {
		var frame clientFrame
		if err := decoder.Decode(&frame); err != nil {
			return
		}
		p.touch()
		if frame.Type == EventPing {
			_ = p.send(Event{Type: EventPong})
		}
	}
}

func handshakeToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	}
	return ""
}
