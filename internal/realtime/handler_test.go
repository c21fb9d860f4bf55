package realtime

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"taskplane/internal/security"
)

type wsFixture struct {
	hub    *Hub
	tokens *security.TokenProvider
	srv    *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	hub := NewHub(time.Minute, 3)
	router := chi.NewRouter()
	router.Get("/ws/{orgID}", NewHandler(hub, tokens).ServeWS)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &wsFixture{hub: hub, tokens: tokens, srv: srv}
}

func (f *wsFixture) accessToken(t *testing.T, userID, orgID string) string {
	t.Helper()
	token, _, _, err := f.tokens.IssueAccess(userID, orgID, "member")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	return token
}

func (f *wsFixture) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(f.srv.URL, "http", "ws", 1) + path
	conn, err := websocket.Dial(wsURL, "", f.srv.URL)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) (Event, error) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	err := websocket.JSON.Receive(conn, &ev)
	return ev, err
}

func mustReadEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	ev, err := readEvent(t, conn)
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func TestServeWS_ConnectedEvent(t *testing.T) {
	f := newWSFixture(t)
	token := f.accessToken(t, "user-1", "org-1")
	conn := f.dial(t, "/ws/org-1?token="+token)

	ev := mustReadEvent(t, conn)
	if ev.Type != EventConnected || ev.OrgID != "org-1" || ev.UserID != "user-1" {
		t.Fatalf("first event = %+v, want connected for org-1/user-1", ev)
	}
}

func TestServeWS_PingPong(t *testing.T) {
	f := newWSFixture(t)
	token := f.accessToken(t, "user-1", "org-1")
	conn := f.dial(t, "/ws/org-1?token="+token)
	mustReadEvent(t, conn)

	if err := websocket.JSON.Send(conn, map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("send ping: %v", err)
	}
	ev := mustReadEvent(t, conn)
	if ev.Type != EventPong {
		t.Fatalf("event = %+v, want pong", ev)
	}
}

func TestServeWS_RejectsMissingToken(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "/ws/org-1")

	if _, err := readEvent(t, conn); err == nil {
		t.Fatal("expected connection close, got an event")
	}
	if f.hub.SubscriberCount("org-1") != 0 {
		t.Error("unauthenticated connection was registered")
	}
}

func TestServeWS_RejectsWrongOrgToken(t *testing.T) {
	f := newWSFixture(t)
	token := f.accessToken(t, "user-1", "org-2")
	conn := f.dial(t, "/ws/org-1?token="+token)

	if _, err := readEvent(t, conn); err == nil {
		t.Fatal("expected connection close, got an event")
	}
	if f.hub.SubscriberCount("org-1") != 0 {
		t.Error("cross-org connection was registered")
	}
}

func TestServeWS_FanoutAndIsolation(t *testing.T) {
	f := newWSFixture(t)

	connA := f.dial(t, "/ws/org-1?token="+f.accessToken(t, "user-a", "org-1"))
	connB := f.dial(t, "/ws/org-1?token="+f.accessToken(t, "user-b", "org-1"))
	connOther := f.dial(t, "/ws/org-2?token="+f.accessToken(t, "user-c", "org-2"))
	for _, c := range []*websocket.Conn{connA, connB, connOther} {
		mustReadEvent(t, c)
	}

	f.hub.Publish("org-1", Event{
		Type:   EventTaskUpdated,
		UserID: "user-a",
		Task:   json.RawMessage(`{"id":"t1","title":"ship it"}`),
	})

	for _, c := range []*websocket.Conn{connA, connB} {
		ev := mustReadEvent(t, c)
		if ev.Type != EventTaskUpdated || ev.OrgID != "org-1" {
			t.Fatalf("event = %+v, want task_updated for org-1", ev)
		}
		if len(ev.Task) == 0 {
			t.Error("event missing task record")
		}
	}

	f.hub.Publish("org-2", Event{Type: EventTaskDeleted})
	ev := mustReadEvent(t, connOther)
	if ev.Type != EventTaskDeleted {
		t.Fatalf("org-2 event = %+v, want task_deleted", ev)
	}
	// The org-2 client must never have seen the org-1 event before its own.
	if ev.OrgID != "org-2" {
		t.Errorf("org-2 client observed event for %q", ev.OrgID)
	}
}

func TestServeWS_BearerHeaderAuth(t *testing.T) {
	f := newWSFixture(t)
	token := f.accessToken(t, "user-1", "org-1")

	wsURL := strings.Replace(f.srv.URL, "http", "ws", 1) + "/ws/org-1"
	cfg, err := websocket.NewConfig(wsURL, f.srv.URL)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	cfg.Header.Set("Authorization", "Bearer "+token)
	conn, err := websocket.DialConfig(cfg)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	ev := mustReadEvent(t, conn)
	if ev.Type != EventConnected {
		t.Fatalf("event = %+v, want connected", ev)
	}
}

func TestServeWS_DisconnectDeregisters(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "/ws/org-1?token="+f.accessToken(t, "user-1", "org-1"))
	mustReadEvent(t, conn)

	if f.hub.SubscriberCount("org-1") != 1 {
		t.Fatalf("subscribers = %d, want 1", f.hub.SubscriberCount("org-1"))
	}
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for f.hub.SubscriberCount("org-1") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("closed connection never deregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
