package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookNotifier_SendCode(t *testing.T) {
	var got map[string]string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier("api-key", srv.URL)
	if err := n.SendCode(context.Background(), "user@acme.test", "123456"); err != nil {
		t.Fatalf("SendCode: %v", err)
	}
	if gotAuth != "api-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "api-key")
	}
	if got["to"] != "user@acme.test" || got["code"] != "123456" {
		t.Errorf("body = %v", got)
	}
}

func TestWebhookNotifier_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier("", srv.URL)
	if err := n.SendCode(context.Background(), "user@acme.test", "123456"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestWebhookNotifier_MissingURL(t *testing.T) {
	n := NewWebhookNotifier("key", "")
	if err := n.SendCode(context.Background(), "user@acme.test", "123456"); err == nil {
		t.Fatal("expected error when URL not configured")
	}
}
