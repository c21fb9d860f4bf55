package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockEmitter records emitted events and can return a fixed error.
type mockEmitter struct {
	mu     sync.Mutex
	events []*Event
	ctxs   []context.Context
	err    error
}

func (m *mockEmitter) Emit(ctx context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	m.ctxs = append(m.ctxs, ctx)
	return m.err
}

func (m *mockEmitter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestEmitAsync_NilEmitter(t *testing.T) {
	// Must not panic or start anything.
	EmitAsync(nil, context.Background(), &Event{Action: "login"})
}

func TestEmitAsync_NilEvent(t *testing.T) {
	m := &mockEmitter{}
	EmitAsync(m, context.Background(), nil)
	time.Sleep(20 * time.Millisecond)
	if m.count() != 0 {
		t.Errorf("emitted %d events for nil event, want 0", m.count())
	}
}

func TestEmitAsync_SuccessfulEmit(t *testing.T) {
	m := &mockEmitter{}
	ev := &Event{OrgID: "org-1", UserID: "user-1", Action: "task_created"}
	EmitAsync(m, context.Background(), ev)
	waitFor(t, func() bool { return m.count() == 1 })
	if m.events[0] != ev {
		t.Error("emitted a different event")
	}
}

func TestEmitAsync_UsesBackgroundContext(t *testing.T) {
	m := &mockEmitter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // the request context is already gone
	EmitAsync(m, ctx, &Event{Action: "logout"})
	waitFor(t, func() bool { return m.count() == 1 })
	if err := m.ctxs[0].Err(); err != nil {
		t.Errorf("emit context already done: %v", err)
	}
}

func TestEmitAsync_ErrorIsSwallowed(t *testing.T) {
	m := &mockEmitter{err: errors.New("collector down")}
	EmitAsync(m, context.Background(), &Event{Action: "login"})
	waitFor(t, func() bool { return m.count() == 1 })
}

func TestEmitAsync_ConcurrentEvents(t *testing.T) {
	m := &mockEmitter{}
	const n = 20
	for i := 0; i < n; i++ {
		EmitAsync(m, context.Background(), &Event{Action: "ping"})
	}
	waitFor(t, func() bool { return m.count() == n })
}
