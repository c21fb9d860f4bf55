package realtime

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// frameSink collects events written to a fake peer.
type frameSink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
	fail   bool
}

func (s *frameSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return 0, errWriteFailed
	}
	return s.buf.Write(p)
}

func (s *frameSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *frameSink) events(t *testing.T) []Event {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	dec := json.NewDecoder(bytes.NewReader(s.buf.Bytes()))
	for dec.More() {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		out = append(out, ev)
	}
	return out
}

func (s *frameSink) wasClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var errWriteFailed = &writeError{}

type writeError struct{}

func (*writeError) Error() string { return "write failed" }

func addPeer(h *Hub, orgID, userID string) (*peer, *frameSink) {
	sink := &frameSink{}
	p := newPeer(sink, sink, userID)
	p.setState(StateAuthenticated)
	h.subscribe(orgID, p)
	return p, sink
}

func eventsOfType(evs []Event, typ string) []Event {
	var out []Event
	for _, ev := range evs {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// waitForEvents polls until the sink has written at least want events of the
// given type. Delivery runs on the per-peer writer goroutine.
func waitForEvents(t *testing.T, sink *frameSink, typ string, want int) []Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		evs := eventsOfType(sink.events(t), typ)
		if len(evs) >= want {
			return evs
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d %s events, want %d", len(evs), typ, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// stallSink blocks every write until released, like a client that stopped
// reading with a full TCP buffer.
type stallSink struct {
	release chan struct{}
}

func (s *stallSink) Write(p []byte) (int, error) {
	<-s.release
	return len(p), nil
}

func (s *stallSink) Close() error { return nil }

func TestPublish_FansOutToAllOrgSubscribers(t *testing.T) {
	h := NewHub(time.Minute, 3)
	_, sinkA := addPeer(h, "org-1", "user-a")
	_, sinkB := addPeer(h, "org-1", "user-b")

	n := h.Publish("org-1", Event{Type: EventTaskUpdated, Task: json.RawMessage(`{"id":"t1"}`)})
	if n != 2 {
		t.Fatalf("delivered = %d, want 2", n)
	}
	for _, sink := range []*frameSink{sinkA, sinkB} {
		evs := waitForEvents(t, sink, EventTaskUpdated, 1)
		if evs[0].OrgID != "org-1" {
			t.Errorf("event org_id = %q, want org-1", evs[0].OrgID)
		}
	}
}

func TestPublish_StrictOrgIsolation(t *testing.T) {
	h := NewHub(time.Minute, 3)
	_, sink1 := addPeer(h, "org-1", "user-a")
	_, sink2 := addPeer(h, "org-2", "user-b")

	h.Publish("org-1", Event{Type: EventTaskCreated})
	h.Publish("org-2", Event{Type: EventTaskDeleted})

	// Each subscriber's own event arriving proves its writer has drained.
	waitForEvents(t, sink1, EventTaskCreated, 1)
	waitForEvents(t, sink2, EventTaskDeleted, 1)
	if evs := eventsOfType(sink1.events(t), EventTaskDeleted); len(evs) != 0 {
		t.Error("org-1 subscriber observed org-2 event")
	}
	if evs := eventsOfType(sink2.events(t), EventTaskCreated); len(evs) != 0 {
		t.Error("org-2 subscriber observed org-1 event")
	}
}

func TestPublish_EmptyRoom(t *testing.T) {
	h := NewHub(time.Minute, 3)
	if n := h.Publish("org-empty", Event{Type: EventTaskCreated}); n != 0 {
		t.Errorf("delivered = %d, want 0", n)
	}
}

func TestPublish_EvictsDeadSubscriber(t *testing.T) {
	h := NewHub(time.Minute, 3)
	_, sink := addPeer(h, "org-1", "user-a")
	sink.mu.Lock()
	sink.fail = true
	sink.mu.Unlock()

	// The first event is queued; the writer hits the failure and closes the
	// peer. The next publish observes the closed peer and removes it.
	h.Publish("org-1", Event{Type: EventTaskCreated})
	deadline := time.Now().Add(2 * time.Second)
	for !sink.wasClosed() {
		if time.Now().After(deadline) {
			t.Fatal("dead subscriber connection not closed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if n := h.Publish("org-1", Event{Type: EventTaskCreated}); n != 0 {
		t.Errorf("delivered = %d, want 0", n)
	}
	if h.SubscriberCount("org-1") != 0 {
		t.Error("dead subscriber still registered")
	}
}

func TestPublish_StalledSubscriberNeverBlocksOthers(t *testing.T) {
	h := NewHub(time.Minute, 3)
	stall := &stallSink{release: make(chan struct{})}
	defer close(stall.release)
	stuck := newPeer(stall, stall, "user-stuck")
	defer stuck.close()
	stuck.setState(StateAuthenticated)
	h.subscribe("org-1", stuck)
	_, healthySink := addPeer(h, "org-2", "user-b")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < sendBufferSize+8; i++ {
			h.Publish("org-1", Event{Type: EventTaskCreated})
		}
		h.reap()
		h.Publish("org-2", Event{Type: EventTaskUpdated})
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish or heartbeat blocked behind a stalled subscriber")
	}
	waitForEvents(t, healthySink, EventTaskUpdated, 1)
	if h.SubscriberCount("org-1") != 1 {
		t.Error("stalled subscriber evicted before the missed-beat limit")
	}
}

func TestPublish_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub(time.Minute, 3)
	stall := &stallSink{release: make(chan struct{})}
	defer close(stall.release)
	p := newPeer(stall, stall, "user-stuck")
	defer p.close()
	p.setState(StateAuthenticated)
	h.subscribe("org-1", p)

	accepted := 0
	for i := 0; i < sendBufferSize*2; i++ {
		accepted += h.Publish("org-1", Event{Type: EventTaskCreated})
	}
	// The queue plus at most one event in flight at the writer.
	if accepted < sendBufferSize || accepted > sendBufferSize+1 {
		t.Errorf("accepted = %d, want %d or %d", accepted, sendBufferSize, sendBufferSize+1)
	}
	if h.SubscriberCount("org-1") != 1 {
		t.Error("slow subscriber must stay registered until the reaper decides")
	}
}

func TestUnsubscribe_SynchronousRemoval(t *testing.T) {
	h := NewHub(time.Minute, 3)
	p, sink := addPeer(h, "org-1", "user-a")

	h.unsubscribe("org-1", p)
	if h.SubscriberCount("org-1") != 0 {
		t.Fatal("peer still registered after unsubscribe")
	}
	if !sink.wasClosed() {
		t.Error("peer connection not closed")
	}
	// No publish may observe the peer afterwards.
	h.Publish("org-1", Event{Type: EventTaskCreated})
	if evs := eventsOfType(sink.events(t), EventTaskCreated); len(evs) != 0 {
		t.Error("unsubscribed peer received an event")
	}
}

func TestReaper_EvictsSilentConnection(t *testing.T) {
	h := NewHub(time.Minute, 3)
	silent, silentSink := addPeer(h, "org-1", "user-a")
	chatty, _ := addPeer(h, "org-1", "user-b")

	// Three beats unanswered; the chatty peer answers each one.
	for i := 0; i < 3; i++ {
		h.reap()
		chatty.touch()
	}
	if h.SubscriberCount("org-1") != 2 {
		t.Fatalf("subscribers after 3 missed beats = %d, want 2", h.SubscriberCount("org-1"))
	}
	if silent.currentState() != StateIdle {
		t.Errorf("silent peer state = %v, want idle", silent.currentState())
	}

	// The next beat evicts the silent peer only.
	h.reap()
	if h.SubscriberCount("org-1") != 1 {
		t.Fatalf("subscribers after eviction = %d, want 1", h.SubscriberCount("org-1"))
	}
	if !silentSink.wasClosed() {
		t.Error("evicted peer connection not closed")
	}
	if silent.currentState() != StateClosed {
		t.Errorf("evicted peer state = %v, want closed", silent.currentState())
	}
	if chatty.currentState() == StateClosed {
		t.Error("responsive peer was evicted")
	}

	// And it is excluded from all publishes thereafter.
	if n := h.Publish("org-1", Event{Type: EventTaskUpdated}); n != 1 {
		t.Errorf("delivered = %d, want 1", n)
	}
}

func TestReaper_TouchResetsMissedCount(t *testing.T) {
	h := NewHub(time.Minute, 3)
	p, _ := addPeer(h, "org-1", "user-a")

	for cycle := 0; cycle < 10; cycle++ {
		h.reap()
		h.reap()
		h.reap()
		p.touch()
	}
	if h.SubscriberCount("org-1") != 1 {
		t.Error("peer answering within the limit was evicted")
	}
	if p.currentState() != StateActive {
		t.Errorf("state = %v, want active", p.currentState())
	}
}

func TestHub_ConcurrentSubscribePublish(t *testing.T) {
	h := NewHub(time.Minute, 3)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p, _ := addPeer(h, "org-1", "user")
				h.Publish("org-1", Event{Type: EventTaskCreated})
				h.unsubscribe("org-1", p)
			}
		}()
	}
	wg.Wait()
	if h.SubscriberCount("org-1") != 0 {
		t.Errorf("subscribers = %d, want 0", h.SubscriberCount("org-1"))
	}
}

func TestConnState_String(t *testing.T) {
	states := map[ConnState]string{
		StateConnecting:    "connecting",
		StateAuthenticated: "authenticated",
		StateSubscribed:    "subscribed",
		StateActive:        "active",
		StateIdle:          "idle",
		StateClosed:        "closed",
	}
	for s, want := range states {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
