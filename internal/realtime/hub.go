package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"time"
)

// sendBufferSize bounds the per-connection outbound queue. A subscriber whose
// queue is full misses the event; the connection itself stays registered until
// the heartbeat reaper decides.
const sendBufferSize = 32

var errSendBufferFull = errors.New("subscriber send buffer full")

// peer is one live connection. mu guards state and the heartbeat counter;
// frames are queued on out and written by a dedicated goroutine, so neither
// Publish nor the reaper ever waits on the network.
type peer struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
	out    chan Event
	done   chan struct{}
	userID string
	state  ConnState
	missed int
}

func newPeer(w io.Writer, closer io.Closer, userID string) *peer {
	p := &peer{
		enc:    json.NewEncoder(w),
		closer: closer,
		out:    make(chan Event, sendBufferSize),
		done:   make(chan struct{}),
		userID: userID,
		state:  StateConnecting,
	}
	go p.writeLoop()
	return p
}

// writeLoop is the only goroutine that touches the encoder. A connection that
// stops draining stalls this loop alone; a write failure closes the peer.
func (p *peer) writeLoop() {
	for {
		select {
		case <-p.done:
			return
		case ev := <-p.out:
			if err := p.enc.Encode(ev); err != nil {
				p.close()
				return
			}
		}
	}
}

// send queues the event for the writer. It never blocks: a closed peer
// reports io.ErrClosedPipe and a full queue drops the event.
func (p *peer) send(ev Event) error {
	p.mu.Lock()
	closed := p.state == StateClosed
	p.mu.Unlock()
	if closed {
		return io.ErrClosedPipe
	}
	select {
	case p.out <- ev:
		return nil
	case <-p.done:
		return io.ErrClosedPipe
	default:
		return errSendBufferFull
	}
}

func (p *peer) setState(s ConnState) {
	p.mu.Lock()
	if p.state != StateClosed {
		p.state = s
	}
	p.mu.Unlock()
}

func (p *peer) currentState() ConnState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// touch records inbound traffic: the heartbeat counter resets and an idle
// connection becomes active again.
func (p *peer) touch() {
	p.mu.Lock()
	p.missed = 0
	if p.state == StateIdle || p.state == StateSubscribed {
		p.state = StateActive
	}
	p.mu.Unlock()
}

// bumpMissed increments the heartbeat counter and returns the new count.
// A subscribed connection that missed a beat is idle until it speaks again.
func (p *peer) bumpMissed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.missed++
	if p.state == StateActive || p.state == StateSubscribed {
		p.state = StateIdle
	}
	return p.missed
}

func (p *peer) close() {
	p.mu.Lock()
	already := p.state == StateClosed
	p.state = StateClosed
	p.mu.Unlock()
	if already {
		return
	}
	close(p.done)
	if p.closer != nil {
		_ = p.closer.Close()
	}
}

// room holds one org's subscribers under its own lock, so publishes for
// unrelated tenants never contend.
type room struct {
	mu          sync.Mutex
	orgID       string
	subscribers map[*peer]struct{}
}

func newRoom(orgID string) *room {
	return &room{orgID: orgID, subscribers: make(map[*peer]struct{})}
}

func (r *room) join(p *peer) {
	r.mu.Lock()
	r.subscribers[p] = struct{}{}
	r.mu.Unlock()
}

func (r *room) leave(p *peer) {
	r.mu.Lock()
	delete(r.subscribers, p)
	r.mu.Unlock()
}

func (r *room) snapshot() []*peer {
	r.mu.Lock()
	peers := make([]*peer, 0, len(r.subscribers))
	for p := range r.subscribers {
		peers = append(peers, p)
	}
	r.mu.Unlock()
	return peers
}

// Hub is the connection registry: org_id -> room. The hub lock only guards
// the room map; per-room locks guard membership.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room

	heartbeatInterval time.Duration
	missedLimit       int
}

// NewHub returns a hub whose reaper pings every heartbeatInterval and evicts
// connections that stay silent past missedLimit consecutive beats.
func NewHub(heartbeatInterval time.Duration, missedLimit int) *Hub {
	return &Hub{
		rooms:             make(map[string]*room),
		heartbeatInterval: heartbeatInterval,
		missedLimit:       missedLimit,
	}
}

func (h *Hub) room(orgID string) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[orgID]
	if !ok {
		r = newRoom(orgID)
		h.rooms[orgID] = r
	}
	return r
}

// subscribe registers an authenticated peer under the org's room. The caller
// must have validated the handshake token first.
func (h *Hub) subscribe(orgID string, p *peer) {
	h.room(orgID).join(p)
	p.setState(StateSubscribed)
}

// unsubscribe removes the peer and closes it. Safe to call more than once;
// removal is synchronous, so no publish can observe the peer afterwards.
func (h *Hub) unsubscribe(orgID string, p *peer) {
	h.room(orgID).leave(p)
	p.close()
}

// Publish queues the event for every connection currently registered under
// orgID and returns the delivery count. Subscribers are snapshotted under the
// room lock; delivery is a non-blocking enqueue, so a stalled client never
// holds up the caller. A full queue drops the event for that subscriber and a
// closed subscriber is removed.
func (h *Hub) Publish(orgID string, ev Event) int {
	ev.OrgID = orgID
	r := h.room(orgID)
	delivered := 0
	for _, p := range r.snapshot() {
		switch err := p.send(ev); {
		case err == nil:
			delivered++
		case errors.Is(err, io.ErrClosedPipe):
			log.Printf("realtime: dropping closed subscriber org_id=%s user_id=%s", orgID, p.userID)
			h.unsubscribe(orgID, p)
		default:
			log.Printf("realtime: dropping event for slow subscriber org_id=%s user_id=%s", orgID, p.userID)
		}
	}
	return delivered
}

// Run drives the heartbeat reaper until ctx is done. Each tick pings every
// subscriber and bumps its missed counter; a peer that stayed silent past the
// limit is evicted. A ping that cannot be written is logged and retried next
// cycle unless the peer is already over the limit.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.reap()
		}
	}
}

func (h *Hub) reap() {
	h.mu.Lock()
	rooms := make([]*room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.Unlock()

	for _, r := range rooms {
		for _, p := range r.snapshot() {
			if p.bumpMissed() > h.missedLimit {
				log.Printf("realtime: evicting silent connection org_id=%s user_id=%s", r.orgID, p.userID)
				h.unsubscribe(r.orgID, p)
				continue
			}
			if err := p.send(Event{Type: EventPing}); err != nil {
				if errors.Is(err, io.ErrClosedPipe) {
					h.unsubscribe(r.orgID, p)
					continue
				}
				log.Printf("realtime: heartbeat write failed org_id=%s user_id=%s err=%v", r.orgID, p.userID, err)
			}
		}
	}
}

// SubscriberCount reports the number of live connections for the org.
func (h *Hub) SubscriberCount(orgID string) int {
	r := h.room(orgID)
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribers)
}
