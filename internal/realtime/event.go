// Package realtime tracks live websocket connections per organization and
// fans mutation events out to them. Channel keying is structural: a room only
// ever holds one org's connections, so cross-tenant delivery is not a
// filtered case but an impossibility.
//
// Delivery is fire and forget. There is no replay or resync protocol; a
// client that misses an event reaches a consistent state on the next one,
// because every event carries the full post-mutation record.
package realtime

import "encoding/json"

// Event types pushed to subscribers.
const (
	EventConnected   = "connected"
	EventPing        = "ping"
	EventPong        = "pong"
	EventTaskCreated = "task_created"
	EventTaskUpdated = "task_updated"
	EventTaskDeleted = "task_deleted"
)

// Event is the wire envelope for everything the server pushes.
type Event struct {
	Type   string          `json:"type"`
	OrgID  string          `json:"org_id,omitempty"`
	UserID string          `json:"user_id,omitempty"`
	Task   json.RawMessage `json:"task,omitempty"`
}

// clientFrame is what subscribers may send; only ping is meaningful, but any
// frame counts as liveness.
type clientFrame struct {
	Type string `json:"type"`
}
