package repository

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// ErrBadCursor means the cursor string did not decode to a valid position.
var ErrBadCursor = errors.New("malformed pagination cursor")

// Cursor marks a position in the (created_at DESC, id DESC) task ordering.
// The wire form is base64 over a small JSON object, opaque to clients.
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

// Encode returns the opaque wire form of the cursor.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses an opaque cursor. Empty input means "from the top" and
// returns a nil cursor.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrBadCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrBadCursor
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return nil, ErrBadCursor
	}
	return &c, nil
}
