package domain

import "time"

// Challenge is a pending login verification code issued to a user.
// Only the SHA-256 hash of the code is stored. A challenge is single-use:
// ConsumedAt is set exactly once, by the first successful verification.
type Challenge struct {
	ID         string
	UserID     string
	CodeHash   string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// Expired reports whether the challenge has passed its expiry at the given time.
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Consumed reports whether the challenge has already been used.
func (c *Challenge) Consumed() bool {
	return c.ConsumedAt != nil
}
