package domain

import "time"

// RefreshToken is one link in a rotation chain. Only the SHA-256 hash of the
// opaque token is stored. RotatedFrom points at the predecessor link; the
// chain root has it empty.
type RefreshToken struct {
	ID          string
	UserID      string
	OrgID       string
	TokenHash   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	RotatedFrom string
}

// Revoked reports whether the token has been revoked.
func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}

// Expired reports whether the token has passed its expiry at the given time.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
