// Package credential verifies email/password credentials behind a sliding
// attempt limiter. It is the leaf of the login chain: nothing here knows
// about orgs, tokens, or OTP.
package credential

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"taskplane/internal/security"
	userdomain "taskplane/internal/user/domain"
)

// Sentinel errors for credential verification; handlers map them to HTTP codes.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many login attempts")
)

// UserRepo is the minimal user repository needed by the credential store.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// Store verifies passwords against stored bcrypt hashes, rate-limiting
// attempts per (email, source) before any hash work is done.
type Store struct {
	users   UserRepo
	hasher  *security.Hasher
	limiter *attemptLimiter
}

// NewStore returns a credential store backed by the given user repository and
// Redis client for attempt counting.
func NewStore(users UserRepo, hasher *security.Hasher, redisClient *redis.Client, maxAttempts int, window time.Duration) *Store {
	return &Store{
		users:   users,
		hasher:  hasher,
		limiter: newAttemptLimiter(redisClient, maxAttempts, window),
	}
}

// Verify checks email/password and returns the user ID on success.
// The attempt counter is consulted first: over the threshold the call fails
// with ErrRateLimited without touching bcrypt. A user that does not exist and
// a wrong password both yield ErrInvalidCredentials, indistinguishably.
func (s *Store) Verify(ctx context.Context, email, password, source string) (string, error) {
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}
	if err := s.limiter.enforce(ctx, email, source); err != nil {
		return "", err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil || user.PasswordHash == "" {
		return "", ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	s.limiter.reset(ctx, email, source)
	return user.ID, nil
}
