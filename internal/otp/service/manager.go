package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"taskplane/internal/otp"
	"taskplane/internal/otp/domain"
)

// Sentinel errors for challenge verification; handler maps them to HTTP codes.
var (
	ErrCodeInvalid     = errors.New("invalid verification code")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrCodeAlreadyUsed = errors.New("verification code already used")
)

// ChallengeRepo is the minimal challenge repository needed by the manager.
type ChallengeRepo interface {
	Create(ctx context.Context, c *domain.Challenge) error
	GetByID(ctx context.Context, id string) (*domain.Challenge, error)
	GetLatestActiveByUser(ctx context.Context, userID string) (*domain.Challenge, error)
	Consume(ctx context.Context, id string) (bool, error)
}

// Notifier delivers the plaintext code to the user out of band.
type Notifier interface {
	SendCode(ctx context.Context, email, code string) error
}

// Manager issues and verifies single-use login challenges.
type Manager struct {
	repo     ChallengeRepo
	notifier Notifier
	ttl      time.Duration
	now      func() time.Time
}

// NewManager returns a Manager that issues challenges valid for ttl.
func NewManager(repo ChallengeRepo, notifier Notifier, ttl time.Duration) *Manager {
	return &Manager{repo: repo, notifier: notifier, ttl: ttl, now: time.Now}
}

// Issue creates a fresh challenge for the user and sends the code to email.
// A notifier failure does not fail the issue; the challenge stays valid and
// the user can request another.
func (m *Manager) Issue(ctx context.Context, userID, email string) (string, error) {
	code, err := otp.GenerateCode()
	if err != nil {
		return "", err
	}
	now := m.now().UTC()
	c := &domain.Challenge{
		ID:        uuid.New().String(),
		UserID:    userID,
		CodeHash:  otp.HashCode(code),
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}
	if err := m.repo.Create(ctx, c); err != nil {
		return "", err
	}
	if err := m.notifier.SendCode(ctx, email, code); err != nil {
		log.Printf("otp: send code failed user_id=%s err=%v", userID, err)
	}
	return c.ID, nil
}

// Verify checks the code against the given challenge and consumes it.
// Exactly one concurrent caller with the correct code succeeds; the rest
// get ErrCodeAlreadyUsed.
func (m *Manager) Verify(ctx context.Context, challengeID, code string) (string, error) {
	c, err := m.repo.GetByID(ctx, challengeID)
	if err != nil {
		return "", err
	}
	return m.verify(ctx, c, code)
}

// VerifyForUser checks the code against the user's newest pending challenge.
func (m *Manager) VerifyForUser(ctx context.Context, userID, code string) (string, error) {
	c, err := m.repo.GetLatestActiveByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return m.verify(ctx, c, code)
}

func (m *Manager) verify(ctx context.Context, c *domain.Challenge, code string) (string, error) {
	if c == nil {
		return "", ErrCodeInvalid
	}
	if c.Consumed() {
		return "", ErrCodeAlreadyUsed
	}
	if c.Expired(m.now().UTC()) {
		return "", ErrCodeExpired
	}
	if !otp.CodeEqual(code, c.CodeHash) {
		return "", ErrCodeInvalid
	}
	won, err := m.repo.Consume(ctx, c.ID)
	if err != nil {
		return "", err
	}
	if !won {
		return "", ErrCodeAlreadyUsed
	}
	return c.UserID, nil
}
