package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskplane/internal/otp"
	"taskplane/internal/otp/domain"
)

type memChallengeRepo struct {
	mu         sync.Mutex
	challenges map[string]*domain.Challenge
}

func newMemChallengeRepo() *memChallengeRepo {
	return &memChallengeRepo{challenges: make(map[string]*domain.Challenge)}
}

func (r *memChallengeRepo) Create(_ context.Context, c *domain.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.challenges[c.ID] = &cp
	return nil
}

func (r *memChallengeRepo) GetByID(_ context.Context, id string) (*domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *memChallengeRepo) GetLatestActiveByUser(_ context.Context, userID string) (*domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Challenge
	for _, c := range r.challenges {
		if c.UserID != userID || c.ConsumedAt != nil {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *memChallengeRepo) Consume(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok || c.ConsumedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	c.ConsumedAt = &now
	return true, nil
}

type captureNotifier struct {
	mu    sync.Mutex
	email string
	code  string
	err   error
}

func (n *captureNotifier) SendCode(_ context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.email = email
	n.code = code
	return n.err
}

func TestManager_IssueAndVerify(t *testing.T) {
	repo := newMemChallengeRepo()
	notifier := &captureNotifier{}
	m := NewManager(repo, notifier, 10*time.Minute)

	id, err := m.Issue(context.Background(), "user-1", "user@acme.test")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if notifier.email != "user@acme.test" || len(notifier.code) != 6 {
		t.Fatalf("notifier got email=%q code=%q", notifier.email, notifier.code)
	}

	c, _ := repo.GetByID(context.Background(), id)
	if c == nil {
		t.Fatal("challenge not persisted")
	}
	if c.CodeHash == notifier.code {
		t.Error("plaintext code stored instead of hash")
	}
	if c.CodeHash != otp.HashCode(notifier.code) {
		t.Error("stored hash does not match delivered code")
	}

	userID, err := m.Verify(context.Background(), id, notifier.code)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want user-1", userID)
	}
}

func TestManager_Verify_WrongCode(t *testing.T) {
	repo := newMemChallengeRepo()
	m := NewManager(repo, &captureNotifier{}, 10*time.Minute)

	id, _ := m.Issue(context.Background(), "user-1", "user@acme.test")
	if _, err := m.Verify(context.Background(), id, "000000"); !errors.Is(err, ErrCodeInvalid) {
		t.Errorf("err = %v, want ErrCodeInvalid", err)
	}
	// Wrong code must not consume the challenge.
	c, _ := repo.GetByID(context.Background(), id)
	if c.ConsumedAt != nil {
		t.Error("wrong code consumed the challenge")
	}
}

func TestManager_Verify_UnknownChallenge(t *testing.T) {
	m := NewManager(newMemChallengeRepo(), &captureNotifier{}, 10*time.Minute)
	if _, err := m.Verify(context.Background(), "no-such-id", "123456"); !errors.Is(err, ErrCodeInvalid) {
		t.Errorf("err = %v, want ErrCodeInvalid", err)
	}
}

func TestManager_Verify_SecondUseRejected(t *testing.T) {
	repo := newMemChallengeRepo()
	notifier := &captureNotifier{}
	m := NewManager(repo, notifier, 10*time.Minute)

	id, _ := m.Issue(context.Background(), "user-1", "user@acme.test")
	if _, err := m.Verify(context.Background(), id, notifier.code); err != nil {
		t.Fatalf("first Verify: %v", err)
	}
	if _, err := m.Verify(context.Background(), id, notifier.code); !errors.Is(err, ErrCodeAlreadyUsed) {
		t.Errorf("second Verify err = %v, want ErrCodeAlreadyUsed", err)
	}
}

func TestManager_Verify_ExpiryBoundary(t *testing.T) {
	repo := newMemChallengeRepo()
	notifier := &captureNotifier{}
	m := NewManager(repo, notifier, 10*time.Minute)

	issuedAt := time.Now().UTC()
	m.now = func() time.Time { return issuedAt }
	id, _ := m.Issue(context.Background(), "user-1", "user@acme.test")

	// Just inside the window.
	m.now = func() time.Time { return issuedAt.Add(10*time.Minute - time.Second) }
	if _, err := m.Verify(context.Background(), id, notifier.code); err != nil {
		t.Fatalf("Verify inside window: %v", err)
	}

	// Just past the window, on a fresh challenge.
	m.now = func() time.Time { return issuedAt }
	id2, _ := m.Issue(context.Background(), "user-1", "user@acme.test")
	m.now = func() time.Time { return issuedAt.Add(10*time.Minute + time.Second) }
	if _, err := m.Verify(context.Background(), id2, notifier.code); !errors.Is(err, ErrCodeExpired) {
		t.Errorf("Verify past window err = %v, want ErrCodeExpired", err)
	}
}

func TestManager_Verify_ConcurrentSingleWinner(t *testing.T) {
	repo := newMemChallengeRepo()
	notifier := &captureNotifier{}
	m := NewManager(repo, notifier, 10*time.Minute)

	id, _ := m.Issue(context.Background(), "user-1", "user@acme.test")
	code := notifier.code

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Verify(context.Background(), id, code)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrCodeAlreadyUsed):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}
}

func TestManager_VerifyForUser_LatestChallenge(t *testing.T) {
	repo := newMemChallengeRepo()
	notifier := &captureNotifier{}
	m := NewManager(repo, notifier, 10*time.Minute)

	base := time.Now().UTC()
	m.now = func() time.Time { return base }
	m.Issue(context.Background(), "user-1", "user@acme.test")

	m.now = func() time.Time { return base.Add(time.Minute) }
	m.Issue(context.Background(), "user-1", "user@acme.test")
	latestCode := notifier.code

	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	userID, err := m.VerifyForUser(context.Background(), "user-1", latestCode)
	if err != nil {
		t.Fatalf("VerifyForUser: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want user-1", userID)
	}
}

func TestManager_Issue_NotifierFailureStillIssues(t *testing.T) {
	repo := newMemChallengeRepo()
	notifier := &captureNotifier{err: errors.New("relay down")}
	m := NewManager(repo, notifier, 10*time.Minute)

	id, err := m.Issue(context.Background(), "user-1", "user@acme.test")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	c, _ := repo.GetByID(context.Background(), id)
	if c == nil {
		t.Fatal("challenge not persisted despite notifier failure")
	}
}
