package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	authrepo "taskplane/internal/auth/repository"
	membershipdomain "taskplane/internal/membership/domain"
	orgdomain "taskplane/internal/organization/domain"
	refreshdomain "taskplane/internal/refreshtoken/domain"
	"taskplane/internal/security"
	userdomain "taskplane/internal/user/domain"
)

// Sentinel errors for the auth service; handler maps them to HTTP codes.
var (
	ErrValidation             = errors.New("validation failed")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrSubdomainTaken         = errors.New("subdomain already taken")
	ErrInvalidRefreshToken    = errors.New("invalid refresh token")
	ErrRefreshTokenExpired    = errors.New("refresh token expired")
	ErrTokenReuseDetected     = errors.New("refresh token reuse detected; all sessions revoked")
	ErrNotOrgMember           = errors.New("user is not a member of the organization")
)

// AuthResult holds the outcome of Register, CompleteOTP, or Refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
	OrgID        string
	Role         string
}

// CredentialVerifier checks email/password and returns the user ID.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password, source string) (string, error)
}

// ChallengeManager issues and verifies single-use login codes.
type ChallengeManager interface {
	Issue(ctx context.Context, userID, email string) (string, error)
	Verify(ctx context.Context, challengeID, code string) (string, error)
	VerifyForUser(ctx context.Context, userID, code string) (string, error)
}

// Registrar persists an organization, its first user, and the admin
// membership as one atomic unit.
type Registrar interface {
	CreateAccount(ctx context.Context, org *orgdomain.Org, u *userdomain.User, m *membershipdomain.Membership) error
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// OrgRepo is the minimal organization repository needed by the auth service.
type OrgRepo interface {
	GetBySubdomain(ctx context.Context, subdomain string) (*orgdomain.Org, error)
}

// MembershipRepo is the minimal membership repository needed by the auth service.
type MembershipRepo interface {
	GetByUserAndOrg(ctx context.Context, userID, orgID string) (*membershipdomain.Membership, error)
	ListByUser(ctx context.Context, userID string) ([]*membershipdomain.Membership, error)
}

// RefreshTokenRepo is the minimal refresh token repository needed by the auth service.
type RefreshTokenRepo interface {
	Create(ctx context.Context, t *refreshdomain.RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*refreshdomain.RefreshToken, error)
	Revoke(ctx context.Context, id string) (bool, error)
	RevokeAllByUserOrg(ctx context.Context, userID, orgID string) error
}

// AuthService implements register, two-step login, refresh rotation, and logout.
type AuthService struct {
	credentials    CredentialVerifier
	challenges     ChallengeManager
	registrar      Registrar
	userRepo       UserRepo
	orgRepo        OrgRepo
	membershipRepo MembershipRepo
	refreshRepo    RefreshTokenRepo
	hasher         *security.Hasher
	tokens         *security.TokenProvider
	refreshTTL     time.Duration
	storageTimeout time.Duration
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	credentials CredentialVerifier,
	challenges ChallengeManager,
	registrar Registrar,
	userRepo UserRepo,
	orgRepo OrgRepo,
	membershipRepo MembershipRepo,
	refreshRepo RefreshTokenRepo,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	refreshTTL, storageTimeout time.Duration,
) *AuthService {
	return &AuthService{
		credentials:    credentials,
		challenges:     challenges,
		registrar:      registrar,
		userRepo:       userRepo,
		orgRepo:        orgRepo,
		membershipRepo: membershipRepo,
		refreshRepo:    refreshRepo,
		hasher:         hasher,
		tokens:         tokens,
		refreshTTL:     refreshTTL,
		storageTimeout: storageTimeout,
	}
}

// Register creates an organization, its first user, and an admin membership,
// then returns a token pair. Bootstrap is the one flow that skips the code
// step: the user just proved ownership of the credentials they chose.
func (s *AuthService) Register(ctx context.Context, orgName, subdomain, email, password string) (*AuthResult, error) {
	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	email = strings.TrimSpace(strings.ToLower(email))
	subdomain = strings.TrimSpace(strings.ToLower(subdomain))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	org := &orgdomain.Org{
		ID:        uuid.New().String(),
		Subdomain: subdomain,
		Name:      strings.TrimSpace(orgName),
		CreatedAt: time.Now().UTC(),
	}
	if err := org.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	existingOrg, err := s.orgRepo.GetBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}
	if existingOrg != nil {
		return nil, ErrSubdomainTaken
	}
	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existingUser != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hashed,
		CreatedAt:    time.Now().UTC(),
	}
	membership := &membershipdomain.Membership{
		UserID:    user.ID,
		OrgID:     org.ID,
		Role:      membershipdomain.RoleAdmin,
		CreatedAt: time.Now().UTC(),
	}
	// One atomic insert: a concurrent register that slipped past the
	// pre-checks surfaces as a duplicate here, and a mid-way failure leaves
	// no orphan rows behind.
	if err := s.registrar.CreateAccount(ctx, org, user, membership); err != nil {
		switch {
		case errors.Is(err, authrepo.ErrDuplicateSubdomain):
			return nil, ErrSubdomainTaken
		case errors.Is(err, authrepo.ErrDuplicateEmail):
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}
	return s.issueTokenPair(ctx, user.ID, org.ID, string(membershipdomain.RoleAdmin), "")
}

// Login verifies the password and issues a login code. It never returns
// tokens; the caller must complete the code step. source keys the attempt
// limiter, typically the client IP.
func (s *AuthService) Login(ctx context.Context, email, password, source string) (string, error) {
	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	email = strings.TrimSpace(strings.ToLower(email))
	userID, err := s.credentials.Verify(ctx, email, password, source)
	if err != nil {
		return "", err
	}
	return s.challenges.Issue(ctx, userID, email)
}

// CompleteOTP verifies the login code and returns a token pair. When
// challengeID is empty the user's newest pending challenge is used, looked up
// by email. tenantOrgID, when non-empty, pins the org; the user must be a
// member. Otherwise the user's first membership decides the org.
func (s *AuthService) CompleteOTP(ctx context.Context, email, challengeID, code, tenantOrgID string) (*AuthResult, error) {
	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	var userID string
	var err error
	if challengeID != "" {
		userID, err = s.challenges.Verify(ctx, challengeID, code)
	} else {
		email = strings.TrimSpace(strings.ToLower(email))
		user, uerr := s.userRepo.GetByEmail(ctx, email)
		if uerr != nil {
			return nil, uerr
		}
		if user == nil {
			return nil, ErrNotOrgMember
		}
		userID, err = s.challenges.VerifyForUser(ctx, user.ID, code)
	}
	if err != nil {
		return nil, err
	}

	orgID, role, err := s.resolveOrg(ctx, userID, tenantOrgID)
	if err != nil {
		return nil, err
	}
	return s.issueTokenPair(ctx, userID, orgID, role, "")
}

// Refresh validates the opaque refresh token, rotates it, and returns new
// tokens. Presenting a revoked link, or losing the rotation race, counts as
// reuse and revokes every live token the user holds for the org.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	current, err := s.refreshRepo.GetByHash(ctx, security.HashRefreshToken(refreshToken))
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrInvalidRefreshToken
	}
	if current.Revoked() {
		_ = s.refreshRepo.RevokeAllByUserOrg(ctx, current.UserID, current.OrgID)
		return nil, ErrTokenReuseDetected
	}
	if current.Expired(time.Now().UTC()) {
		return nil, ErrRefreshTokenExpired
	}
	won, err := s.refreshRepo.Revoke(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		_ = s.refreshRepo.RevokeAllByUserOrg(ctx, current.UserID, current.OrgID)
		return nil, ErrTokenReuseDetected
	}
	membership, err := s.membershipRepo.GetByUserAndOrg(ctx, current.UserID, current.OrgID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		_ = s.refreshRepo.RevokeAllByUserOrg(ctx, current.UserID, current.OrgID)
		return nil, ErrNotOrgMember
	}
	return s.issueTokenPair(ctx, current.UserID, current.OrgID, string(membership.Role), current.ID)
}

// Validate verifies the access token and returns its claims.
func (s *AuthService) Validate(tokenString string) (*security.Claims, error) {
	return s.tokens.ValidateAccess(tokenString)
}

// Logout revokes every live refresh token in the presented token's user+org
// chain. Unknown or already revoked tokens are a no-op; logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	if refreshToken == "" {
		return nil
	}
	current, err := s.refreshRepo.GetByHash(ctx, security.HashRefreshToken(refreshToken))
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}
	return s.refreshRepo.RevokeAllByUserOrg(ctx, current.UserID, current.OrgID)
}

func (s *AuthService) resolveOrg(ctx context.Context, userID, tenantOrgID string) (orgID, role string, err error) {
	if tenantOrgID != "" {
		membership, err := s.membershipRepo.GetByUserAndOrg(ctx, userID, tenantOrgID)
		if err != nil {
			return "", "", err
		}
		if membership == nil {
			return "", "", ErrNotOrgMember
		}
		return tenantOrgID, string(membership.Role), nil
	}
	memberships, err := s.membershipRepo.ListByUser(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if len(memberships) == 0 {
		return "", "", ErrNotOrgMember
	}
	first := memberships[0]
	return first.OrgID, string(first.Role), nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, userID, orgID, role, rotatedFrom string) (*AuthResult, error) {
	refreshToken, err := security.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	record := &refreshdomain.RefreshToken{
		ID:          uuid.New().String(),
		UserID:      userID,
		OrgID:       orgID,
		TokenHash:   security.HashRefreshToken(refreshToken),
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.refreshTTL),
		RotatedFrom: rotatedFrom,
	}
	if err := s.refreshRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	accessToken, _, accessExp, err := s.tokens.IssueAccess(userID, orgID, role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExp,
		UserID:       userID,
		OrgID:        orgID,
		Role:         role,
	}, nil
}

func (s *AuthService) withStorageTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storageTimeout)
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	return nil
}
