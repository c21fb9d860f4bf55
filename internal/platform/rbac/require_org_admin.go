// Package rbac resolves the caller's live membership before privileged
// operations. The token's role claim is a snapshot from login; these checks
// hit the membership store so a demotion or removal takes effect immediately.
package rbac

import (
	"context"
	"errors"

	"taskplane/internal/membership/domain"
	"taskplane/internal/server/middleware"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrNotMember       = errors.New("not a member of this organization")
	ErrAdminRequired   = errors.New("organization admin required")
)

// OrgMembershipGetter returns a user's membership in an org, nil when absent.
type OrgMembershipGetter interface {
	GetByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
}

// RequireOrgAdmin ensures the caller is authenticated and currently holds the
// admin role in their token's org. Returns (orgID, userID, nil) on success.
func RequireOrgAdmin(ctx context.Context, getter OrgMembershipGetter) (orgID, userID string, err error) {
	m, orgID, userID, err := resolveMembership(ctx, getter)
	if err != nil {
		return "", "", err
	}
	if m.Role != domain.RoleAdmin {
		return "", "", ErrAdminRequired
	}
	return orgID, userID, nil
}

func resolveMembership(ctx context.Context, getter OrgMembershipGetter) (*domain.Membership, string, string, error) {
	claims, ok := middleware.GetClaims(ctx)
	if !ok || claims.OrgID == "" || claims.UserID == "" {
		return nil, "", "", ErrUnauthenticated
	}
	m, err := getter.GetByUserAndOrg(ctx, claims.UserID, claims.OrgID)
	if err != nil {
		return nil, "", "", err
	}
	if m == nil {
		return nil, "", "", ErrNotMember
	}
	return m, claims.OrgID, claims.UserID, nil
}
