package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskplane/internal/membership/domain"
	"taskplane/internal/security"
	"taskplane/internal/server/middleware"
)

type mockGetter struct {
	m   *domain.Membership
	err error
}

func (g *mockGetter) GetByUserAndOrg(context.Context, string, string) (*domain.Membership, error) {
	return g.m, g.err
}

func authedCtx(userID, orgID string) context.Context {
	return middleware.WithClaims(context.Background(), &security.Claims{
		UserID: userID, OrgID: orgID, Role: "member",
	})
}

func membership(role domain.Role) *domain.Membership {
	return &domain.Membership{UserID: "user-1", OrgID: "org-1", Role: role, CreatedAt: time.Now()}
}

func TestRequireOrgAdmin_Admin(t *testing.T) {
	orgID, userID, err := RequireOrgAdmin(authedCtx("user-1", "org-1"), &mockGetter{m: membership(domain.RoleAdmin)})
	if err != nil {
		t.Fatalf("RequireOrgAdmin: %v", err)
	}
	if orgID != "org-1" || userID != "user-1" {
		t.Errorf("got org %q user %q", orgID, userID)
	}
}

func TestRequireOrgAdmin_MemberDenied(t *testing.T) {
	_, _, err := RequireOrgAdmin(authedCtx("user-1", "org-1"), &mockGetter{m: membership(domain.RoleMember)})
	if !errors.Is(err, ErrAdminRequired) {
		t.Errorf("err = %v, want ErrAdminRequired", err)
	}
}

func TestRequireOrgAdmin_NotMember(t *testing.T) {
	_, _, err := RequireOrgAdmin(authedCtx("user-1", "org-1"), &mockGetter{})
	if !errors.Is(err, ErrNotMember) {
		t.Errorf("err = %v, want ErrNotMember", err)
	}
}

func TestRequireOrgAdmin_NoClaims(t *testing.T) {
	_, _, err := RequireOrgAdmin(context.Background(), &mockGetter{m: membership(domain.RoleAdmin)})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestRequireOrgMember_AnyRole(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleMember} {
		if _, _, err := RequireOrgMember(authedCtx("user-1", "org-1"), &mockGetter{m: membership(role)}); err != nil {
			t.Errorf("role %s: %v", role, err)
		}
	}
}

func TestRequireOrgMember_GetterError(t *testing.T) {
	wantErr := errors.New("db down")
	_, _, err := RequireOrgMember(authedCtx("user-1", "org-1"), &mockGetter{err: wantErr})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want repo error passthrough", err)
	}
}
