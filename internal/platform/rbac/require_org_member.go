package rbac

import "context"

// RequireOrgMember ensures the caller is authenticated and currently a member
// of their token's org, any role. Returns (orgID, userID, nil) on success.
func RequireOrgMember(ctx context.Context, getter OrgMembershipGetter) (orgID, userID string, err error) {
	_, orgID, userID, err = resolveMembership(ctx, getter)
	if err != nil {
		return "", "", err
	}
	return orgID, userID, nil
}
