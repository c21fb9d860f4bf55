package middleware

import (
	"context"

	"taskplane/internal/security"
	"taskplane/internal/tenant"
)

type contextKey struct{ name string }

var (
	claimsKey   = contextKey{"claims"}
	tenantKey   = contextKey{"tenant"}
	clientIPKey = contextKey{"client_ip"}
)

// WithClaims returns a context carrying the validated token claims.
// Handlers read them via GetClaims.
func WithClaims(ctx context.Context, claims *security.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims returns the claims from context and true if set; otherwise nil, false.
func GetClaims(ctx context.Context) (*security.Claims, bool) {
	v, ok := ctx.Value(claimsKey).(*security.Claims)
	return v, ok
}

// WithTenant returns a context carrying the resolved tenant.
func WithTenant(ctx context.Context, oc *tenant.OrgContext) context.Context {
	return context.WithValue(ctx, tenantKey, oc)
}

// GetTenant returns the tenant from context and true if set; otherwise nil, false.
func GetTenant(ctx context.Context) (*tenant.OrgContext, bool) {
	v, ok := ctx.Value(tenantKey).(*tenant.OrgContext)
	return v, ok
}

// WithClientIP returns a context carrying the client IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the client IP from context, or "unknown" if not set.
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
