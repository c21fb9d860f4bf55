package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"taskplane/internal/tenant"
)

// ResolveTenant resolves the request's org from the validated token claim or
// the Host subdomain and stores it in context. A tenant signal that matches
// no org is a 404; carrying no signal at all passes through, downstream
// decides whether it can proceed.
func ResolveTenant(resolver *tenant.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claimOrgID := ""
			if claims, ok := GetClaims(r.Context()); ok {
				claimOrgID = claims.OrgID
			}
			oc, err := resolver.Resolve(r.Context(), claimOrgID, r.Host)
			if err != nil {
				status := http.StatusInternalServerError
				if errors.Is(err, tenant.ErrUnknownTenant) {
					status = http.StatusNotFound
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown tenant"})
				return
			}
			if oc != nil {
				r = r.WithContext(WithTenant(r.Context(), oc))
			}
			next.ServeHTTP(w, r)
		})
	}
}
