package middleware

import (
	"net/http"
	"strings"

	"taskplane/internal/audit"
)

// Audit records one audit entry per authenticated request after the handler
// runs. Best-effort by contract of AuditLogger; it never fails the request.
// skipPaths holds path prefixes to not audit (health, websocket).
func Audit(logger audit.AuditLogger, skipPaths ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			for _, p := range skipPaths {
				if strings.HasPrefix(r.URL.Path, p) {
					return
				}
			}
			claims, ok := GetClaims(r.Context())
			if !ok {
				return
			}
			action := strings.ToLower(r.Method)
			logger.LogEvent(r.Context(), claims.OrgID, claims.UserID, action, r.URL.Path, "")
		})
	}
}
