package middleware

import (
	"net/http"
	"strings"

	"github.com/yieldplay/yieldplay/internal/auth"
)

// Capability returns middleware that verifies an admin secret presented as a
// Bearer token in the Authorization header or in the X-Admin-Secret header,
// and attaches the resulting capability to the request context. Requests
// without a valid secret proceed with a non-admin capability; privileged
// operations reject those downstream.
func Capability(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cap := verifier.Verify(extractSecret(r))
			next.ServeHTTP(w, r.WithContext(auth.WithCapability(r.Context(), cap)))
		})
	}
}

// RequireAdmin returns middleware that rejects requests whose context does
// not carry an admin capability. Mount it under Capability.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.CapabilityFrom(r.Context()).Admin {
				writeForbidden(w, "admin credentials required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractSecret looks for a secret in the Authorization header (Bearer
// scheme) or in the X-Admin-Secret header.
func extractSecret(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if secret := r.Header.Get("X-Admin-Secret"); secret != "" {
		return strings.TrimSpace(secret)
	}

	return ""
}

// writeForbidden sends a 403 response with a JSON error body.
func writeForbidden(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
