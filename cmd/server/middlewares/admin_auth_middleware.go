package middlewares

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// AdminAuthMiddleware gates the Galactic War admin surface (scenario
// rotation and the scenario read endpoint) behind HTTP Basic auth checked against a single bcrypt hash
// from configuration. There is exactly one admin credential, not a user
// table, matching the scope of what the lobby's admin surface needs.
type AdminAuthMiddleware struct {
	passwordHash []byte
}

func NewAdminAuthMiddleware(passwordHash string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{passwordHash: []byte(passwordHash)}
}

func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.passwordHash) == 0 {
			slog.ErrorContext(r.Context(), "admin auth denied: no admin password hash configured")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(user), []byte("admin")) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="galactic-war-admin"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if err := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(pass)); err != nil {
			slog.WarnContext(r.Context(), "admin auth failed", "path", r.URL.Path)
			w.Header().Set("WWW-Authenticate", `Basic realm="galactic-war-admin"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
