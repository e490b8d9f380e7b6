package auth

import (
	"net/http"
	"strings"

	"hotelsuite/internal/api"
	"hotelsuite/internal/logger"
)

type Middleware struct {
	Tokens     Tokens
	Revoker    Revoker
	CookieName string
}

func bearer(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// CustomerAuth requires a valid storefront bearer token.
func (m Middleware) CustomerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.Tokens.Verify(bearer(r), AudienceStorefront)
		if err != nil {
			api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing bearer token")
			return
		}
		next.ServeHTTP(w, r.WithContext(api.WithCustomer(r.Context(), p)))
	})
}

// OptionalCustomer attaches the customer when a valid bearer token is present and lets
// anonymous requests through. An invalid token is rejected rather than ignored.
func (m Middleware) OptionalCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearer(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		p, err := m.Tokens.Verify(raw, AudienceStorefront)
		if err != nil {
			api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r.WithContext(api.WithCustomer(r.Context(), p)))
	})
}

// StaffSession requires a valid, unrevoked console session cookie held by a staff role.
func (m Middleware) StaffSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(m.CookieName)
		if err != nil || c.Value == "" {
			api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not signed in")
			return
		}
		p, err := m.Tokens.Verify(c.Value, AudienceConsole)
		if err != nil || !Role(p.Role).Staff() {
			api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session expired")
			return
		}
		if m.Revoker != nil {
			revoked, err := m.Revoker.IsRevoked(r.Context(), p.SessionID)
			if err != nil {
				logger.FromContext(r.Context()).Warn("session revocation check failed", "error", err)
			}
			if revoked {
				api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session ended")
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(api.WithStaff(r.Context(), p)))
	})
}
