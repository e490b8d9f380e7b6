package auth

import (
	"net/http"
	"time"

	"hotelsuite/internal/api"
)

type Handlers struct {
	Service      *Service
	CookieName   string
	CookieSecure bool
}

// Register serves POST /public/auth/register.
func (h Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	sess, err := h.Service.Register(r.Context(), req)
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, sess)
}

// Login serves POST /public/auth/login.
func (h Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	sess, err := h.Service.Login(r.Context(), req)
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sess)
}

// StaffLogin serves POST /api/auth/login and sets the HttpOnly session cookie.
func (h Handlers) StaffLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	sess, err := h.Service.StaffLogin(r.Context(), req)
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.CookieSecure,
	})
	api.WriteJSON(w, http.StatusOK, map[string]any{"user": sess.User, "expiresAt": sess.ExpiresAt})
}

// StaffLogout serves POST /api/auth/logout.
func (h Handlers) StaffLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.StaffLogout(r.Context(), api.StaffFromContext(r.Context())); err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.CookieSecure,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me serves GET /api/auth/me.
func (h Handlers) Me(w http.ResponseWriter, r *http.Request) {
	p := api.StaffFromContext(r.Context())
	u, err := h.Service.Me(r.Context(), p)
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"user": u, "expiresAt": p.ExpiresAt})
}
