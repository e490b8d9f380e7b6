package reservation

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hotelsuite/internal/api"
	"hotelsuite/internal/apperr"
	"hotelsuite/internal/stay"
)

const (
	IdempotencyKeyHeader   = "Idempotency-Key"
	IdempotentReplayHeader = "Idempotent-Replayed"
)

type Handlers struct {
	Service *Service
	// RequireAccount makes public booking require a customer bearer token.
	RequireAccount bool
}

// Create serves POST /public/reservations.
func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	customer := api.CustomerFromContext(r.Context())
	if h.RequireAccount && customer == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "sign in to book")
		return
	}

	var req CreateRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	if key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader)); key != "" {
		req.IdempotencyKey = key
	}
	req.Channel = ChannelWeb
	req.Actor = "guest:" + strings.ToLower(strings.TrimSpace(req.Guest.Email))
	if customer != nil {
		req.CustomerID = customer.UserID
		req.Actor = api.Actor(r.Context())
	}

	h.create(w, r, req)
}

func (h Handlers) create(w http.ResponseWriter, r *http.Request, req CreateRequest) {
	res, created, err := h.Service.Create(r.Context(), req)
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	if !created {
		w.Header().Set(IdempotentReplayHeader, "true")
		api.WriteJSON(w, http.StatusOK, res.Created())
		return
	}
	api.WriteJSON(w, http.StatusCreated, res.Created())
}

// Mine serves GET /public/reservations/me.
func (h Handlers) Mine(w http.ResponseWriter, r *http.Request) {
	customer := api.CustomerFromContext(r.Context())
	if customer == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing customer identity")
		return
	}
	items, err := h.Service.ListForCustomer(r.Context(), customer.UserID)
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	out := make([]GuestView, 0, len(items))
	for i := range items {
		out = append(out, items[i].GuestView())
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": out})
}

// Lookup serves GET /public/reservations/{code}?email=.
func (h Handlers) Lookup(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	email := r.URL.Query().Get("email")
	if code == "" || strings.TrimSpace(email) == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "code and email are required")
		return
	}
	res, err := h.Service.Lookup(r.Context(), code, email)
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, res.GuestView())
}

// CancelByCode serves POST /public/reservations/{code}/cancel?email=.
func (h Handlers) CancelByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	customer := api.CustomerFromContext(r.Context())
	if code == "" || (email == "" && customer == nil) {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "code and email are required")
		return
	}

	customerID, actor := "", "guest:"+strings.ToLower(email)
	if customer != nil {
		customerID, actor = customer.UserID, api.Actor(r.Context())
	}
	res, err := h.Service.CancelAsGuest(r.Context(), code, email, customerID, actor)
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, res.GuestView())
}

// AdminList serves GET /api/reservations.
func (h Handlers) AdminList(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	f := ListFilter{
		PropertyID: strings.TrimSpace(qs.Get("propertyId")),
		Query:      strings.TrimSpace(qs.Get("q")),
	}
	if v := qs.Get("status"); v != "" {
		st, err := ParseStatus(strings.ToUpper(v))
		if err != nil {
			api.WriteAppError(w, r, err)
			return
		}
		f.Status = st
	}
	if qs.Get("from") != "" || qs.Get("to") != "" {
		rng, err := stay.ParseRange(qs.Get("from"), qs.Get("to"))
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
			return
		}
		f.Stay = rng
	}
	f.Limit, _ = strconv.Atoi(qs.Get("limit"))
	f.Offset, _ = strconv.Atoi(qs.Get("offset"))

	items, total, err := h.Service.List(r.Context(), f)
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	out := make([]AdminView, 0, len(items))
	for i := range items {
		out = append(out, items[i].Admin())
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": out, "total": total})
}

func (h Handlers) AdminGet(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, res.Admin())
}

func (h Handlers) AdminEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := h.Service.Events(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": evs})
}

// AdminCreate serves POST /api/reservations: a front-desk booking with the public
// creation contract.
func (h Handlers) AdminCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	if key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader)); key != "" {
		req.IdempotencyKey = key
	}
	req.Channel = ChannelFrontDesk
	req.Actor = api.Actor(r.Context())
	h.create(w, r, req)
}

type transitionRequest struct {
	RoomID string `json:"roomId,omitempty" validate:"omitempty,max=64"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// Transition returns the handler for one lifecycle action on /api/reservations/{id}.
func (h Handlers) Transition(action Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transitionRequest
		if r.ContentLength != 0 {
			if err := api.DecodeJSON(r, &req); err != nil {
				api.WriteAppError(w, r, err)
				return
			}
		}
		res, err := h.Service.Transition(r.Context(), chi.URLParam(r, "id"), action, TransitionOptions{
			RoomID: strings.TrimSpace(req.RoomID),
			Reason: strings.TrimSpace(req.Reason),
			Actor:  api.Actor(r.Context()),
			Audit:  true,
		})
		if err != nil {
			api.WriteAppError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, res.Admin())
	}
}

// AdminUpdate serves PUT /api/reservations/{id}.
func (h Handlers) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	var p DetailsPatch
	if err := api.DecodeJSON(r, &p); err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	res, err := h.Service.UpdateDetails(r.Context(), chi.URLParam(r, "id"), p, api.Actor(r.Context()))
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, res.Admin())
}

// Notifications serves GET /api/notifications?since=RFC3339. Without since it returns
// the last hour.
func (h Handlers) Notifications(w http.ResponseWriter, r *http.Request) {
	since := time.Now().Add(-time.Hour)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			api.WriteAppError(w, r, apperr.Validation("VALIDATION_FAILED", "since must be an RFC3339 timestamp"))
			return
		}
		since = t
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	evs, err := h.Service.RecentEvents(r.Context(), since, limit)
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": evs, "serverTime": time.Now().UTC()})
}
