package catalog

import (
	"net/http"
	"strconv"
	"strings"

	"hotelsuite/internal/api"
	"hotelsuite/internal/apperr"
	"hotelsuite/internal/stay"
)

type Handlers struct {
	Store    Store
	Resolver Resolver
	Search   Searcher
}

func (h Handlers) RoomTypes(w http.ResponseWriter, r *http.Request) {
	propertyID := strings.TrimSpace(r.URL.Query().Get("propertyId"))
	if propertyID == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "propertyId is required")
		return
	}
	if _, err := h.Store.GetProperty(r.Context(), propertyID); err != nil {
		api.WriteAppError(w, r, err)
		return
	}

	items, err := h.Store.ListRoomTypes(r.Context(), propertyID)
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) SearchRoomTypes(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	propertyID := strings.TrimSpace(qs.Get("propertyId"))
	if propertyID == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "propertyId is required")
		return
	}
	limit, _ := strconv.Atoi(qs.Get("limit"))
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	items, err := h.Search.SearchRoomTypes(r.Context(), propertyID, strings.TrimSpace(qs.Get("q")), limit)
	if err != nil {
		api.WriteAppError(w, r, apperr.Internal("search failed", err))
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) RatePlans(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	propertyID := strings.TrimSpace(qs.Get("propertyId"))
	roomTypeID := strings.TrimSpace(qs.Get("roomTypeId"))
	if propertyID == "" || roomTypeID == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "propertyId and roomTypeId are required")
		return
	}
	rng, err := stay.ParseRange(qs.Get("from"), qs.Get("to"))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}
	units := 1
	if v := qs.Get("rooms"); v != "" {
		if units, err = strconv.Atoi(v); err != nil || units < 1 {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "rooms must be a positive integer")
			return
		}
	}

	offers, err := h.Resolver.Eligible(r.Context(), propertyID, roomTypeID, rng, units)
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"propertyId": propertyID,
		"roomTypeId": roomTypeID,
		"from":       rng.From,
		"to":         rng.To,
		"items":      offers,
	})
}
