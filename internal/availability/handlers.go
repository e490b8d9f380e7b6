package availability

import (
	"net/http"
	"strings"

	"hotelsuite/internal/api"
	"hotelsuite/internal/stay"
)

type Handlers struct {
	Service *Service
}

// Get serves GET ?propertyId=&from=&to=[&roomTypeId=]. A zero-night range returns every
// room type with an empty dates list.
func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	propertyID := strings.TrimSpace(qs.Get("propertyId"))
	if propertyID == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "propertyId is required")
		return
	}
	rng, err := stay.ParseRange(qs.Get("from"), qs.Get("to"))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	m, err := h.Service.Query(r.Context(), Query{
		PropertyID: propertyID,
		Range:      rng,
		RoomTypeID: strings.TrimSpace(qs.Get("roomTypeId")),
	})
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, m)
}
