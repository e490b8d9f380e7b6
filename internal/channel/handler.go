// Package channel receives reservations pushed by distribution partners (OTAs, GDS
// connectors) over signed webhooks.
package channel

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hotelsuite/internal/api"
	"hotelsuite/internal/apperr"
	"hotelsuite/internal/logger"
	"hotelsuite/internal/reservation"
)

const (
	SignatureHeader = "X-Channel-Signature"
	TopicHeader     = "X-Channel-Topic"
	EventIDHeader   = "X-Channel-Event-Id"

	maxBodyBytes = 1 << 20
)

type Handler struct {
	Reservations *reservation.Service
	// Secrets maps a lowercase partner code to its signing secret.
	Secrets map[string]string
}

type createPayload struct {
	reservation.CreateRequest
	// Tentative bookings are created PENDING and hold no rooms until staff confirm them.
	Tentative bool `json:"tentative"`
}

type cancelPayload struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	partner := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "partner")))
	secret, ok := h.Secrets[partner]
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unknown channel partner")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid body")
		return
	}
	if !Verify(body, strings.TrimSpace(r.Header.Get(SignatureHeader)), secret) {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook signature")
		return
	}

	topic := NormalizeTopic(r.Header.Get(TopicHeader))
	eventID := strings.TrimSpace(r.Header.Get(EventIDHeader))
	if eventID == "" {
		// Retries of the same payload still collapse onto one reservation.
		sum := sha256.Sum256(body)
		eventID = hex.EncodeToString(sum[:])
	}
	log := logger.FromContext(r.Context()).With("partner", partner, "topic", topic, "event_id", eventID)

	switch topic {
	case TopicReservationCreate:
		h.create(w, r, partner, eventID, body)
	case TopicReservationCancel:
		h.cancel(w, r, partner, body)
	default:
		log.Info("channel webhook ignored")
		api.WriteJSON(w, http.StatusAccepted, map[string]any{"status": "ignored", "topic": topic})
	}
}

func (h Handler) create(w http.ResponseWriter, r *http.Request, partner, eventID string, body []byte) {
	var p createPayload
	if err := json.Unmarshal(body, &p); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid reservation payload")
		return
	}
	req := p.CreateRequest
	req.Channel = strings.ToUpper(partner)
	req.Tentative = p.Tentative
	req.IdempotencyKey = partner + ":" + eventID
	req.Actor = "channel:" + partner

	res, created, err := h.Reservations.Create(r.Context(), req)
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	if !created {
		w.Header().Set(reservation.IdempotentReplayHeader, "true")
		api.WriteJSON(w, http.StatusOK, res.Created())
		return
	}
	api.WriteJSON(w, http.StatusCreated, res.Created())
}

func (h Handler) cancel(w http.ResponseWriter, r *http.Request, partner string, body []byte) {
	var p cancelPayload
	if err := json.Unmarshal(body, &p); err != nil || strings.TrimSpace(p.Code) == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "code is required")
		return
	}

	res, err := h.Reservations.GetByCode(r.Context(), p.Code)
	if err == nil && res.Channel != strings.ToUpper(partner) {
		err = apperr.NotFound("reservation not found")
	}
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	if res.Status == reservation.StatusCancelled {
		api.WriteJSON(w, http.StatusOK, res.Created())
		return
	}

	res, err = h.Reservations.Transition(r.Context(), res.ID, reservation.ActionCancel, reservation.TransitionOptions{
		Reason: p.Reason,
		Actor:  "channel:" + partner,
	})
	if err != nil {
		api.WriteAppError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, res.Created())
}
