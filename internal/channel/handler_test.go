package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelsuite/internal/catalog"
	"hotelsuite/internal/reservation"
)

const partnerSecret = "partner-secret"

func newRouter(t *testing.T) (http.Handler, *reservation.Service) {
	t.Helper()
	cat := catalog.NewMemory()
	require.NoError(t, catalog.Seed(context.Background(), cat, catalog.DemoSeed()))
	svc := &reservation.Service{
		Store:         reservation.NewMemoryStore(cat),
		Rates:         catalog.Resolver{Store: cat},
		MaxStayNights: 30,
		Now:           func() time.Time { return time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC) },
	}
	r := chi.NewRouter()
	r.Method(http.MethodPost, "/webhooks/channels/{partner}", Handler{
		Reservations: svc,
		Secrets:      map[string]string{"globetrip": partnerSecret},
	})
	return r, svc
}

func post(h http.Handler, partner, topic, eventID, secret, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/channels/"+partner, strings.NewReader(body))
	req.Header.Set(TopicHeader, topic)
	if eventID != "" {
		req.Header.Set(EventIDHeader, eventID)
	}
	req.Header.Set(SignatureHeader, Sign([]byte(body), secret))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func suiteBooking(tentative bool) string {
	b, _ := json.Marshal(map[string]any{
		"propertyId":   catalog.DemoPropertyID,
		"roomTypeId":   catalog.DemoSuiteID,
		"ratePlanId":   catalog.DemoSuiteBBPlanID,
		"checkInDate":  "2026-03-01",
		"checkOutDate": "2026-03-03",
		"adults":       2,
		"guest":        map[string]any{"firstName": "Grace", "lastName": "Hopper", "email": "grace@example.com"},
		"tentative":    tentative,
	})
	return string(b)
}

func TestCreate_ReplayAndTentative(t *testing.T) {
	h, svc := newRouter(t)

	w := post(h, "globetrip", "reservation.create", "evt-1", partnerSecret, suiteBooking(false))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created reservation.Created
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, reservation.StatusConfirmed, created.Status)

	w = post(h, "globetrip", "reservation.create", "evt-1", partnerSecret, suiteBooking(false))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get(reservation.IdempotentReplayHeader))

	w = post(h, "globetrip", "reservation.create", "evt-2", partnerSecret, suiteBooking(false))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "SOLD_OUT")

	w = post(h, "globetrip", "reservation.create", "evt-3", partnerSecret, suiteBooking(true))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var pending reservation.Created
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	assert.Equal(t, reservation.StatusPending, pending.Status)

	res, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "GLOBETRIP", res.Channel)
}

func TestCancel_AlreadyCancelledAccepted(t *testing.T) {
	h, _ := newRouter(t)

	w := post(h, "globetrip", "reservation.create", "evt-1", partnerSecret, suiteBooking(false))
	require.Equal(t, http.StatusCreated, w.Code)
	var created reservation.Created
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	body := `{"code":"` + created.Code + `","reason":"guest request"}`
	for i := 0; i < 2; i++ {
		w = post(h, "globetrip", "reservation.cancel", "", partnerSecret, body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"status":"CANCELLED"`)
	}

	w = post(h, "globetrip", "reservation.cancel", "", partnerSecret, `{"code":"NOPE2345"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRejectsUnknownPartnerAndBadSignature(t *testing.T) {
	h, _ := newRouter(t)

	w := post(h, "nobody", "reservation.create", "evt-1", partnerSecret, suiteBooking(false))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(h, "globetrip", "reservation.create", "evt-1", "wrong", suiteBooking(false))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUnknownTopicAccepted(t *testing.T) {
	h, _ := newRouter(t)
	w := post(h, "globetrip", "rates.updated", "evt-9", partnerSecret, `{}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
}
