package hotelclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves rate plans and records creation calls.
type fakeAPI struct {
	mu          sync.Mutex
	creates     int
	keys        []string
	bodies      []CreateReservation
	createReply func(n int) (int, string)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/public/rate-plans":
		if r.URL.Query().Get("roomTypeId") == "rt-suite" {
			_, _ = w.Write([]byte(`{"items":[{"id":"plan-bb","code":"STE-BB","nightlyRate":"420.00","totalPrice":"840.00","nights":2,"currency":"USD"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"id":"plan-flex","code":"FLEX"},{"id":"plan-saver","code":"SAVER"}]}`))
	case "/public/reservations":
		f.mu.Lock()
		f.creates++
		n := f.creates
		f.keys = append(f.keys, r.Header.Get("Idempotency-Key"))
		var body CreateReservation
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.bodies = append(f.bodies, body)
		reply := f.createReply
		f.mu.Unlock()

		status, out := http.StatusCreated, `{"id":"res-1","code":"K7M2QX9P","status":"CONFIRMED","checkInDate":"2026-03-01","checkOutDate":"2026-03-03"}`
		if reply != nil {
			status, out = reply(n)
		}
		if status == http.StatusOK {
			w.Header().Set("Idempotent-Replayed", "true")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(out))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newSession(t *testing.T, api *fakeAPI) *BookingSession {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	s := NewBookingSession(New(srv.URL, NewMemoryTokenStore()), "prop-1")
	s.Adults = 2
	s.Guest = Guest{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	return s
}

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func readySession(t *testing.T, api *fakeAPI) *BookingSession {
	t.Helper()
	s := newSession(t, api)
	s.SelectRoomType("rt-suite")
	s.SetDates(date("2026-03-01"), date("2026-03-03"))
	_, err := s.RatePlans(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.SelectRatePlan("plan-bb"))
	return s
}

func TestSubmit_ValidatesBeforeNetwork(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api)

	s.CheckOut = s.CheckIn
	_, err := s.Submit(context.Background())
	assert.Equal(t, "INVALID_DATE_RANGE", CodeOf(err))
	assert.Equal(t, KindValidation, KindOf(err))

	s = readySession(t, api)
	s.Guest.Email = ""
	_, err = s.Submit(context.Background())
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "email")

	assert.Zero(t, api.creates)
}

func TestRatePlanSelection_InvalidatedByRoomTypeAndDates(t *testing.T) {
	s := readySession(t, &fakeAPI{})
	require.NotNil(t, s.SelectedRatePlan())

	s.SetDates(date("2026-03-01"), date("2026-03-04"))
	assert.Nil(t, s.SelectedRatePlan())
	assert.Error(t, s.SelectRatePlan("plan-bb"), "stale plan must be refetched")

	_, err := s.RatePlans(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.SelectRatePlan("plan-bb"))

	s.SelectRoomType("rt-standard")
	assert.Nil(t, s.SelectedRatePlan())
	_, err = s.RatePlans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "RATE_PLAN_NOT_ELIGIBLE", CodeOf(s.SelectRatePlan("plan-bb")))
	assert.NoError(t, s.SelectRatePlan("plan-flex"))

	_, err = s.Submit(context.Background())
	assert.NoError(t, err)
}

func TestSubmit_RetryReusesIdempotencyKey(t *testing.T) {
	api := &fakeAPI{createReply: func(n int) (int, string) {
		if n == 1 {
			return http.StatusInternalServerError, `{"error":{"kind":"INTERNAL","code":"INTERNAL","message":"internal error"}}`
		}
		return http.StatusOK, `{"id":"res-1","code":"K7M2QX9P","status":"CONFIRMED","checkInDate":"2026-03-01","checkOutDate":"2026-03-03"}`
	}}
	s := readySession(t, api)

	_, err := s.Submit(context.Background())
	assert.Equal(t, KindInternal, KindOf(err))

	conf, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, conf.Replayed)
	assert.Equal(t, "K7M2QX9P", conf.Code)

	s.Guest.Phone = "+44 20 7946 0000"
	_, err = s.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, api.keys, 3)
	assert.NotEmpty(t, api.keys[0])
	assert.Equal(t, api.keys[0], api.keys[1])
	assert.NotEqual(t, api.keys[1], api.keys[2])
	assert.Equal(t, "2026-03-01", api.bodies[0].CheckInDate)
	assert.Equal(t, "plan-bb", api.bodies[0].RatePlanID)
}

func TestSubmit_UnauthorizedKeepsBookingParameters(t *testing.T) {
	api := &fakeAPI{createReply: func(int) (int, string) {
		return http.StatusUnauthorized, `{"error":{"kind":"UNAUTHORIZED","code":"UNAUTHORIZED","message":"sign in to book"}}`
	}}
	s := readySession(t, api)
	s.Rooms = 1
	s.Client.Tokens.Set("expired", time.Time{})

	_, err := s.Submit(context.Background())
	var signIn *SignInRequired
	require.True(t, errors.As(err, &signIn))
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.Empty(t, s.Client.Tokens.Get(), "rejected token is dropped")

	path, rawQuery, ok := strings.Cut(signIn.ReturnPath, "?")
	require.True(t, ok)
	assert.Equal(t, "/book", path)
	q, err := url.ParseQuery(rawQuery)
	require.NoError(t, err)
	assert.Equal(t, "rt-suite", q.Get("roomTypeId"))
	assert.Equal(t, "2026-03-01", q.Get("checkIn"))
	assert.Equal(t, "2026-03-03", q.Get("checkOut"))
	assert.Equal(t, "plan-bb", q.Get("ratePlanId"))

	restored, err := RestoreBookingSession(s.Client, q)
	require.NoError(t, err)
	assert.Equal(t, s.CheckIn, restored.CheckIn)
	assert.Equal(t, s.CheckOut, restored.CheckOut)
	assert.Equal(t, 2, restored.Adults)
	assert.Nil(t, restored.SelectedRatePlan())

	_, err = restored.RatePlans(context.Background())
	require.NoError(t, err)
	require.NotNil(t, restored.SelectedRatePlan())
	assert.Equal(t, "plan-bb", restored.SelectedRatePlan().ID)
}
