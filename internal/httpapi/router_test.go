package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelsuite/internal/audit"
	"hotelsuite/internal/auth"
	"hotelsuite/internal/availability"
	"hotelsuite/internal/catalog"
	"hotelsuite/internal/metrics"
	"hotelsuite/internal/reservation"
	"hotelsuite/pkg/config"
	"hotelsuite/pkg/hotelclient"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	cfg := config.Config{MetricsEnabled: true}
	cfg.Auth.SessionCookieName = "hs_session"
	cfg.ConsoleAllowedOrigins = []string{"http://console.test"}
	cfg.Booking.MaxStayNights = 30
	cfg.Booking.MaxAvailabilityDays = 366

	cat := catalog.NewMemory()
	require.NoError(t, catalog.Seed(ctx, cat, catalog.DemoSeed()))
	store := reservation.NewMemoryStore(cat)
	avail := &availability.Service{Catalog: cat, Holds: store, MaxDays: cfg.Booking.MaxAvailabilityDays}
	m := metrics.New()

	revoker := auth.NewMemoryRevoker()
	authSvc := &auth.Service{
		Users:       auth.NewMemoryUsers(),
		Tokens:      auth.Tokens{Secret: []byte("test_secret")},
		Revoker:     revoker,
		Audit:       audit.LogRecorder{},
		CustomerTTL: time.Hour,
		AdminTTL:    time.Hour,
	}
	require.NoError(t, authSvc.BootstrapAdmin(ctx, "frontdesk@harbour.test", "correct-horse"))

	srv := httptest.NewServer(NewRouter(Dependencies{
		Cfg:          cfg,
		Catalog:      cat,
		Availability: avail,
		Reservations: &reservation.Service{
			Store:         store,
			Rates:         catalog.Resolver{Store: cat},
			Availability:  avail,
			Metrics:       m,
			MaxStayNights: cfg.Booking.MaxStayNights,
		},
		Auth:    authSvc,
		Revoker: revoker,
		Metrics: m,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBookingLookupAndCheckIn(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	checkIn := time.Now().UTC().AddDate(0, 0, 30)

	guest := hotelclient.New(srv.URL, hotelclient.NewMemoryTokenStore())
	session := hotelclient.NewBookingSession(guest, catalog.DemoPropertyID)
	session.SelectRoomType(catalog.DemoSuiteID)
	session.SetDates(checkIn, checkIn.AddDate(0, 0, 2))
	session.Adults = 2
	session.Guest = hotelclient.Guest{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}

	plans, err := session.RatePlans(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, plans)
	require.NoError(t, session.SelectRatePlan(catalog.DemoSuiteBBPlanID))

	conf, err := session.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", conf.Status)
	assert.False(t, conf.Replayed)

	again, err := session.Submit(ctx)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, conf.Code, again.Code)

	avail, err := guest.Availability(ctx, catalog.DemoPropertyID, catalog.DemoSuiteID, checkIn, checkIn.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, avail.RoomTypes, 1)
	assert.Equal(t, hotelclient.BandFull, avail.RoomTypes[0].Band())

	found, err := guest.Lookup(ctx, conf.Code, "ADA@example.com")
	require.NoError(t, err)
	assert.True(t, found.Cancellable)
	assert.Equal(t, "840.00", found.TotalAmount)

	_, err = guest.Lookup(ctx, conf.Code, "someone@example.com")
	assert.Equal(t, hotelclient.KindNotFound, hotelclient.KindOf(err))

	admin, err := hotelclient.NewAdmin(srv.URL)
	require.NoError(t, err)
	_, err = admin.Reservation(ctx, conf.ID)
	assert.Equal(t, hotelclient.KindUnauthorized, hotelclient.KindOf(err))

	user, err := admin.Login(ctx, "frontdesk@harbour.test", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Role)

	items, total, err := admin.Reservations(ctx, hotelclient.ListOptions{Query: conf.Code})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.True(t, items[0].Allows(hotelclient.ActionCheckIn))

	res, err := admin.CheckIn(ctx, conf.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "CHECKED_IN", res.Status)
	assert.True(t, res.Allows(hotelclient.ActionCheckOut))
	assert.False(t, res.Allows(hotelclient.ActionCheckIn))
	require.Len(t, res.Rooms, 1)
	assert.NotNil(t, res.Rooms[0].RoomID)

	events, _, err := admin.Notifications(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.NotEmpty(t, events)

	require.NoError(t, admin.Logout(ctx))
	_, err = admin.Me(ctx)
	assert.Equal(t, hotelclient.KindUnauthorized, hotelclient.KindOf(err))
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `hotel_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestPreflight(t *testing.T) {
	srv := newServer(t)
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/public/reservations", nil)
	req.Header.Set("Origin", "http://evil.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestConsolePreflightAllowsCredentials(t *testing.T) {
	srv := newServer(t)
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/reservations/abc/checkin", nil)
	req.Header.Set("Origin", "http://console.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://console.test", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PUT")
}
