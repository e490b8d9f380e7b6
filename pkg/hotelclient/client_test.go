package hotelclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors_DecodedFromEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"kind":"CONFLICT","code":"INVALID_STATE_TRANSITION","message":"cannot cancel a CHECKED_OUT reservation"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Cancel(context.Background(), "K7M2QX9P", "ada@example.com")
	require.Error(t, err)
	e, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindConflict, e.Kind)
	assert.Equal(t, "INVALID_STATE_TRANSITION", e.Code)
	assert.Equal(t, http.StatusConflict, e.Status)
}

func TestErrors_NonEnvelopeFallsBackToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream timed out", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Lookup(context.Background(), "K7M2QX9P", "ada@example.com")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestErrors_LongPlainBodyCutOnRuneBoundary(t *testing.T) {
	body := "x" + strings.Repeat("é", 150) // 301 bytes, byte 200 falls inside a rune
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Lookup(context.Background(), "K7M2QX9P", "ada@example.com")
	e, ok := err.(*Error)
	require.True(t, ok)
	assert.True(t, utf8.ValidString(e.Message))
	assert.Len(t, e.Message, 199)
	assert.True(t, strings.HasPrefix(body, e.Message))

	assert.Equal(t, "short", truncate("short", 200))
	assert.Equal(t, "日本", truncate("日本語", 8))
}

func TestErrors_Network(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))

	_, err := New(srv.URL, nil).RoomTypes(context.Background(), "prop-1")
	assert.Equal(t, KindNetwork, KindOf(err), "undecodable body")

	srv.Close()
	_, err = New(srv.URL, nil).RoomTypes(context.Background(), "prop-1")
	assert.Equal(t, KindNetwork, KindOf(err), "closed server")
}

func TestLogin_StoresBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/public/auth/login":
			_, _ = w.Write([]byte(`{"token":"tok-1","expiresAt":"2099-01-01T00:00:00Z"}`))
		case "/public/reservations/me":
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"items":[{"code":"K7M2QX9P","status":"CONFIRMED","cancellable":true}]}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL, NewMemoryTokenStore())
	_, err := c.Login(context.Background(), "ada@example.com", "s3cret-pass")
	require.NoError(t, err)

	items, err := c.MyReservations(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Cancellable)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestMemoryTokenStore_Expires(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &MemoryTokenStore{now: func() time.Time { return now }}
	s.Set("tok", now.Add(time.Minute))
	assert.Equal(t, "tok", s.Get())

	now = now.Add(2 * time.Minute)
	assert.Empty(t, s.Get())
}

func TestBand(t *testing.T) {
	a := RoomTypeAvailability{TotalRooms: 3, Dates: []DateCount{
		{Date: "2026-03-01", Reserved: 0, Available: 3},
		{Date: "2026-03-02", Reserved: 1, Available: 2},
	}}
	assert.Equal(t, BandOpen, a.Dates[0].Band(a.TotalRooms))
	assert.Equal(t, BandPartial, a.Band())

	a.Dates = append(a.Dates, DateCount{Date: "2026-03-03", Reserved: 3, Available: 0})
	assert.Equal(t, BandFull, a.Band())

	assert.Equal(t, BandFull, RoomTypeAvailability{TotalRooms: 0}.Band())
	assert.Equal(t, BandOpen, RoomTypeAvailability{TotalRooms: 2}.Band())
}
