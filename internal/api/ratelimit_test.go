package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelsuite/pkg/config"
)

type limiterFixture struct {
	limiter *RateLimiter
	redis   *miniredis.Miniredis
	handler http.Handler
	now     time.Time
}

func newLimiterFixture(t *testing.T, trusted ...string) *limiterFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &limiterFixture{redis: mr, now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	f.limiter = NewRateLimiter(config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: 10 * time.Second,
		TTL:            time.Minute,
		Prefix:         "rl",
		TrustedProxies: trusted,
	}, rdb)
	f.limiter.now = func() time.Time { return f.now }
	f.handler = f.limiter.Limit("booking")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	return f
}

func (f *limiterFixture) do(remoteAddr, xff string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/public/reservations", nil)
	req.RemoteAddr = remoteAddr
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_BucketEmptiesAndRefills(t *testing.T) {
	f := newLimiterFixture(t)
	const guest = "203.0.113.7:51000"

	rec := f.do(guest, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = f.do(guest, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = f.do(guest, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, rec.Body.String(), `"code":"RATE_LIMITED"`)

	f.now = f.now.Add(4 * time.Second)
	rec = f.do(guest, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "6", rec.Header().Get("Retry-After"))

	f.now = f.now.Add(6 * time.Second)
	rec = f.do(guest, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.True(t, f.redis.Exists("rl:booking:203.0.113.7"))
	assert.Equal(t, time.Minute, f.redis.TTL("rl:booking:203.0.113.7"))
}

func TestRateLimiter_BucketsArePerClient(t *testing.T) {
	f := newLimiterFixture(t)
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, f.do("203.0.113.7:1", "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, f.do("203.0.113.7:2", "").Code)
	assert.Equal(t, http.StatusOK, f.do("198.51.100.20:1", "").Code)
}

func TestRateLimiter_ForwardedForIgnoredFromUntrustedPeer(t *testing.T) {
	f := newLimiterFixture(t)
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, f.do("203.0.113.7:1", "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, f.do("203.0.113.7:1", "192.0.2.55").Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do("203.0.113.7:1", "192.0.2.56, 192.0.2.57").Code)
}

func TestRateLimiter_ForwardedForFromTrustedProxy(t *testing.T) {
	f := newLimiterFixture(t, "10.0.0.0/8", "192.168.1.1")

	cases := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"untrusted peer", "203.0.113.7:1", "198.51.100.1", "203.0.113.7"},
		{"trusted peer", "10.1.2.3:1", "198.51.100.1", "198.51.100.1"},
		{"skips trusted hops", "10.1.2.3:1", "198.51.100.1, 192.168.1.1, 10.0.0.9", "198.51.100.1"},
		{"right-most untrusted wins", "10.1.2.3:1", "192.0.2.99, 198.51.100.1", "198.51.100.1"},
		{"only proxies", "10.1.2.3:1", "10.0.0.9", "10.1.2.3"},
		{"no header", "192.168.1.1:1", "", "192.168.1.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			assert.Equal(t, tc.want, f.limiter.clientIP(req))
		})
	}
}

func TestRateLimiter_FailsOpenWhenRedisIsDown(t *testing.T) {
	f := newLimiterFixture(t)
	f.redis.Close()

	for i := 0; i < 5; i++ {
		rec := f.do("203.0.113.7:1", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimiter_DisabledOrWithoutRedisPassesThrough(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	for _, l := range []*RateLimiter{
		nil,
		NewRateLimiter(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil),
		NewRateLimiter(config.RateLimitConfig{Enabled: false, Capacity: 1}, redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})),
	} {
		h := l.Limit("auth")(ok)
		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	}
}
