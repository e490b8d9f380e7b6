package api

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"hotelsuite/internal/logger"
	"hotelsuite/pkg/config"
)

// tokenBucket refills refill_tokens every interval_ms up to capacity and takes one token per call.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
  local elapsed = math.max(0, now_ms - last_refill)
  local intervals = math.floor(elapsed / interval_ms)
  if intervals > 0 then
    tokens = math.min(capacity, tokens + (intervals * refill_tokens))
    last_refill = last_refill + (intervals * interval_ms)
  end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

type RateLimiter struct {
	rdb     *redis.Client
	cfg     config.RateLimitConfig
	proxies []netip.Prefix
	now     func() time.Time
}

// NewRateLimiter returns a limiter that is a no-op when rdb is nil or limiting is disabled.
// Unparseable TrustedProxies entries are logged and ignored.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) *RateLimiter {
	l := &RateLimiter{rdb: rdb, cfg: cfg, now: time.Now}
	for _, entry := range cfg.TrustedProxies {
		p, err := parseProxy(entry)
		if err != nil {
			logger.Get().Warn("ignoring trusted proxy entry", "entry", entry, "error", err)
			continue
		}
		l.proxies = append(l.proxies, p)
	}
	return l
}

func parseProxy(entry string) (netip.Prefix, error) {
	entry = strings.TrimSpace(entry)
	if strings.Contains(entry, "/") {
		p, err := netip.ParsePrefix(entry)
		return p.Masked(), err
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

type decision struct {
	allowed    bool
	remaining  int64
	retryAfter time.Duration
}

func (l *RateLimiter) take(ctx context.Context, key string) (decision, error) {
	args := []any{
		l.now().UnixMilli(),
		l.cfg.Capacity,
		l.cfg.RefillTokens,
		l.cfg.RefillInterval.Milliseconds(),
		int64(l.cfg.TTL / time.Second),
	}
	vals, err := tokenBucket.Run(ctx, l.rdb, []string{key}, args...).Int64Slice()
	if err != nil {
		return decision{}, err
	}
	if len(vals) != 3 {
		return decision{}, fmt.Errorf("unexpected rate limit result: %v", vals)
	}
	return decision{
		allowed:    vals[0] == 1,
		remaining:  vals[1],
		retryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// Limit throttles requests per client IP within scope. Redis failures let the request through.
func (l *RateLimiter) Limit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil || l.rdb == nil || !l.cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.Join([]string{l.cfg.Prefix, scope, l.clientIP(r)}, ":")
			d, err := l.take(r.Context(), key)
			if err != nil {
				logger.FromContext(r.Context()).Warn("rate limit unavailable", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Capacity))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
			if !d.allowed {
				secs := int(math.Ceil(d.retryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the peer address, unless the peer is a trusted proxy. Then it is the
// right-most X-Forwarded-For entry that is not itself a trusted proxy.
func (l *RateLimiter) clientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !l.trustedProxy(peer) {
		return peer
	}

	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(v, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		ip := strings.TrimSpace(hops[i])
		if ip == "" {
			continue
		}
		if !l.trustedProxy(ip) {
			return ip
		}
	}
	return peer
}

func (l *RateLimiter) trustedProxy(ip string) bool {
	if len(l.proxies) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range l.proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
