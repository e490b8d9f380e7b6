package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hotelsuite/internal/logger"
)

// Cache stores computed matrices. Entries are advisory: booking always re-validates
// capacity inside its own transaction.
//
// Get resolves the slot a query maps to at the moment of the read and returns it with any
// hit; Set must be given that same slot. A matrix computed before an Invalidate therefore
// lands under the superseded version and is never served afterwards.
type Cache interface {
	Get(ctx context.Context, q Query) (m *Matrix, slot string, ok bool)
	Set(ctx context.Context, slot string, m *Matrix)
	Invalidate(ctx context.Context, propertyID string) error
}

type NoCache struct{}

func (NoCache) Get(context.Context, Query) (*Matrix, string, bool) { return nil, "", false }

func (NoCache) Set(context.Context, string, *Matrix) {}

func (NoCache) Invalidate(context.Context, string) error { return nil }

// RedisCache namespaces keys by a per-property version counter; bumping the counter
// orphans every cached matrix of the property, which then expire by TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func versionKey(propertyID string) string {
	return "avail:ver:" + propertyID
}

func (c *RedisCache) key(ctx context.Context, q Query) (string, error) {
	ver, err := c.rdb.Get(ctx, versionKey(q.PropertyID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	rt := q.RoomTypeID
	if rt == "" {
		rt = "*"
	}
	return fmt.Sprintf("avail:%s:v%d:%s:%s:%s", q.PropertyID, ver, rt, q.Range.From, q.Range.To), nil
}

// Get returns an empty slot when the version cannot be read; Set ignores empty slots.
func (c *RedisCache) Get(ctx context.Context, q Query) (*Matrix, string, bool) {
	key, err := c.key(ctx, q)
	if err != nil {
		logger.FromContext(ctx).Warn("availability cache read failed", "error", err)
		return nil, "", false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.FromContext(ctx).Warn("availability cache read failed", "key", key, "error", err)
		}
		return nil, key, false
	}
	var m Matrix
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, key, false
	}
	return &m, key, true
}

func (c *RedisCache) Set(ctx context.Context, slot string, m *Matrix) {
	if slot == "" {
		return
	}
	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, slot, b, c.ttl).Err(); err != nil {
		logger.FromContext(ctx).Warn("availability cache write failed", "key", slot, "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, propertyID string) error {
	return c.rdb.Incr(ctx, versionKey(propertyID)).Err()
}
