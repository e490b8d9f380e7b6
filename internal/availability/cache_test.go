package availability

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelsuite/internal/catalog"
	"hotelsuite/internal/stay"
)

// holdLog is a HoldSource whose holds tests change between queries. beforeReturn, when
// set, runs once after the holds are read and before they are returned.
type holdLog struct {
	mu           sync.Mutex
	holds        []Hold
	calls        int
	beforeReturn func()
}

func (h *holdLog) Holds(_ context.Context, _ string, _ stay.Range) ([]Hold, error) {
	h.mu.Lock()
	out := append([]Hold(nil), h.holds...)
	h.calls++
	hook := h.beforeReturn
	h.beforeReturn = nil
	h.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (h *holdLog) add(hold Hold) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.holds = append(h.holds, hold)
}

func (h *holdLog) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

type cacheFixture struct {
	svc   *Service
	holds *holdLog
	redis *miniredis.Miniredis
}

func newCacheFixture(t *testing.T) *cacheFixture {
	t.Helper()
	cat := catalog.NewMemory()
	require.NoError(t, catalog.Seed(context.Background(), cat, catalog.DemoSeed()))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	holds := &holdLog{}
	return &cacheFixture{
		svc: &Service{
			Catalog: cat,
			Holds:   holds,
			Cache:   NewRedisCache(rdb, 30*time.Second),
			MaxDays: 366,
		},
		holds: holds,
		redis: mr,
	}
}

var suiteQuery = Query{
	PropertyID: catalog.DemoPropertyID,
	Range:      r("2026-03-01", "2026-03-03"),
	RoomTypeID: catalog.DemoSuiteID,
}

func suiteHold() Hold {
	return Hold{ReservationID: "res-1", RoomTypeID: catalog.DemoSuiteID, Stay: r("2026-03-01", "2026-03-03"), Units: 1}
}

func reservedOnFirstNight(t *testing.T, m *Matrix) int {
	t.Helper()
	require.Len(t, m.RoomTypes, 1)
	require.NotEmpty(t, m.RoomTypes[0].Dates)
	d := m.RoomTypes[0].Dates[0]
	assert.Equal(t, m.RoomTypes[0].TotalRooms, d.Reserved+d.Available)
	return d.Reserved
}

func TestRedisCache_HitUntilInvalidated(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	m, err := f.svc.Query(ctx, suiteQuery)
	require.NoError(t, err)
	assert.Equal(t, 0, reservedOnFirstNight(t, m))
	assert.Equal(t, 1, f.holds.callCount())

	f.holds.add(suiteHold())
	m, err = f.svc.Query(ctx, suiteQuery)
	require.NoError(t, err)
	assert.Equal(t, 0, reservedOnFirstNight(t, m), "served from cache until invalidated")
	assert.Equal(t, 1, f.holds.callCount())

	f.svc.Invalidate(ctx, catalog.DemoPropertyID)
	m, err = f.svc.Query(ctx, suiteQuery)
	require.NoError(t, err)
	assert.Equal(t, 1, reservedOnFirstNight(t, m))
	assert.Equal(t, 2, f.holds.callCount())

	ver, err := f.redis.Get(versionKey(catalog.DemoPropertyID))
	require.NoError(t, err)
	assert.Equal(t, "1", ver)
}

func TestRedisCache_InvalidateDuringComputeIsNotMasked(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	// A booking commits and invalidates after this query has read its holds.
	f.holds.beforeReturn = func() {
		f.holds.add(suiteHold())
		f.svc.Invalidate(ctx, catalog.DemoPropertyID)
	}
	m, err := f.svc.Query(ctx, suiteQuery)
	require.NoError(t, err)
	assert.Equal(t, 0, reservedOnFirstNight(t, m))

	m, err = f.svc.Query(ctx, suiteQuery)
	require.NoError(t, err)
	assert.Equal(t, 1, reservedOnFirstNight(t, m))
	assert.Equal(t, 0, m.RoomTypes[0].Dates[0].Available)
}

func TestRedisCache_EntriesExpire(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	_, err := f.svc.Query(ctx, suiteQuery)
	require.NoError(t, err)
	f.holds.add(suiteHold())

	f.redis.FastForward(31 * time.Second)
	m, err := f.svc.Query(ctx, suiteQuery)
	require.NoError(t, err)
	assert.Equal(t, 1, reservedOnFirstNight(t, m))
}

func TestRedisCache_RedisDownComputesDirectly(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()
	f.redis.Close()

	f.holds.add(suiteHold())
	m, err := f.svc.Query(ctx, suiteQuery)
	require.NoError(t, err)
	assert.Equal(t, 1, reservedOnFirstNight(t, m))

	m, err = f.svc.Query(ctx, suiteQuery)
	require.NoError(t, err)
	assert.Equal(t, 1, reservedOnFirstNight(t, m))
	assert.Equal(t, 2, f.holds.callCount())
}
