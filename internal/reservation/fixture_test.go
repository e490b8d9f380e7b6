package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hotelsuite/internal/availability"
	"hotelsuite/internal/catalog"
	"hotelsuite/internal/messaging"
	"hotelsuite/internal/stay"
)

// suiteRoomID is the only physical room of the demo suite.
const suiteRoomID = "8f0c2a4e-0d6b-4a53-9a51-2f1f6f1d1008"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.ReservationEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev messaging.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	svc          *Service
	store        *MemoryStore
	catalog      *catalog.Memory
	availability *availability.Service
	publisher    *recordingPublisher
	clock        *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	cat := catalog.NewMemory()
	require.NoError(t, catalog.Seed(ctx, cat, catalog.DemoSeed()))

	store := NewMemoryStore(cat)
	avail := &availability.Service{Catalog: cat, Holds: store, MaxDays: 366}
	clock := &testClock{t: time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)}
	pub := &recordingPublisher{}

	return &fixture{
		svc: &Service{
			Store:           store,
			Rates:           catalog.Resolver{Store: cat},
			Availability:    avail,
			Publisher:       pub,
			MaxStayNights:   30,
			NoShowGraceDays: 1,
			Now:             clock.Now,
		},
		store:        store,
		catalog:      cat,
		availability: avail,
		publisher:    pub,
		clock:        clock,
	}
}

func booking(roomTypeID, ratePlanID, in, out string) CreateRequest {
	return CreateRequest{
		PropertyID:   catalog.DemoPropertyID,
		RoomTypeID:   roomTypeID,
		RatePlanID:   ratePlanID,
		CheckInDate:  stay.MustParseDate(in),
		CheckOutDate: stay.MustParseDate(out),
		Adults:       2,
		Guest: Guest{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "Ada@Example.com",
		},
		Actor: "guest:ada@example.com",
	}
}

// available returns the available count per date of one room type.
func (f *fixture) available(t *testing.T, roomTypeID, from, to string) map[string]int {
	t.Helper()
	m, err := f.availability.Query(context.Background(), availability.Query{
		PropertyID: catalog.DemoPropertyID,
		Range:      stay.Range{From: stay.MustParseDate(from), To: stay.MustParseDate(to)},
		RoomTypeID: roomTypeID,
	})
	require.NoError(t, err)
	require.Len(t, m.RoomTypes, 1)

	out := map[string]int{}
	for _, d := range m.RoomTypes[0].Dates {
		require.Equal(t, m.RoomTypes[0].TotalRooms, d.Reserved+d.Available, "reserved + available == total on %s", d.Date)
		out[d.Date.String()] = d.Available
	}
	return out
}
