package reservation

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hotelsuite/internal/apperr"
	"hotelsuite/internal/availability"
	"hotelsuite/internal/catalog"
	"hotelsuite/internal/events"
	"hotelsuite/internal/logger"
	"hotelsuite/internal/stay"
)

// MemoryStore keeps reservations in process. A single mutex serialises every
// check-and-hold, which gives the same guarantee as the room type row lock in Postgres.
type MemoryStore struct {
	catalog catalog.Store

	mu     sync.Mutex
	byID   map[string]*Reservation
	byCode map[string]string
	byKey  map[string]string
	events []events.Event
	now    func() time.Time
}

func NewMemoryStore(cat catalog.Store) *MemoryStore {
	return &MemoryStore{
		catalog: cat,
		byID:    map[string]*Reservation{},
		byCode:  map[string]string{},
		byKey:   map[string]string{},
		now:     time.Now,
	}
}

func (m *MemoryStore) Create(ctx context.Context, d Draft) (*Reservation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d.IdempotencyKey != "" {
		if id, ok := m.byKey[d.IdempotencyKey]; ok {
			existing := m.byID[id]
			if existing.RequestHash != d.RequestHash {
				return nil, false, errKeyReused()
			}
			return existing.clone(), false, nil
		}
	}
	if _, taken := m.byCode[d.Code]; taken {
		return nil, false, ErrCodeTaken
	}

	now := m.now().UTC()
	res := &Reservation{
		ID:              uuid.NewString(),
		Code:            d.Code,
		PropertyID:      d.PropertyID,
		CustomerID:      d.CustomerID,
		Status:          d.Status,
		Channel:         d.Channel,
		CheckInDate:     d.Stay.From,
		CheckOutDate:    d.Stay.To,
		Adults:          d.Adults,
		Children:        d.Children,
		SpecialRequests: d.SpecialRequests,
		Guest:           d.Guest,
		TotalAmount:     d.TotalAmount,
		Currency:        d.Currency,
		IdempotencyKey:  d.IdempotencyKey,
		RequestHash:     d.RequestHash,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	res.Guest.ID = uuid.NewString()
	res.PrimaryGuestID = res.Guest.ID
	for _, rm := range d.Rooms {
		rm.ID = uuid.NewString()
		rm.RoomID = nil
		res.Rooms = append(res.Rooms, rm)
	}

	if res.Status.HoldsInventory() {
		if err := m.checkCapacityLocked(ctx, res); err != nil {
			return nil, false, err
		}
	}

	m.byID[res.ID] = res
	m.byCode[res.Code] = res.ID
	if res.IdempotencyKey != "" {
		m.byKey[res.IdempotencyKey] = res.ID
	}
	m.appendEventLocked(res, createdEvent(res, d.Actor))
	return res.clone(), true, nil
}

func (m *MemoryStore) checkCapacityLocked(ctx context.Context, res *Reservation) error {
	holds := m.holdsLocked(res.PropertyID, res.Stay(), res.ID)
	for _, h := range res.Holds() {
		rt, err := m.catalog.GetRoomType(ctx, h.RoomTypeID)
		if err != nil {
			return err
		}
		if err := availability.CheckCapacity(*rt, h.Stay, holds, h.Units); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) holdsLocked(propertyID string, rng stay.Range, excludeID string) []availability.Hold {
	var out []availability.Hold
	for _, r := range m.byID {
		if r.ID == excludeID || r.PropertyID != propertyID || !r.Status.HoldsInventory() {
			continue
		}
		if !r.Stay().Overlaps(rng) {
			continue
		}
		out = append(out, r.Holds()...)
	}
	return out
}

func (m *MemoryStore) Holds(_ context.Context, propertyID string, rng stay.Range) ([]availability.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holdsLocked(propertyID, rng, ""), nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, errNotFound()
	}
	return r.clone(), nil
}

func (m *MemoryStore) GetByCode(_ context.Context, code string) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byCode[NormalizeCode(code)]
	if !ok {
		return nil, errNotFound()
	}
	return m.byID[id].clone(), nil
}

func (m *MemoryStore) List(_ context.Context, f ListFilter) ([]Reservation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*Reservation
	for _, r := range m.byID {
		if matches(r, f) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].Code < matched[j].Code
	})

	total := len(matched)
	limit, offset := pageBounds(f)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]Reservation, 0, end-offset)
	for _, r := range matched[offset:end] {
		out = append(out, *r.clone())
	}
	return out, total, nil
}

func matches(r *Reservation, f ListFilter) bool {
	if f.PropertyID != "" && r.PropertyID != f.PropertyID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.CustomerID != "" && r.CustomerID != f.CustomerID {
		return false
	}
	if !f.Stay.From.IsZero() && !f.Stay.To.IsZero() && !r.Stay().Overlaps(f.Stay) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		hay := strings.ToLower(r.Code + " " + r.Guest.Email + " " + r.Guest.FullName())
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

func (m *MemoryStore) Mutate(ctx context.Context, id, actor string, fn func(r *Reservation) (Change, error)) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.byID[id]
	if !ok {
		return nil, errNotFound()
	}
	next := cur.clone()
	ch, err := fn(next)
	if err != nil {
		return nil, err
	}

	if !cur.Status.HoldsInventory() && next.Status.HoldsInventory() {
		if err := m.checkCapacityLocked(ctx, next); err != nil {
			return nil, err
		}
	}
	occupied := m.occupiedRoomsLocked(next)
	if err := assignRooms(ctx, cur, next, ch.AssignRooms, m.catalog.ListRooms, occupied); err != nil {
		return nil, err
	}

	next.UpdatedAt = m.now().UTC()
	m.byID[id] = next
	m.appendEventLocked(next, events.Event{
		EventType: ch.EventType,
		Summary:   ch.Summary,
		Actor:     actor,
		Data:      ch.Data,
	})
	if ch.Audit {
		logger.FromContext(ctx).Info("audit",
			"action", ch.AuditAction, "actor", actor, "reservation_id", id, "metadata", ch.Data)
	}
	return next.clone(), nil
}

// occupiedRoomsLocked returns physical rooms assigned to other holding stays that overlap r.
func (m *MemoryStore) occupiedRoomsLocked(r *Reservation) map[string]bool {
	out := map[string]bool{}
	for _, o := range m.byID {
		if o.ID == r.ID || !o.Status.HoldsInventory() || !o.Stay().Overlaps(r.Stay()) {
			continue
		}
		for _, rm := range o.Rooms {
			if rm.RoomID != nil {
				out[*rm.RoomID] = true
			}
		}
	}
	return out
}

func (m *MemoryStore) DueNoShows(_ context.Context, cutoff stay.Date, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*Reservation
	for _, r := range m.byID {
		if r.Status == StatusConfirmed && r.CheckInDate.Before(cutoff) {
			due = append(due, r)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CheckInDate.Before(due[j].CheckInDate) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	out := make([]string, 0, len(due))
	for _, r := range due {
		out = append(out, r.ID)
	}
	return out, nil
}

func (m *MemoryStore) Events(_ context.Context, reservationID string) ([]events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []events.Event{}
	for _, e := range m.events {
		if e.ReservationID == reservationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) EventsSince(_ context.Context, since time.Time, limit int) ([]events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	out := []events.Event{}
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if m.events[i].OccurredAt.After(since) {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

func (m *MemoryStore) appendEventLocked(r *Reservation, e events.Event) {
	e.ID = uuid.NewString()
	e.ReservationID = r.ID
	e.Code = r.Code
	if e.OccurredAt.IsZero() {
		e.OccurredAt = m.now().UTC()
	}
	m.events = append(m.events, e)
}

func createdEvent(r *Reservation, actor string) events.Event {
	return events.Event{
		EventType: "CREATED",
		Summary:   "Reservation created as " + string(r.Status) + " via " + r.Channel,
		Actor:     actor,
		Data: map[string]any{
			"status":       r.Status,
			"channel":      r.Channel,
			"checkInDate":  r.CheckInDate.String(),
			"checkOutDate": r.CheckOutDate.String(),
			"rooms":        len(r.Rooms),
		},
	}
}

func pageBounds(f ListFilter) (limit, offset int) {
	limit, offset = f.Limit, f.Offset
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func errNotFound() error {
	return apperr.NotFound("reservation not found")
}

func errKeyReused() error {
	return apperr.Conflict("IDEMPOTENCY_KEY_REUSED", "idempotency key was already used for a different request")
}
