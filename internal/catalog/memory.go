package catalog

import (
	"context"
	"sort"
	"sync"

	"hotelsuite/internal/apperr"
)

// Memory is an in-process catalog used by the memory store driver and tests.
type Memory struct {
	mu         sync.RWMutex
	properties map[string]Property
	roomTypes  map[string]RoomType
	rooms      map[string]Room
	ratePlans  map[string]RatePlan
}

func NewMemory() *Memory {
	return &Memory{
		properties: map[string]Property{},
		roomTypes:  map[string]RoomType{},
		rooms:      map[string]Room{},
		ratePlans:  map[string]RatePlan{},
	}
}

func (m *Memory) GetProperty(_ context.Context, id string) (*Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.properties[id]
	if !ok {
		return nil, apperr.NotFound("property not found")
	}
	return &p, nil
}

func (m *Memory) ListRoomTypes(_ context.Context, propertyID string) ([]RoomType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []RoomType{}
	for _, rt := range m.roomTypes {
		if rt.PropertyID == propertyID {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Memory) ListAllRoomTypes(_ context.Context) ([]RoomType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RoomType, 0, len(m.roomTypes))
	for _, rt := range m.roomTypes {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PropertyID != out[j].PropertyID {
			return out[i].PropertyID < out[j].PropertyID
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (m *Memory) GetRoomType(_ context.Context, id string) (*RoomType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rt, ok := m.roomTypes[id]
	if !ok {
		return nil, apperr.NotFound("room type not found")
	}
	return &rt, nil
}

func (m *Memory) ListRooms(_ context.Context, roomTypeID string) ([]Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Room{}
	for _, rm := range m.rooms {
		if rm.RoomTypeID == roomTypeID {
			out = append(out, rm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *Memory) ListRatePlans(_ context.Context, propertyID string) ([]RatePlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []RatePlan{}
	for _, p := range m.ratePlans {
		if p.PropertyID == propertyID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Memory) GetRatePlan(_ context.Context, id string) (*RatePlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.ratePlans[id]
	if !ok {
		return nil, apperr.NotFound("rate plan not found")
	}
	return &p, nil
}

func (m *Memory) UpsertProperty(_ context.Context, p Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[p.ID] = p
	return nil
}

func (m *Memory) UpsertRoomType(_ context.Context, rt RoomType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomTypes[rt.ID] = rt
	return nil
}

func (m *Memory) UpsertRoom(_ context.Context, rm Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[rm.ID] = rm
	return nil
}

func (m *Memory) UpsertRatePlan(_ context.Context, p RatePlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratePlans[p.ID] = p
	return nil
}
