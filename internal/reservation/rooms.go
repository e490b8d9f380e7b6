package reservation

import (
	"context"
	"fmt"

	"hotelsuite/internal/apperr"
	"hotelsuite/internal/catalog"
	"hotelsuite/internal/logger"
)

// roomInventory lists the physical rooms of a room type.
type roomInventory func(ctx context.Context, roomTypeID string) ([]catalog.Room, error)

// assignRooms validates rooms that fn explicitly set on next and, when auto is true,
// gives every still unassigned room a free in-service room of its type. occupied holds
// the ids of rooms taken by other overlapping stays and is updated in place. A room type
// with no free room is left unassigned with a warning.
func assignRooms(ctx context.Context, before, next *Reservation, auto bool, inventory roomInventory, occupied map[string]bool) error {
	cache := map[string][]catalog.Room{}
	roomsOf := func(roomTypeID string) ([]catalog.Room, error) {
		if rooms, ok := cache[roomTypeID]; ok {
			return rooms, nil
		}
		rooms, err := inventory(ctx, roomTypeID)
		if err != nil {
			return nil, err
		}
		cache[roomTypeID] = rooms
		return rooms, nil
	}

	for i := range next.Rooms {
		rm := &next.Rooms[i]
		if rm.RoomID == nil || !changedRoom(before, i, *rm.RoomID) {
			continue
		}
		rooms, err := roomsOf(rm.RoomTypeID)
		if err != nil {
			return err
		}
		phys, ok := findRoom(rooms, *rm.RoomID)
		if !ok || phys.OutOfService || occupied[phys.ID] {
			return apperr.Conflict("ROOM_UNAVAILABLE",
				fmt.Sprintf("room %s is not available for this stay", *rm.RoomID))
		}
		occupied[phys.ID] = true
		rm.RoomNumber = phys.Number
	}

	if !auto {
		return nil
	}
	for i := range next.Rooms {
		rm := &next.Rooms[i]
		if rm.RoomID != nil {
			continue
		}
		rooms, err := roomsOf(rm.RoomTypeID)
		if err != nil {
			return err
		}
		phys, ok := freeRoom(rooms, occupied)
		if !ok {
			logger.FromContext(ctx).Warn("no free room to assign at check-in",
				"reservation_id", next.ID, "room_type_id", rm.RoomTypeID)
			continue
		}
		occupied[phys.ID] = true
		id := phys.ID
		rm.RoomID = &id
		rm.RoomNumber = phys.Number
	}
	return nil
}

func changedRoom(before *Reservation, i int, roomID string) bool {
	if before == nil || i >= len(before.Rooms) || before.Rooms[i].RoomID == nil {
		return true
	}
	return *before.Rooms[i].RoomID != roomID
}

func findRoom(rooms []catalog.Room, id string) (catalog.Room, bool) {
	for _, r := range rooms {
		if r.ID == id {
			return r, true
		}
	}
	return catalog.Room{}, false
}

func freeRoom(rooms []catalog.Room, occupied map[string]bool) (catalog.Room, bool) {
	for _, r := range rooms {
		if !r.OutOfService && !occupied[r.ID] {
			return r, true
		}
	}
	return catalog.Room{}, false
}
