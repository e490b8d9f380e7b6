// Package availability derives per-date room type inventory from reservation holds.
// Nothing here is persisted; every matrix is recomputed from the holds it is given.
package availability

import (
	"fmt"

	"hotelsuite/internal/apperr"
	"hotelsuite/internal/catalog"
	"hotelsuite/internal/stay"
)

// Hold is inventory taken by one reservation of one room type: Units rooms for every
// night of Stay. Only reservations in an inventory-holding status produce holds.
type Hold struct {
	ReservationID string
	RoomTypeID    string
	Stay          stay.Range
	Units         int
}

type DateCount struct {
	Date      stay.Date `json:"date"`
	Reserved  int       `json:"reserved"`
	Available int       `json:"available"`
}

type RoomTypeAvailability struct {
	RoomTypeID string      `json:"roomTypeId"`
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	TotalRooms int         `json:"totalRooms"`
	Dates      []DateCount `json:"dates"`
}

// Compute builds the availability of rt for every date of rng. Holds of other room types
// are ignored. Reserved is clamped to TotalRooms so reserved+available always equals it.
func Compute(rt catalog.RoomType, rng stay.Range, holds []Hold) RoomTypeAvailability {
	total := rt.TotalRooms
	if total < 0 {
		total = 0
	}
	out := RoomTypeAvailability{
		RoomTypeID: rt.ID,
		Code:       rt.Code,
		Name:       rt.Name,
		TotalRooms: total,
		Dates:      []DateCount{},
	}
	for _, d := range rng.Dates() {
		reserved := reservedOn(d, rt.ID, holds)
		if reserved > total {
			reserved = total
		}
		out.Dates = append(out.Dates, DateCount{Date: d, Reserved: reserved, Available: total - reserved})
	}
	return out
}

func reservedOn(d stay.Date, roomTypeID string, holds []Hold) int {
	n := 0
	for _, h := range holds {
		if h.RoomTypeID == roomTypeID && h.Stay.Contains(d) {
			n += h.Units
		}
	}
	return n
}

// CheckCapacity verifies units more rooms of rt fit on every night of rng given the
// existing holds. It is the decision half of the atomic check-and-hold; callers must
// hold the room type lock while calling it and writing the new hold.
func CheckCapacity(rt catalog.RoomType, rng stay.Range, holds []Hold, units int) error {
	for _, d := range rng.Dates() {
		if reservedOn(d, rt.ID, holds)+units > rt.TotalRooms {
			return apperr.Conflict("SOLD_OUT",
				fmt.Sprintf("%s is fully booked on %s", rt.Name, d))
		}
	}
	return nil
}

// Band classifies an entry for display: "full", "partial" or "open".
func (d DateCount) Band() string {
	switch {
	case d.Available <= 0:
		return "full"
	case d.Reserved > 0:
		return "partial"
	default:
		return "open"
	}
}
