package hotelclient

import "time"

// DateLayout is the wire format of stay dates.
const DateLayout = "2006-01-02"

type RoomType struct {
	ID           string `json:"id"`
	PropertyID   string `json:"propertyId"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	TotalRooms   int    `json:"totalRooms"`
	MaxOccupancy int    `json:"maxOccupancy"`
}

type DateCount struct {
	Date      string `json:"date"`
	Reserved  int    `json:"reserved"`
	Available int    `json:"available"`
}

type RoomTypeAvailability struct {
	RoomTypeID string      `json:"roomTypeId"`
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	TotalRooms int         `json:"totalRooms"`
	Dates      []DateCount `json:"dates"`
}

type Availability struct {
	PropertyID string                 `json:"propertyId"`
	From       string                 `json:"from"`
	To         string                 `json:"to"`
	RoomTypes  []RoomTypeAvailability `json:"roomTypes"`
}

// Band is the display bucket of a date's availability.
type Band string

const (
	BandFull    Band = "full"
	BandPartial Band = "partial"
	BandOpen    Band = "open"
)

func (d DateCount) Band(totalRooms int) Band {
	switch {
	case d.Available <= 0 || totalRooms <= 0:
		return BandFull
	case d.Available < totalRooms:
		return BandPartial
	default:
		return BandOpen
	}
}

// Band of a room type over the whole range is its tightest night.
func (a RoomTypeAvailability) Band() Band {
	if a.TotalRooms <= 0 {
		return BandFull
	}
	out := BandOpen
	for _, d := range a.Dates {
		switch d.Band(a.TotalRooms) {
		case BandFull:
			return BandFull
		case BandPartial:
			out = BandPartial
		}
	}
	return out
}

// RatePlan is an eligible, priced plan for one room type and stay.
type RatePlan struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Code              string `json:"code"`
	Refundable        bool   `json:"refundable"`
	IncludesBreakfast bool   `json:"includesBreakfast"`
	NightlyRate       string `json:"nightlyRate"`
	Currency          string `json:"currency"`
	Nights            int    `json:"nights"`
	TotalPrice        string `json:"totalPrice"`
}

type Guest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

type CreateReservation struct {
	PropertyID      string `json:"propertyId"`
	RoomTypeID      string `json:"roomTypeId"`
	RatePlanID      string `json:"ratePlanId"`
	CheckInDate     string `json:"checkInDate"`
	CheckOutDate    string `json:"checkOutDate"`
	Adults          int    `json:"adults"`
	Children        int    `json:"children"`
	Rooms           int    `json:"rooms,omitempty"`
	SpecialRequests string `json:"specialRequests,omitempty"`
	Guest           Guest  `json:"guest"`
}

// Confirmation is the result of a booking. Replayed is set when the server matched an
// earlier submission with the same idempotency key.
type Confirmation struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Status       string `json:"status"`
	CheckInDate  string `json:"checkInDate"`
	CheckOutDate string `json:"checkOutDate"`
	Replayed     bool   `json:"-"`
}

type GuestRoom struct {
	RoomTypeID string `json:"roomTypeId"`
	RatePlanID string `json:"ratePlanId"`
	RoomNumber string `json:"roomNumber,omitempty"`
}

// Reservation is the guest-facing view returned by lookups.
type Reservation struct {
	Code            string      `json:"code"`
	PropertyID      string      `json:"propertyId"`
	Status          string      `json:"status"`
	CheckInDate     string      `json:"checkInDate"`
	CheckOutDate    string      `json:"checkOutDate"`
	Nights          int         `json:"nights"`
	Adults          int         `json:"adults"`
	Children        int         `json:"children"`
	SpecialRequests string      `json:"specialRequests,omitempty"`
	Guest           Guest       `json:"guest"`
	Rooms           []GuestRoom `json:"rooms"`
	TotalAmount     string      `json:"totalAmount"`
	Currency        string      `json:"currency"`
	Cancellable     bool        `json:"cancellable"`
}

type ReservationRoom struct {
	ID           string  `json:"id"`
	RoomTypeID   string  `json:"roomTypeId"`
	RoomID       *string `json:"roomId"`
	RoomNumber   string  `json:"roomNumber,omitempty"`
	RatePlanID   string  `json:"ratePlanId"`
	GuestsInRoom int     `json:"guestsInRoom"`
}

// AdminReservation is the console view: the full record and the actions it allows.
type AdminReservation struct {
	ID              string            `json:"id"`
	Code            string            `json:"code"`
	PropertyID      string            `json:"propertyId"`
	CustomerID      string            `json:"customerId,omitempty"`
	Status          string            `json:"status"`
	Channel         string            `json:"channel"`
	CheckInDate     string            `json:"checkInDate"`
	CheckOutDate    string            `json:"checkOutDate"`
	Nights          int               `json:"nights"`
	Adults          int               `json:"adults"`
	Children        int               `json:"children"`
	SpecialRequests string            `json:"specialRequests,omitempty"`
	Guest           Guest             `json:"guest"`
	Rooms           []ReservationRoom `json:"rooms"`
	TotalAmount     string            `json:"totalAmount"`
	Currency        string            `json:"currency"`
	AllowedActions  []string          `json:"allowedActions"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// Allows reports whether the console should show action for this reservation.
func (r AdminReservation) Allows(action string) bool {
	for _, a := range r.AllowedActions {
		if a == action {
			return true
		}
	}
	return false
}

type Event struct {
	ID            string         `json:"id"`
	ReservationID string         `json:"reservationId"`
	Code          string         `json:"code,omitempty"`
	EventType     string         `json:"eventType"`
	Summary       string         `json:"summary"`
	Actor         string         `json:"actor"`
	OccurredAt    time.Time      `json:"occurredAt"`
	Data          map[string]any `json:"data,omitempty"`
}

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}
