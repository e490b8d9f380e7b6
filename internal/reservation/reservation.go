// Package reservation owns the reservation lifecycle: atomic creation against derived
// availability, the status machine, guest lookup and the admin console operations.
package reservation

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hotelsuite/internal/availability"
	"hotelsuite/internal/events"
	"hotelsuite/internal/stay"
)

const (
	ChannelWeb       = "WEB"
	ChannelFrontDesk = "FRONT_DESK"
)

type Guest struct {
	ID        string `json:"id,omitempty"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Phone     string `json:"phone,omitempty" validate:"max=40"`
}

func (g Guest) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}

func (g *Guest) normalize() {
	g.FirstName = strings.TrimSpace(g.FirstName)
	g.LastName = strings.TrimSpace(g.LastName)
	g.Email = strings.ToLower(strings.TrimSpace(g.Email))
	g.Phone = strings.TrimSpace(g.Phone)
}

// Room is one booked unit of a reservation. RoomID is set at or after check-in.
type Room struct {
	ID           string  `json:"id"`
	RoomTypeID   string  `json:"roomTypeId"`
	RoomID       *string `json:"roomId"`
	RoomNumber   string  `json:"roomNumber,omitempty"`
	RatePlanID   string  `json:"ratePlanId"`
	GuestsInRoom int     `json:"guestsInRoom"`
}

type Reservation struct {
	ID              string          `json:"id"`
	Code            string          `json:"code"`
	PropertyID      string          `json:"propertyId"`
	PrimaryGuestID  string          `json:"primaryGuestId"`
	CustomerID      string          `json:"customerId,omitempty"`
	Status          Status          `json:"status"`
	Channel         string          `json:"channel"`
	CheckInDate     stay.Date       `json:"checkInDate"`
	CheckOutDate    stay.Date       `json:"checkOutDate"`
	Adults          int             `json:"adults"`
	Children        int             `json:"children"`
	SpecialRequests string          `json:"specialRequests,omitempty"`
	Guest           Guest           `json:"guest"`
	Rooms           []Room          `json:"rooms"`
	TotalAmount     decimal.Decimal `json:"-"`
	Currency        string          `json:"currency"`
	IdempotencyKey  string          `json:"-"`
	RequestHash     string          `json:"-"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (r *Reservation) Stay() stay.Range {
	return stay.Range{From: r.CheckInDate, To: r.CheckOutDate}
}

// Holds expands the reservation into one inventory hold per room type.
func (r *Reservation) Holds() []availability.Hold {
	units := map[string]int{}
	var order []string
	for _, rm := range r.Rooms {
		if units[rm.RoomTypeID] == 0 {
			order = append(order, rm.RoomTypeID)
		}
		units[rm.RoomTypeID]++
	}
	out := make([]availability.Hold, 0, len(order))
	for _, id := range order {
		out = append(out, availability.Hold{ReservationID: r.ID, RoomTypeID: id, Stay: r.Stay(), Units: units[id]})
	}
	return out
}

func (r *Reservation) clone() *Reservation {
	c := *r
	c.Rooms = make([]Room, len(r.Rooms))
	for i, rm := range r.Rooms {
		c.Rooms[i] = rm
		if rm.RoomID != nil {
			id := *rm.RoomID
			c.Rooms[i].RoomID = &id
		}
	}
	return &c
}

// Created is the body returned by a successful creation or an idempotent replay.
type Created struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Status       Status    `json:"status"`
	CheckInDate  stay.Date `json:"checkInDate"`
	CheckOutDate stay.Date `json:"checkOutDate"`
}

func (r *Reservation) Created() Created {
	return Created{ID: r.ID, Code: r.Code, Status: r.Status, CheckInDate: r.CheckInDate, CheckOutDate: r.CheckOutDate}
}

// AdminView is the console representation: the full record plus the controls it may show.
type AdminView struct {
	*Reservation
	Nights         int      `json:"nights"`
	TotalAmount    string   `json:"totalAmount"`
	AllowedActions []Action `json:"allowedActions"`
}

func (r *Reservation) Admin() AdminView {
	return AdminView{
		Reservation:    r,
		Nights:         r.Stay().Nights(),
		TotalAmount:    r.TotalAmount.StringFixed(2),
		AllowedActions: AllowedActions(r.Status),
	}
}

type GuestRoom struct {
	RoomTypeID string `json:"roomTypeId"`
	RatePlanID string `json:"ratePlanId"`
	RoomNumber string `json:"roomNumber,omitempty"`
}

// GuestView is what a guest sees after looking a reservation up. It omits internal ids
// and the audit trail.
type GuestView struct {
	Code            string      `json:"code"`
	PropertyID      string      `json:"propertyId"`
	Status          Status      `json:"status"`
	CheckInDate     stay.Date   `json:"checkInDate"`
	CheckOutDate    stay.Date   `json:"checkOutDate"`
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

func (r *Reservation) GuestView() GuestView {
	g := r.Guest
	g.ID = ""
	rooms := make([]GuestRoom, 0, len(r.Rooms))
	for _, rm := range r.Rooms {
		rooms = append(rooms, GuestRoom{RoomTypeID: rm.RoomTypeID, RatePlanID: rm.RatePlanID, RoomNumber: rm.RoomNumber})
	}
	_, err := Next(r.Status, ActionCancel)
	return GuestView{
		Code:            r.Code,
		PropertyID:      r.PropertyID,
		Status:          r.Status,
		CheckInDate:     r.CheckInDate,
		CheckOutDate:    r.CheckOutDate,
		Nights:          r.Stay().Nights(),
		Adults:          r.Adults,
		Children:        r.Children,
		SpecialRequests: r.SpecialRequests,
		Guest:           g,
		Rooms:           rooms,
		TotalAmount:     r.TotalAmount.StringFixed(2),
		Currency:        r.Currency,
		Cancellable:     err == nil,
	}
}

// Draft is a validated, priced reservation ready for the atomic insert.
type Draft struct {
	Code            string
	PropertyID      string
	CustomerID      string
	Status          Status
	Channel         string
	Stay            stay.Range
	Adults          int
	Children        int
	SpecialRequests string
	Guest           Guest
	Rooms           []Room
	TotalAmount     decimal.Decimal
	Currency        string
	IdempotencyKey  string
	RequestHash     string
	Actor           string
}

// Change describes what a mutation did so the store can record it in the same transaction.
type Change struct {
	EventType string
	Summary   string
	Data      map[string]any
	// AssignRooms fills every unassigned room with a free physical room of its type.
	AssignRooms bool
	// Audit additionally writes an audit_logs row with Data as metadata.
	Audit       bool
	AuditAction string
}

type ListFilter struct {
	PropertyID string
	Status     Status
	CustomerID string
	// Query matches the code, guest email or guest name.
	Query  string
	Stay   stay.Range
	Limit  int
	Offset int
}

// Store persists reservations. Create and Mutate are atomic with respect to capacity:
// two concurrent calls can never both take the last unit of a room type for a night.
type Store interface {
	availability.HoldSource

	// Create inserts d unless its idempotency key was already used. created is false on a
	// replay of the same request. A key reused with a different request hash is an
	// IDEMPOTENCY_KEY_REUSED conflict. ErrCodeTaken means the generated code collided.
	Create(ctx context.Context, d Draft) (res *Reservation, created bool, err error)
	Get(ctx context.Context, id string) (*Reservation, error)
	GetByCode(ctx context.Context, code string) (*Reservation, error)
	List(ctx context.Context, f ListFilter) ([]Reservation, int, error)
	// Mutate locks the reservation, applies fn, re-checks capacity when the status starts
	// holding inventory, assigns rooms when asked and records the change.
	Mutate(ctx context.Context, id, actor string, fn func(r *Reservation) (Change, error)) (*Reservation, error)
	// DueNoShows returns ids of CONFIRMED reservations whose check-in is before cutoff.
	DueNoShows(ctx context.Context, cutoff stay.Date, limit int) ([]string, error)
	Events(ctx context.Context, reservationID string) ([]events.Event, error)
	EventsSince(ctx context.Context, since time.Time, limit int) ([]events.Event, error)
}
