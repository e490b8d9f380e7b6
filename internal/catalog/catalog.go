// Package catalog holds the sellable inventory of a property: room types, physical rooms
// and the rate plans that price them.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"

	"hotelsuite/internal/stay"
)

type Property struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type RoomType struct {
	ID           string `json:"id"`
	PropertyID   string `json:"propertyId"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	TotalRooms   int    `json:"totalRooms"`
	MaxOccupancy int    `json:"maxOccupancy"`
}

type Room struct {
	ID           string `json:"id"`
	RoomTypeID   string `json:"roomTypeId"`
	Number       string `json:"number"`
	OutOfService bool   `json:"outOfService"`
}

// RatePlan prices a stay. An empty RoomTypeID applies to every room type of the property.
// ValidFrom/ValidTo bound the stay dates; zero values mean unbounded and ValidTo is exclusive.
type RatePlan struct {
	ID                string
	PropertyID        string
	RoomTypeID        string
	Code              string
	Name              string
	Refundable        bool
	IncludesBreakfast bool
	NightlyRate       decimal.Decimal
	Currency          string
	MinNights         int
	ValidFrom         stay.Date
	ValidTo           stay.Date
	Active            bool
}

// Store is the read side used by request handling.
type Store interface {
	GetProperty(ctx context.Context, id string) (*Property, error)
	ListRoomTypes(ctx context.Context, propertyID string) ([]RoomType, error)
	ListAllRoomTypes(ctx context.Context) ([]RoomType, error)
	GetRoomType(ctx context.Context, id string) (*RoomType, error)
	ListRooms(ctx context.Context, roomTypeID string) ([]Room, error)
	ListRatePlans(ctx context.Context, propertyID string) ([]RatePlan, error)
	GetRatePlan(ctx context.Context, id string) (*RatePlan, error)
}

// Writer upserts catalog rows by id; used by seeding.
type Writer interface {
	UpsertProperty(ctx context.Context, p Property) error
	UpsertRoomType(ctx context.Context, rt RoomType) error
	UpsertRoom(ctx context.Context, rm Room) error
	UpsertRatePlan(ctx context.Context, rp RatePlan) error
}
