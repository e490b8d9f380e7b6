package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// SeedData is a complete catalog for one or more properties.
type SeedData struct {
	Properties []Property
	RoomTypes  []RoomType
	Rooms      []Room
	RatePlans  []RatePlan
}

// Seed writes data through w in dependency order.
func Seed(ctx context.Context, w Writer, data SeedData) error {
	for _, p := range data.Properties {
		if err := w.UpsertProperty(ctx, p); err != nil {
			return fmt.Errorf("property %s: %w", p.Code, err)
		}
	}
	for _, rt := range data.RoomTypes {
		if err := w.UpsertRoomType(ctx, rt); err != nil {
			return fmt.Errorf("room type %s: %w", rt.Code, err)
		}
	}
	for _, rm := range data.Rooms {
		if err := w.UpsertRoom(ctx, rm); err != nil {
			return fmt.Errorf("room %s: %w", rm.Number, err)
		}
	}
	for _, p := range data.RatePlans {
		if err := w.UpsertRatePlan(ctx, p); err != nil {
			return fmt.Errorf("rate plan %s: %w", p.Code, err)
		}
	}
	return nil
}

// Fixed ids of the demo catalog so local tools can refer to them.
const (
	DemoPropertyID    = "8f0c2a4e-0d6b-4a53-9a51-2f1f6f1d0001"
	DemoDeluxeID      = "8f0c2a4e-0d6b-4a53-9a51-2f1f6f1d0101"
	DemoSuiteID       = "8f0c2a4e-0d6b-4a53-9a51-2f1f6f1d0102"
	DemoStandardID    = "8f0c2a4e-0d6b-4a53-9a51-2f1f6f1d0103"
	DemoFlexPlanID    = "8f0c2a4e-0d6b-4a53-9a51-2f1f6f1d0201"
	DemoSaverPlanID   = "8f0c2a4e-0d6b-4a53-9a51-2f1f6f1d0202"
	DemoSuiteBBPlanID = "8f0c2a4e-0d6b-4a53-9a51-2f1f6f1d0203"
)

// DemoSeed is a small harbour hotel used by the memory driver and cmd/dev/seed.
func DemoSeed() SeedData {
	data := SeedData{
		Properties: []Property{
			{ID: DemoPropertyID, Code: "HARBOUR", Name: "Harbour View Hotel", Currency: "USD"},
		},
		RoomTypes: []RoomType{
			{ID: DemoStandardID, PropertyID: DemoPropertyID, Code: "STD", Name: "Standard Queen",
				Description: "Queen bed, courtyard view", TotalRooms: 4, MaxOccupancy: 2},
			{ID: DemoDeluxeID, PropertyID: DemoPropertyID, Code: "DLX", Name: "Deluxe King",
				Description: "King bed with harbour view and balcony", TotalRooms: 3, MaxOccupancy: 3},
			{ID: DemoSuiteID, PropertyID: DemoPropertyID, Code: "STE", Name: "Harbour Suite",
				Description: "Separate living room, two bathrooms, panoramic harbour view", TotalRooms: 1, MaxOccupancy: 4},
		},
		RatePlans: []RatePlan{
			{ID: DemoFlexPlanID, PropertyID: DemoPropertyID, Code: "FLEX", Name: "Flexible",
				Refundable: true, NightlyRate: decimal.RequireFromString("189.00"), Currency: "USD", MinNights: 1, Active: true},
			{ID: DemoSaverPlanID, PropertyID: DemoPropertyID, Code: "SAVER", Name: "Advance Saver",
				Refundable: false, NightlyRate: decimal.RequireFromString("159.00"), Currency: "USD", MinNights: 2, Active: true},
			{ID: DemoSuiteBBPlanID, PropertyID: DemoPropertyID, RoomTypeID: DemoSuiteID, Code: "STE-BB", Name: "Suite with Breakfast",
				Refundable: true, IncludesBreakfast: true, NightlyRate: decimal.RequireFromString("420.00"), Currency: "USD", MinNights: 1, Active: true},
		},
	}

	n := 0
	for _, rt := range data.RoomTypes {
		for i := 1; i <= rt.TotalRooms; i++ {
			n++
			data.Rooms = append(data.Rooms, Room{
				ID:         fmt.Sprintf("8f0c2a4e-0d6b-4a53-9a51-2f1f6f1d1%03d", n),
				RoomTypeID: rt.ID,
				Number:     fmt.Sprintf("%s-%d", rt.Code, 100+i),
			})
		}
	}
	return data
}
