package availability

import (
	"context"

	"hotelsuite/internal/apperr"
	"hotelsuite/internal/catalog"
	"hotelsuite/internal/logger"
	"hotelsuite/internal/stay"
)

// HoldSource lists inventory holds of a property that overlap rng.
type HoldSource interface {
	Holds(ctx context.Context, propertyID string, rng stay.Range) ([]Hold, error)
}

type Matrix struct {
	PropertyID string                 `json:"propertyId"`
	From       stay.Date              `json:"from"`
	To         stay.Date              `json:"to"`
	RoomTypes  []RoomTypeAvailability `json:"roomTypes"`
}

type Query struct {
	PropertyID string
	Range      stay.Range
	RoomTypeID string
}

type Service struct {
	Catalog catalog.Store
	Holds   HoldSource
	Cache   Cache
	MaxDays int
}

func (s *Service) Query(ctx context.Context, q Query) (*Matrix, error) {
	if q.Range.Inverted() {
		return nil, apperr.Validation("INVALID_DATE_RANGE", "to must not be before from")
	}
	if s.MaxDays > 0 && q.Range.Nights() > s.MaxDays {
		return nil, apperr.Validation("RANGE_TOO_LONG", "availability range is too long")
	}
	if _, err := s.Catalog.GetProperty(ctx, q.PropertyID); err != nil {
		return nil, err
	}

	cached, slot, ok := s.cache().Get(ctx, q)
	if ok {
		return cached, nil
	}

	roomTypes, err := s.Catalog.ListRoomTypes(ctx, q.PropertyID)
	if err != nil {
		return nil, err
	}
	if q.RoomTypeID != "" {
		roomTypes = filterRoomType(roomTypes, q.RoomTypeID)
		if len(roomTypes) == 0 {
			return nil, apperr.Validation("UNKNOWN_ROOM_TYPE", "room type does not belong to property")
		}
	}

	var holds []Hold
	if !q.Range.Empty() {
		if holds, err = s.Holds.Holds(ctx, q.PropertyID, q.Range); err != nil {
			return nil, err
		}
	}

	m := &Matrix{
		PropertyID: q.PropertyID,
		From:       q.Range.From,
		To:         q.Range.To,
		RoomTypes:  make([]RoomTypeAvailability, 0, len(roomTypes)),
	}
	for _, rt := range roomTypes {
		m.RoomTypes = append(m.RoomTypes, Compute(rt, q.Range, holds))
	}

	s.cache().Set(ctx, slot, m)
	return m, nil
}

// Invalidate drops cached matrices of a property after its reservations change.
func (s *Service) Invalidate(ctx context.Context, propertyID string) {
	if err := s.cache().Invalidate(ctx, propertyID); err != nil {
		logger.FromContext(ctx).Warn("availability cache invalidation failed",
			"property_id", propertyID, "error", err)
	}
}

func (s *Service) cache() Cache {
	if s.Cache == nil {
		return NoCache{}
	}
	return s.Cache
}

func filterRoomType(in []catalog.RoomType, id string) []catalog.RoomType {
	for _, rt := range in {
		if rt.ID == id {
			return []catalog.RoomType{rt}
		}
	}
	return nil
}
