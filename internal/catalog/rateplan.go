package catalog

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"hotelsuite/internal/apperr"
	"hotelsuite/internal/stay"
)

const currencyScale = 2

// Offer is a rate plan priced for a concrete room type, date range and room count.
type Offer struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Code              string `json:"code"`
	Refundable        bool   `json:"refundable"`
	IncludesBreakfast bool   `json:"includesBreakfast"`
	NightlyRate       string `json:"nightlyRate"`
	Currency          string `json:"currency"`
	Nights            int    `json:"nights"`
	TotalPrice        string `json:"totalPrice"`

	Total decimal.Decimal `json:"-"`
}

// IsEligible reports whether p can price roomTypeID for every night of rng.
func IsEligible(p RatePlan, roomTypeID string, rng stay.Range) bool {
	if !p.Active || rng.Empty() {
		return false
	}
	if p.RoomTypeID != "" && p.RoomTypeID != roomTypeID {
		return false
	}
	minNights := p.MinNights
	if minNights < 1 {
		minNights = 1
	}
	if rng.Nights() < minNights {
		return false
	}
	if !p.ValidFrom.IsZero() && rng.From.Before(p.ValidFrom) {
		return false
	}
	if !p.ValidTo.IsZero() && rng.To.After(p.ValidTo) {
		return false
	}
	return true
}

// Quote prices units rooms for every night of rng, rounded to the currency scale.
func Quote(p RatePlan, rng stay.Range, units int) Offer {
	if units < 1 {
		units = 1
	}
	nightly := p.NightlyRate.Round(currencyScale)
	total := nightly.Mul(decimal.NewFromInt(int64(rng.Nights()))).
		Mul(decimal.NewFromInt(int64(units))).
		Round(currencyScale)
	return Offer{
		ID:                p.ID,
		Name:              p.Name,
		Code:              p.Code,
		Refundable:        p.Refundable,
		IncludesBreakfast: p.IncludesBreakfast,
		NightlyRate:       nightly.StringFixed(currencyScale),
		Currency:          p.Currency,
		Nights:            rng.Nights(),
		TotalPrice:        total.StringFixed(currencyScale),
		Total:             total,
	}
}

// Resolver answers "which rate plans can sell this room type for these dates".
type Resolver struct {
	Store Store
}

func (r Resolver) RoomType(ctx context.Context, propertyID, roomTypeID string) (*RoomType, error) {
	rt, err := r.Store.GetRoomType(ctx, roomTypeID)
	if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}
	if rt == nil || rt.PropertyID != propertyID {
		return nil, apperr.Validation("UNKNOWN_ROOM_TYPE", "room type does not belong to property")
	}
	return rt, nil
}

// Eligible lists the offers for roomTypeID over rng, cheapest first.
func (r Resolver) Eligible(ctx context.Context, propertyID, roomTypeID string, rng stay.Range, units int) ([]Offer, error) {
	if rng.Empty() {
		return nil, apperr.Validation("INVALID_DATE_RANGE", "to must be after from")
	}
	if _, err := r.RoomType(ctx, propertyID, roomTypeID); err != nil {
		return nil, err
	}
	plans, err := r.Store.ListRatePlans(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	out := []Offer{}
	for _, p := range plans {
		if IsEligible(p, roomTypeID, rng) {
			out = append(out, Quote(p, rng, units))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.LessThan(out[j].Total)
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

// Resolve checks that ratePlanID is one of the eligible plans for the exact selection.
func (r Resolver) Resolve(ctx context.Context, propertyID, roomTypeID, ratePlanID string, rng stay.Range, units int) (*Offer, error) {
	p, err := r.Store.GetRatePlan(ctx, ratePlanID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Validation("RATE_PLAN_NOT_ELIGIBLE", "rate plan not found")
		}
		return nil, err
	}
	if p.PropertyID != propertyID || !IsEligible(*p, roomTypeID, rng) {
		return nil, apperr.Validation("RATE_PLAN_NOT_ELIGIBLE", "rate plan is not available for this room type and dates")
	}
	o := Quote(*p, rng, units)
	return &o, nil
}
