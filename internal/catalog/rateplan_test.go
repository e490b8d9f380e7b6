package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"hotelsuite/internal/apperr"
	"hotelsuite/internal/stay"
)

func rng(from, to string) stay.Range {
	return stay.Range{From: stay.MustParseDate(from), To: stay.MustParseDate(to)}
}

func TestIsEligible_RoomTypeScope(t *testing.T) {
	p := RatePlan{ID: "p", RoomTypeID: "suite", Active: true, MinNights: 1, NightlyRate: decimal.NewFromInt(100)}
	if IsEligible(p, "deluxe", rng("2026-03-01", "2026-03-03")) {
		t.Fatalf("plan scoped to suite must not price deluxe")
	}
	if !IsEligible(p, "suite", rng("2026-03-01", "2026-03-03")) {
		t.Fatalf("expected suite to be eligible")
	}
	p.RoomTypeID = ""
	if !IsEligible(p, "deluxe", rng("2026-03-01", "2026-03-03")) {
		t.Fatalf("unscoped plan should apply to every room type")
	}
}

func TestIsEligible_WindowAndMinNights(t *testing.T) {
	p := RatePlan{
		Active:    true,
		MinNights: 2,
		ValidFrom: stay.MustParseDate("2026-03-01"),
		ValidTo:   stay.MustParseDate("2026-04-01"),
	}
	cases := []struct {
		name string
		r    stay.Range
		want bool
	}{
		{"inside", rng("2026-03-10", "2026-03-12"), true},
		{"ends on validTo", rng("2026-03-30", "2026-04-01"), true},
		{"crosses validTo", rng("2026-03-31", "2026-04-02"), false},
		{"starts before validFrom", rng("2026-02-28", "2026-03-02"), false},
		{"too short", rng("2026-03-10", "2026-03-11"), false},
		{"zero nights", rng("2026-03-10", "2026-03-10"), false},
	}
	for _, tc := range cases {
		if got := IsEligible(p, "any", tc.r); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	p.Active = false
	if IsEligible(p, "any", rng("2026-03-10", "2026-03-12")) {
		t.Fatalf("inactive plan must not be eligible")
	}
}

func TestQuote_RoundsToCents(t *testing.T) {
	p := RatePlan{ID: "p", Code: "FLEX", NightlyRate: decimal.RequireFromString("99.995"), Currency: "USD"}
	o := Quote(p, rng("2026-03-01", "2026-03-04"), 2)
	if o.NightlyRate != "100.00" {
		t.Fatalf("expected nightly 100.00, got %s", o.NightlyRate)
	}
	if o.TotalPrice != "600.00" {
		t.Fatalf("expected total 600.00, got %s", o.TotalPrice)
	}
	if o.Nights != 3 {
		t.Fatalf("expected 3 nights, got %d", o.Nights)
	}
}

func TestResolver_StaleSelectionRejected(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	if err := Seed(ctx, mem, DemoSeed()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	res := Resolver{Store: mem}

	// Suite breakfast plan was valid for the suite, then the guest switched to deluxe.
	_, err := res.Resolve(ctx, DemoPropertyID, DemoDeluxeID, DemoSuiteBBPlanID, rng("2026-03-01", "2026-03-03"), 1)
	if apperr.CodeOf(err) != "RATE_PLAN_NOT_ELIGIBLE" {
		t.Fatalf("expected RATE_PLAN_NOT_ELIGIBLE, got %v", err)
	}

	// Saver needs two nights.
	_, err = res.Resolve(ctx, DemoPropertyID, DemoDeluxeID, DemoSaverPlanID, rng("2026-03-01", "2026-03-02"), 1)
	if apperr.CodeOf(err) != "RATE_PLAN_NOT_ELIGIBLE" {
		t.Fatalf("expected RATE_PLAN_NOT_ELIGIBLE for short stay, got %v", err)
	}

	offers, err := res.Eligible(ctx, DemoPropertyID, DemoSuiteID, rng("2026-03-01", "2026-03-03"), 1)
	if err != nil {
		t.Fatalf("eligible: %v", err)
	}
	if len(offers) != 3 {
		t.Fatalf("expected 3 suite offers, got %d", len(offers))
	}
	if offers[0].Code != "SAVER" {
		t.Fatalf("expected cheapest first, got %s", offers[0].Code)
	}

	_, err = res.Eligible(ctx, DemoPropertyID, "missing", rng("2026-03-01", "2026-03-03"), 1)
	if apperr.CodeOf(err) != "UNKNOWN_ROOM_TYPE" {
		t.Fatalf("expected UNKNOWN_ROOM_TYPE, got %v", err)
	}
}
