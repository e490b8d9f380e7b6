package availability

import (
	"context"
	"testing"

	"hotelsuite/internal/apperr"
	"hotelsuite/internal/catalog"
	"hotelsuite/internal/stay"
)

func r(from, to string) stay.Range {
	return stay.Range{From: stay.MustParseDate(from), To: stay.MustParseDate(to)}
}

func TestCompute_ReservedPlusAvailableEqualsTotal(t *testing.T) {
	rt := catalog.RoomType{ID: "dlx", Code: "DLX", Name: "Deluxe", TotalRooms: 3}
	holds := []Hold{
		{RoomTypeID: "dlx", Stay: r("2026-03-01", "2026-03-04"), Units: 1},
		{RoomTypeID: "dlx", Stay: r("2026-03-02", "2026-03-03"), Units: 2},
		{RoomTypeID: "dlx", Stay: r("2026-03-02", "2026-03-05"), Units: 1}, // overbooked on the 2nd
		{RoomTypeID: "std", Stay: r("2026-03-01", "2026-03-05"), Units: 4},
	}

	got := Compute(rt, r("2026-02-28", "2026-03-06"), holds)
	if len(got.Dates) != 7 {
		t.Fatalf("expected 7 dates, got %d", len(got.Dates))
	}
	want := map[string]int{
		"2026-02-28": 0, "2026-03-01": 1, "2026-03-02": 3, "2026-03-03": 2,
		"2026-03-04": 1, "2026-03-05": 0,
	}
	for _, d := range got.Dates {
		if d.Reserved+d.Available != got.TotalRooms {
			t.Fatalf("%s: reserved %d + available %d != total %d", d.Date, d.Reserved, d.Available, got.TotalRooms)
		}
		if d.Available < 0 {
			t.Fatalf("%s: negative availability", d.Date)
		}
		if w, ok := want[d.Date.String()]; ok && d.Reserved != w {
			t.Fatalf("%s: expected reserved %d, got %d", d.Date, w, d.Reserved)
		}
	}
}

func TestCompute_ZeroTotalRooms(t *testing.T) {
	rt := catalog.RoomType{ID: "closed", TotalRooms: 0}
	got := Compute(rt, r("2026-03-01", "2026-03-03"), []Hold{{RoomTypeID: "closed", Stay: r("2026-03-01", "2026-03-02"), Units: 1}})
	for _, d := range got.Dates {
		if d.Available != 0 || d.Reserved != 0 {
			t.Fatalf("%s: expected 0/0, got reserved=%d available=%d", d.Date, d.Reserved, d.Available)
		}
		if d.Band() != "full" {
			t.Fatalf("expected full band, got %s", d.Band())
		}
	}
}

func TestCompute_ZeroNightRange(t *testing.T) {
	rt := catalog.RoomType{ID: "dlx", TotalRooms: 2}
	got := Compute(rt, r("2026-03-01", "2026-03-01"), nil)
	if got.Dates == nil || len(got.Dates) != 0 {
		t.Fatalf("expected empty non-nil dates, got %#v", got.Dates)
	}
}

func TestCheckCapacity_LastUnit(t *testing.T) {
	rt := catalog.RoomType{ID: "ste", Name: "Suite", TotalRooms: 1}
	stayRange := r("2026-03-01", "2026-03-03")
	if err := CheckCapacity(rt, stayRange, nil, 1); err != nil {
		t.Fatalf("first booking should fit: %v", err)
	}
	holds := []Hold{{RoomTypeID: "ste", Stay: stayRange, Units: 1}}
	err := CheckCapacity(rt, stayRange, holds, 1)
	if apperr.KindOf(err) != apperr.KindConflict || apperr.CodeOf(err) != "SOLD_OUT" {
		t.Fatalf("expected SOLD_OUT conflict, got %v", err)
	}
	if err := CheckCapacity(rt, r("2026-03-03", "2026-03-05"), holds, 1); err != nil {
		t.Fatalf("back-to-back stay should fit: %v", err)
	}
}

func TestBand(t *testing.T) {
	cases := []struct {
		d    DateCount
		want string
	}{
		{DateCount{Reserved: 0, Available: 3}, "open"},
		{DateCount{Reserved: 1, Available: 2}, "partial"},
		{DateCount{Reserved: 3, Available: 0}, "full"},
	}
	for _, tc := range cases {
		if got := tc.d.Band(); got != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, got)
		}
	}
}

type staticHolds []Hold

func (s staticHolds) Holds(context.Context, string, stay.Range) ([]Hold, error) { return s, nil }

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	mem := catalog.NewMemory()
	if err := catalog.Seed(ctx, mem, catalog.DemoSeed()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := &Service{
		Catalog: mem,
		Holds:   staticHolds{{RoomTypeID: catalog.DemoSuiteID, Stay: r("2026-03-01", "2026-03-03"), Units: 1}},
		MaxDays: 31,
	}

	m, err := svc.Query(ctx, Query{PropertyID: catalog.DemoPropertyID, Range: r("2026-03-01", "2026-03-03"), RoomTypeID: catalog.DemoSuiteID})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(m.RoomTypes) != 1 || m.RoomTypes[0].Dates[0].Available != 0 {
		t.Fatalf("expected suite sold out, got %+v", m.RoomTypes)
	}

	m, err = svc.Query(ctx, Query{PropertyID: catalog.DemoPropertyID, Range: r("2026-03-01", "2026-03-01")})
	if err != nil {
		t.Fatalf("zero-night query should succeed: %v", err)
	}
	if len(m.RoomTypes) != 3 {
		t.Fatalf("expected all room types, got %d", len(m.RoomTypes))
	}
	for _, rt := range m.RoomTypes {
		if len(rt.Dates) != 0 {
			t.Fatalf("expected no dates for zero-night range")
		}
	}

	_, err = svc.Query(ctx, Query{PropertyID: catalog.DemoPropertyID, Range: r("2026-03-05", "2026-03-01")})
	if apperr.CodeOf(err) != "INVALID_DATE_RANGE" {
		t.Fatalf("expected INVALID_DATE_RANGE, got %v", err)
	}
	_, err = svc.Query(ctx, Query{PropertyID: catalog.DemoPropertyID, Range: r("2026-03-01", "2026-06-01")})
	if apperr.CodeOf(err) != "RANGE_TOO_LONG" {
		t.Fatalf("expected RANGE_TOO_LONG, got %v", err)
	}
	_, err = svc.Query(ctx, Query{PropertyID: "nope", Range: r("2026-03-01", "2026-03-02")})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
