package stay

import (
	"encoding/json"
	"testing"
)

func TestRange_DatesAreHalfOpen(t *testing.T) {
	r, err := ParseRange("2026-03-01", "2026-03-03")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := r.Dates()
	if len(got) != 2 {
		t.Fatalf("expected 2 nights, got %d", len(got))
	}
	if got[0].String() != "2026-03-01" || got[1].String() != "2026-03-02" {
		t.Fatalf("unexpected dates: %v", got)
	}
	if r.Contains(MustParseDate("2026-03-03")) {
		t.Fatalf("check-out date must not be covered")
	}
}

func TestRange_ZeroAndInverted(t *testing.T) {
	zero := Range{From: MustParseDate("2026-03-01"), To: MustParseDate("2026-03-01")}
	if !zero.Empty() || zero.Nights() != 0 || len(zero.Dates()) != 0 {
		t.Fatalf("zero-night range should be empty")
	}
	inv := Range{From: MustParseDate("2026-03-05"), To: MustParseDate("2026-03-01")}
	if !inv.Inverted() || inv.Nights() != 0 {
		t.Fatalf("inverted range should report no nights")
	}
}

func TestRange_Overlaps(t *testing.T) {
	a := Range{From: MustParseDate("2026-03-01"), To: MustParseDate("2026-03-03")}
	back := Range{From: MustParseDate("2026-03-03"), To: MustParseDate("2026-03-05")}
	if a.Overlaps(back) {
		t.Fatalf("back-to-back stays must not overlap")
	}
	inside := Range{From: MustParseDate("2026-03-02"), To: MustParseDate("2026-03-04")}
	if !a.Overlaps(inside) || !inside.Overlaps(a) {
		t.Fatalf("expected overlap")
	}
}

func TestDate_JSON(t *testing.T) {
	var v struct {
		D Date `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2026-02-28"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.D.AddDays(1).String() != "2026-03-01" {
		t.Fatalf("unexpected next day: %s", v.D.AddDays(1))
	}
	if err := json.Unmarshal([]byte(`{"d":"03/01/2026"}`), &v); err == nil {
		t.Fatalf("expected error for non-ISO date")
	}
}
