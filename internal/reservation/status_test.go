package reservation

import (
	"reflect"
	"testing"

	"hotelsuite/internal/apperr"
)

func TestNext_TransitionTable(t *testing.T) {
	all := []Action{ActionConfirm, ActionCheckIn, ActionCheckOut, ActionCancel, ActionNoShow}
	want := map[Status]map[Action]Status{
		StatusPending:    {ActionConfirm: StatusConfirmed, ActionCancel: StatusCancelled},
		StatusConfirmed:  {ActionCheckIn: StatusCheckedIn, ActionCancel: StatusCancelled, ActionNoShow: StatusNoShow},
		StatusCheckedIn:  {ActionCheckOut: StatusCheckedOut, ActionCancel: StatusCancelled},
		StatusCheckedOut: {},
		StatusCancelled:  {},
		StatusNoShow:     {},
	}

	for from, allowed := range want {
		for _, a := range all {
			got, err := Next(from, a)
			if to, ok := allowed[a]; ok {
				if err != nil || got != to {
					t.Fatalf("%s + %s: expected %s, got %s (%v)", from, a, to, got, err)
				}
				continue
			}
			if apperr.CodeOf(err) != "INVALID_STATE_TRANSITION" {
				t.Fatalf("%s + %s: expected INVALID_STATE_TRANSITION, got %v", from, a, err)
			}
			if apperr.KindOf(err) != apperr.KindConflict {
				t.Fatalf("%s + %s: expected conflict kind, got %s", from, a, apperr.KindOf(err))
			}
		}
	}
}

func TestAllowedActions(t *testing.T) {
	cases := map[Status][]Action{
		StatusPending:    {ActionConfirm, ActionCancel},
		StatusConfirmed:  {ActionCheckIn, ActionCancel, ActionNoShow},
		StatusCheckedIn:  {ActionCheckOut, ActionCancel},
		StatusCheckedOut: {},
		StatusCancelled:  {},
		StatusNoShow:     {},
	}
	for s, want := range cases {
		if got := AllowedActions(s); !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: expected %v, got %v", s, want, got)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	if !StatusConfirmed.HoldsInventory() || !StatusCheckedIn.HoldsInventory() {
		t.Fatalf("confirmed and checked-in stays hold inventory")
	}
	for _, s := range []Status{StatusPending, StatusCheckedOut, StatusCancelled, StatusNoShow} {
		if s.HoldsInventory() {
			t.Fatalf("%s must not hold inventory", s)
		}
	}
	for _, s := range []Status{StatusCheckedOut, StatusCancelled, StatusNoShow} {
		if !s.Terminal() {
			t.Fatalf("%s is terminal", s)
		}
	}
	if _, err := ParseStatus("BOOKED"); err == nil {
		t.Fatalf("expected unknown status error")
	}
}
