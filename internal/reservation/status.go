package reservation

import (
	"fmt"

	"hotelsuite/internal/apperr"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusCheckedIn  Status = "CHECKED_IN"
	StatusCheckedOut Status = "CHECKED_OUT"
	StatusCancelled  Status = "CANCELLED"
	StatusNoShow     Status = "NO_SHOW"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled, StatusNoShow:
		return Status(s), nil
	default:
		return "", apperr.Validation("VALIDATION_FAILED", fmt.Sprintf("unknown status: %s", s))
	}
}

// HoldsInventory reports whether a reservation in this status occupies its room types for
// every night of its stay.
func (s Status) HoldsInventory() bool {
	return s == StatusConfirmed || s == StatusCheckedIn
}

// Terminal statuses accept no further transitions and no edits.
func (s Status) Terminal() bool {
	return s == StatusCheckedOut || s == StatusCancelled || s == StatusNoShow
}

type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionCheckIn  Action = "check-in"
	ActionCheckOut Action = "check-out"
	ActionCancel   Action = "cancel"
	ActionNoShow   Action = "no-show"
)

var actionOrder = []Action{ActionConfirm, ActionCheckIn, ActionCheckOut, ActionCancel, ActionNoShow}

var transitions = map[Status]map[Action]Status{
	StatusPending: {
		ActionConfirm: StatusConfirmed,
		ActionCancel:  StatusCancelled,
	},
	StatusConfirmed: {
		ActionCheckIn: StatusCheckedIn,
		ActionCancel:  StatusCancelled,
		ActionNoShow:  StatusNoShow,
	},
	StatusCheckedIn: {
		ActionCheckOut: StatusCheckedOut,
		ActionCancel:   StatusCancelled,
	},
	StatusCheckedOut: {},
	StatusCancelled:  {},
	StatusNoShow:     {},
}

// Next returns the status reached by applying action in from. Anything outside the
// transition table is an INVALID_STATE_TRANSITION conflict.
func Next(from Status, action Action) (Status, error) {
	if to, ok := transitions[from][action]; ok {
		return to, nil
	}
	return "", apperr.Conflict("INVALID_STATE_TRANSITION",
		fmt.Sprintf("cannot %s a reservation that is %s", action, from))
}

// AllowedActions lists the actions valid in status, in a stable order.
func AllowedActions(status Status) []Action {
	out := []Action{}
	for _, a := range actionOrder {
		if _, ok := transitions[status][a]; ok {
			out = append(out, a)
		}
	}
	return out
}

func eventType(a Action) string {
	switch a {
	case ActionConfirm:
		return "CONFIRMED"
	case ActionCheckIn:
		return "CHECKED_IN"
	case ActionCheckOut:
		return "CHECKED_OUT"
	case ActionCancel:
		return "CANCELLED"
	case ActionNoShow:
		return "NO_SHOW"
	default:
		return "STATUS_CHANGED"
	}
}
