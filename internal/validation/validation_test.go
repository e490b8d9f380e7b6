package validation

import (
	"testing"

	"hotelsuite/internal/apperr"
)

type guest struct {
	FirstName string `json:"firstName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
}

type booking struct {
	Adults int   `json:"adults" validate:"gte=1"`
	Guest  guest `json:"guest"`
}

func TestStruct_ReportsJSONFieldPath(t *testing.T) {
	err := Struct(booking{Adults: 1, Guest: guest{FirstName: "Ada", Email: "not-an-email"}})
	e := apperr.As(err)
	if e == nil || e.Kind != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if e.Message != "guest.email must be a valid email" {
		t.Fatalf("unexpected message %q", e.Message)
	}
}

func TestStruct_Valid(t *testing.T) {
	if err := Struct(booking{Adults: 2, Guest: guest{FirstName: "Ada", Email: "ada@example.com"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Struct(booking{Adults: 0, Guest: guest{FirstName: "Ada", Email: "ada@example.com"}}); err == nil {
		t.Fatalf("expected adults error")
	}
}
