package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "reservation.checked_in", RoutingKey("CHECKED_IN"))
	assert.Equal(t, "reservation.no_show", RoutingKey("NO_SHOW"))
}

func TestRender(t *testing.T) {
	ev := ReservationEvent{
		Type:         RoutingKey("CONFIRMED"),
		Code:         "HX7K2M9Q",
		CheckInDate:  "2026-03-01",
		CheckOutDate: "2026-03-03",
		GuestName:    "Ada Lovelace",
		GuestEmail:   "ada@example.com",
	}
	n, ok := Render(ev)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", n.To)
	assert.Contains(t, n.Subject, "HX7K2M9Q")
	assert.Contains(t, n.Body, "2026-03-01 to 2026-03-03")

	ev.Type = RoutingKey("CHECKED_IN")
	_, ok = Render(ev)
	assert.False(t, ok, "check-in does not notify")

	ev.Type = RoutingKey("CANCELLED")
	ev.GuestEmail = ""
	_, ok = Render(ev)
	assert.False(t, ok, "no recipient")
}
