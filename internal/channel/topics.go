package channel

import "strings"

const (
	TopicReservationCreate = "reservation_create"
	TopicReservationCancel = "reservation_cancel"
)

// NormalizeTopic maps the spellings partners use ("reservation.create", "Reservation/Create",
// "reservation-create") to one internal form.
func NormalizeTopic(topic string) string {
	t := strings.TrimSpace(strings.ToLower(topic))
	t = strings.ReplaceAll(t, "/", "_")
	t = strings.ReplaceAll(t, ".", "_")
	t = strings.ReplaceAll(t, "-", "_")
	for strings.Contains(t, "__") {
		t = strings.ReplaceAll(t, "__", "_")
	}
	return strings.Trim(t, "_")
}
