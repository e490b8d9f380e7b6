package messaging

import (
	"context"
	"fmt"

	"hotelsuite/internal/logger"
)

// Notification is the guest-facing message rendered from a lifecycle event.
type Notification struct {
	To      string
	Subject string
	Body    string
}

// Render maps a lifecycle event to a guest notification. ok is false for event types that
// do not notify the guest.
func Render(ev ReservationEvent) (n Notification, ok bool) {
	if ev.GuestEmail == "" {
		return Notification{}, false
	}
	n.To = ev.GuestEmail
	stay := fmt.Sprintf("%s to %s", ev.CheckInDate, ev.CheckOutDate)
	switch ev.Type {
	case RoutingKey("CONFIRMED"):
		n.Subject = "Reservation " + ev.Code + " confirmed"
		n.Body = fmt.Sprintf("Hello %s, your stay %s is confirmed. Your confirmation code is %s.", ev.GuestName, stay, ev.Code)
	case RoutingKey("PENDING"):
		n.Subject = "Reservation " + ev.Code + " received"
		n.Body = fmt.Sprintf("Hello %s, we received your request for %s and will confirm it shortly.", ev.GuestName, stay)
	case RoutingKey("CANCELLED"):
		n.Subject = "Reservation " + ev.Code + " cancelled"
		n.Body = fmt.Sprintf("Hello %s, your reservation %s for %s has been cancelled.", ev.GuestName, ev.Code, stay)
	case RoutingKey("CHECKED_OUT"):
		n.Subject = "Thank you for staying with us"
		n.Body = fmt.Sprintf("Hello %s, you checked out of reservation %s. We hope to see you again.", ev.GuestName, ev.Code)
	default:
		return Notification{}, false
	}
	return n, true
}

// LogNotifier is the default notification sink: it writes the rendered message to the log.
func LogNotifier(ctx context.Context, ev ReservationEvent) error {
	n, ok := Render(ev)
	if !ok {
		return nil
	}
	logger.FromContext(ctx).Info("guest notification",
		"to", n.To, "subject", n.Subject, "body", n.Body, "reservation_id", ev.ReservationID)
	return nil
}
