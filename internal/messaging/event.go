// Package messaging publishes reservation lifecycle messages to a RabbitMQ topic exchange
// and consumes them for guest notifications.
package messaging

import (
	"context"
	"strings"
	"time"
)

// ReservationEvent is the body of every lifecycle message.
type ReservationEvent struct {
	Type          string    `json:"type"`
	ReservationID string    `json:"reservationId"`
	Code          string    `json:"code"`
	PropertyID    string    `json:"propertyId"`
	Status        string    `json:"status"`
	Channel       string    `json:"channel"`
	CheckInDate   string    `json:"checkInDate"`
	CheckOutDate  string    `json:"checkOutDate"`
	GuestName     string    `json:"guestName"`
	GuestEmail    string    `json:"guestEmail"`
	Actor         string    `json:"actor"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// RoutingKey derives "reservation.<status>" from a status such as CHECKED_IN.
func RoutingKey(status string) string {
	return "reservation." + strings.ToLower(status)
}

type Publisher interface {
	Publish(ctx context.Context, ev ReservationEvent) error
}

// NoopPublisher drops every message. Used when RABBITMQ_URL is unset.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ReservationEvent) error { return nil }
