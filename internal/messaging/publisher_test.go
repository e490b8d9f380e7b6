package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	exchange   string
	routingKey string
	msg        amqp.Publishing
}

type fakeBroker struct {
	mu       sync.Mutex
	dials    int
	failDial int // dials that fail before one succeeds
	failSend int // publishes that fail before one succeeds
	sent     []sentMessage
	closed   int
}

func (b *fakeBroker) dial(string, string) (link, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dials++
	if b.failDial > 0 {
		b.failDial--
		return nil, errors.New("connection refused")
	}
	return &fakeLink{broker: b}, nil
}

func (b *fakeBroker) messages() []sentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]sentMessage(nil), b.sent...)
}

func (b *fakeBroker) dialCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

type fakeLink struct {
	broker *fakeBroker
}

func (l *fakeLink) publish(_ context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	l.broker.mu.Lock()
	defer l.broker.mu.Unlock()
	if l.broker.failSend > 0 {
		l.broker.failSend--
		return amqp.ErrClosed
	}
	l.broker.sent = append(l.broker.sent, sentMessage{exchange, routingKey, msg})
	return nil
}

func (l *fakeLink) close() {
	l.broker.mu.Lock()
	defer l.broker.mu.Unlock()
	l.broker.closed++
}

func event(id, status string) ReservationEvent {
	return ReservationEvent{Type: RoutingKey(status), ReservationID: id, Status: status}
}

func TestAMQPPublisher_PublishNeverWaitsForBroker(t *testing.T) {
	dialing := make(chan struct{}, 1)
	release := make(chan struct{})
	hang := func(string, string) (link, error) {
		select {
		case dialing <- struct{}{}:
		default:
		}
		<-release
		return nil, errors.New("i/o timeout")
	}
	p := startPublisher("amqp://unreachable", "hotel.reservations", 1, time.Millisecond, hang)

	ctx := context.Background()
	require.NoError(t, p.Publish(ctx, event("r1", "CONFIRMED")))
	<-dialing // the loop holds r1 and is stuck dialing

	start := time.Now()
	require.NoError(t, p.Publish(ctx, event("r2", "CONFIRMED")))
	assert.ErrorIs(t, p.Publish(ctx, event("r3", "CONFIRMED")), ErrPublishQueueFull)
	assert.Less(t, time.Since(start), time.Second)

	close(release)
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Publish(ctx, event("r4", "CONFIRMED")), ErrPublisherClosed)
}

func TestAMQPPublisher_RedialsAndDeliversInOrder(t *testing.T) {
	broker := &fakeBroker{failDial: 2}
	p := startPublisher("amqp://broker", "hotel.reservations", 16, time.Millisecond, broker.dial)
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.Publish(ctx, event("r1", "CONFIRMED")))
	require.NoError(t, p.Publish(ctx, event("r1", "CHECKED_IN")))
	require.NoError(t, p.Publish(ctx, event("r2", "CANCELLED")))

	require.Eventually(t, func() bool { return len(broker.messages()) == 3 }, 2*time.Second, 5*time.Millisecond)
	sent := broker.messages()
	assert.Equal(t, "reservation.confirmed", sent[0].routingKey)
	assert.Equal(t, "reservation.checked_in", sent[1].routingKey)
	assert.Equal(t, "reservation.cancelled", sent[2].routingKey)
	assert.Equal(t, "hotel.reservations", sent[0].exchange)
	assert.Equal(t, "r1:reservation.confirmed", sent[0].msg.MessageId)
	assert.Equal(t, amqp.Persistent, sent[0].msg.DeliveryMode)
	assert.JSONEq(t, `{"type":"reservation.cancelled","reservationId":"r2","code":"","propertyId":"","status":"CANCELLED","channel":"","checkInDate":"","checkOutDate":"","guestName":"","guestEmail":"","actor":"","occurredAt":"0001-01-01T00:00:00Z"}`,
		string(sent[2].msg.Body))
	assert.Equal(t, 3, broker.dialCount())
}

func TestAMQPPublisher_FailedSendDropsConnection(t *testing.T) {
	broker := &fakeBroker{failSend: 1}
	p := startPublisher("amqp://broker", "hotel.reservations", 16, time.Millisecond, broker.dial)
	defer p.Close()

	require.NoError(t, p.Publish(context.Background(), event("r1", "NO_SHOW")))
	require.Eventually(t, func() bool { return len(broker.messages()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, broker.dialCount())
}

func TestAMQPPublisher_CloseFlushesOverOpenConnection(t *testing.T) {
	broker := &fakeBroker{}
	p := startPublisher("amqp://broker", "hotel.reservations", 16, time.Millisecond, broker.dial)

	ctx := context.Background()
	require.NoError(t, p.Publish(ctx, event("r1", "CONFIRMED")))
	require.Eventually(t, func() bool { return len(broker.messages()) == 1 }, 2*time.Second, 5*time.Millisecond)

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Publish(ctx, event("r2", "CONFIRMED")))
	}
	require.NoError(t, p.Close())
	assert.Len(t, broker.messages(), 6)
	require.NoError(t, p.Close(), "closing twice is harmless")
}
