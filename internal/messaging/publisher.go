package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"hotelsuite/internal/logger"
)

const (
	publishQueueSize = 512
	dialTimeout      = 5 * time.Second
	sendTimeout      = 5 * time.Second
	maxRetryBackoff  = 30 * time.Second
)

var (
	ErrPublishQueueFull = errors.New("rabbitmq: publish queue full")
	ErrPublisherClosed  = errors.New("rabbitmq: publisher closed")
)

// link is one open broker connection and channel.
type link interface {
	publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
	close()
}

type dialFunc func(url, exchange string) (link, error)

type outgoing struct {
	routingKey string
	msg        amqp.Publishing
}

// AMQPPublisher queues lifecycle messages and delivers them from a background loop, so
// request handlers never wait on the broker. While the broker is unreachable the loop
// redials with exponential backoff and Publish keeps queueing until the buffer is full.
// Messages are persistent and routed by RoutingKey(status).
type AMQPPublisher struct {
	url       string
	exchange  string
	dial      dialFunc
	retryBase time.Duration

	queue     chan outgoing
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// Owned by the run loop.
	conn link
}

func NewAMQPPublisher(url, exchange string) *AMQPPublisher {
	return startPublisher(url, exchange, publishQueueSize, time.Second, dialAMQP)
}

func startPublisher(url, exchange string, size int, retryBase time.Duration, dial dialFunc) *AMQPPublisher {
	p := &AMQPPublisher{
		url:       url,
		exchange:  exchange,
		dial:      dial,
		retryBase: retryBase,
		queue:     make(chan outgoing, size),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish enqueues ev without blocking. It fails only when the queue is full or the
// publisher is closed.
func (p *AMQPPublisher) Publish(_ context.Context, ev ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	out := outgoing{
		routingKey: ev.Type,
		msg: amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			MessageId:    ev.ReservationID + ":" + ev.Type,
			Body:         body,
		},
	}

	select {
	case <-p.done:
		return ErrPublisherClosed
	default:
	}
	select {
	case p.queue <- out:
		return nil
	default:
		return ErrPublishQueueFull
	}
}

// Close stops the loop after a best-effort flush of queued messages over the current
// connection. Messages that cannot be sent without redialing are dropped.
func (p *AMQPPublisher) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	<-p.stopped
	return nil
}

func (p *AMQPPublisher) run() {
	defer close(p.stopped)
	log := logger.Get().With("exchange", p.exchange)
	backoff := p.retryBase

	for {
		select {
		case <-p.done:
			p.flush(nil)
			return
		case out := <-p.queue:
			for {
				err := p.send(out)
				if err == nil {
					backoff = p.retryBase
					break
				}
				log.Warn("rabbitmq: publish failed, retrying",
					"routing_key", out.routingKey, "retry_in", backoff, "queued", len(p.queue), "error", err)
				if !p.sleep(backoff) {
					p.flush(&out)
					return
				}
				if backoff < maxRetryBackoff {
					backoff *= 2
				}
			}
		}
	}
}

func (p *AMQPPublisher) send(out outgoing) error {
	if p.conn == nil {
		l, err := p.dial(p.url, p.exchange)
		if err != nil {
			return fmt.Errorf("dial: %w", err)
		}
		p.conn = l
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := p.conn.publish(ctx, p.exchange, out.routingKey, out.msg); err != nil {
		p.conn.close()
		p.conn = nil
		return err
	}
	return nil
}

func (p *AMQPPublisher) flush(pending *outgoing) {
	dropped := 0
	if pending != nil {
		if p.conn == nil || p.send(*pending) != nil {
			dropped++
		}
	}
	for {
		select {
		case out := <-p.queue:
			if p.conn == nil || p.send(out) != nil {
				dropped++
			}
		default:
			if p.conn != nil {
				p.conn.close()
				p.conn = nil
			}
			if dropped > 0 {
				logger.Get().Warn("rabbitmq: messages dropped on shutdown", "exchange", p.exchange, "count", dropped)
			}
			return
		}
	}
}

func (p *AMQPPublisher) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.done:
		return false
	case <-t.C:
		return true
	}
}

type amqpLink struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func dialAMQP(url, exchange string) (link, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := DeclareExchange(ch, exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &amqpLink{conn: conn, ch: ch}, nil
}

func (l *amqpLink) publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	if l.ch.IsClosed() || l.conn.IsClosed() {
		return amqp.ErrClosed
	}
	return l.ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
}

func (l *amqpLink) close() {
	_ = l.ch.Close()
	_ = l.conn.Close()
}

// DeclareExchange declares the durable topic exchange lifecycle messages go through.
func DeclareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}
