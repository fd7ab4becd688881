package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/museum-booking/internal/logger"
	"github.com/iliyamo/museum-booking/internal/queue"
)

// AMQP publishes each event to the durable queue named after its type
// through the default exchange.  The connection is opened lazily and
// re-dialled after a failure.
type AMQP struct {
	url string
	log *logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQP(url string, log *logger.Logger) *AMQP {
	if log == nil {
		log = logger.Nop()
	}
	return &AMQP{url: url, log: log.With("component", "amqp_publisher")}
}

// Publish marks messages persistent so they survive broker restarts.
func (p *AMQP) Publish(ctx context.Context, ev queue.BookingEvent) error {
	msg, err := publishing(ev, time.Now().UTC())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		p.log.Warn("rabbitmq: connect failed", "error", err)
		return err
	}
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		ev.Type, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		msg,
	); err != nil {
		p.reset()
		p.log.Warn("rabbitmq: publish failed", "event", ev.Type, "error", err)
		return err
	}
	return nil
}

func publishing(ev queue.BookingEvent, at time.Time) (amqp.Publishing, error) {
	body, err := encode(ev)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    at,
		MessageId:    ev.Type + ":" + ev.Key(),
		Type:         ev.Type,
		Body:         body,
	}, nil
}

// channel returns the open channel, dialling and declaring both booking
// queues when needed.  Callers hold p.mu.
func (p *AMQP) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	for _, q := range []string{queue.EventBookingConfirmed, queue.EventBookingCancelled} {
		// Durable, non-exclusive; same arguments as the consumer.
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("queue declare %s: %w", q, err)
		}
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQP) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *AMQP) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
