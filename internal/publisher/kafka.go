package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/iliyamo/museum-booking/internal/logger"
	"github.com/iliyamo/museum-booking/internal/queue"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes every event to one topic keyed by kind and reservation id,
// so all events of a reservation land on the same partition in order.
type Kafka struct {
	w   messageWriter
	log *logger.Logger
}

func NewKafka(brokers []string, topic string, log *logger.Logger) *Kafka {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "kafka_publisher")
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // Hash by key for ordering
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Logger:                 kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Warn("kafka writer error", "detail", fmt.Sprintf(msg, args...))
		}),
	}
	return &Kafka{w: w, log: log}
}

func (k *Kafka) Publish(ctx context.Context, ev queue.BookingEvent) error {
	msg, err := message(ev, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		k.log.Warn("kafka: publish failed", "event", ev.Type, "error", err)
		return err
	}
	return nil
}

func message(ev queue.BookingEvent, at time.Time) (kafka.Message, error) {
	body, err := encode(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(ev.Key()),
		Value: body,
		Time:  at,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
			{Key: "content_type", Value: []byte("application/json")},
		},
	}, nil
}

func (k *Kafka) Close() error { return k.w.Close() }
