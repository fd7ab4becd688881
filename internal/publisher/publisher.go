// Package publisher delivers booking events to RabbitMQ or Kafka after a
// reservation commits.  Delivery is best effort: callers log failures and
// never roll a booking back because of them.
package publisher

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/config"
	"github.com/iliyamo/museum-booking/internal/logger"
	"github.com/iliyamo/museum-booking/internal/queue"
)

// Publisher is a booking.Publisher that owns a broker connection.
type Publisher interface {
	booking.Publisher
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, queue.BookingEvent) error { return nil }
func (Noop) Close() error                                      { return nil }

// New returns the publisher selected by cfg.Driver.
func New(cfg config.EventsConfig, log *logger.Logger) Publisher {
	switch cfg.Driver {
	case config.EventsRabbitMQ:
		return NewAMQP(cfg.AMQPURL, log)
	case config.EventsKafka:
		return NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	default:
		return Noop{}
	}
}

func encode(ev queue.BookingEvent) ([]byte, error) {
	if ev.Type == "" {
		return nil, errors.New("publisher: event type is empty")
	}
	return json.Marshal(ev)
}
