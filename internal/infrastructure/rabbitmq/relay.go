// Package rabbitmq relays domain events from the in-process bus to a RabbitMQ topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	domoutbox "github.com/Zhima-Mochi/readify/internal/domain/outbox"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/readify/internal/observability"
)

const (
	ExchangeName = "readify.events"
	ExchangeType = "topic"
)

// channel is the part of *amqp.Channel the relay needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Envelope is the JSON body of every relayed message.
type Envelope struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

type Relay struct {
	ch     channel
	conn   *amqp.Connection
	now    func() time.Time
	logger observability.Logger
}

// Dial connects, opens a channel and declares the durable topic exchange.
func Dial(url string, logger observability.Logger) (*Relay, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(ExchangeName, ExchangeType, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}
	r := newRelay(ch, logger)
	r.conn = conn
	return r, nil
}

func newRelay(ch channel, logger observability.Logger) *Relay {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Relay{ch: ch, now: time.Now, logger: logger}
}

// Attach forwards every event published on the bus.
func (r *Relay) Attach(sub domoutbox.Subscriber) {
	sub.Subscribe(outbox.AllEvents, r.Handle)
}

// Handle publishes e with its event name as the routing key.
func (r *Relay) Handle(ctx context.Context, e domoutbox.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal %s: %w", e.EventName(), err)
	}
	env := Envelope{ID: uuid.NewString(), Name: e.EventName(), OccurredAt: r.now().UTC(), Payload: payload}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal envelope: %w", err)
	}
	err = r.ch.PublishWithContext(ctx, ExchangeName, env.Name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Timestamp:    env.OccurredAt,
		Type:         env.Name,
		Body:         body,
	})
	if err != nil {
		r.logger.Warn("event_relay_failed",
			observability.F("event", env.Name),
			observability.F("error", err.Error()),
		)
		return fmt.Errorf("rabbitmq: publish %s: %w", env.Name, err)
	}
	return nil
}

func (r *Relay) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}
