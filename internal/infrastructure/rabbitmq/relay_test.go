package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/readify/internal/domain/order"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/readify/internal/observability"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestHandleWrapsEventInEnvelope(t *testing.T) {
	ch := &fakeChannel{}
	r := newRelay(ch, nil)
	at := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return at }

	err := r.Handle(context.Background(), order.PaidEvent{OrderID: "o1", Code: "ORD20250001", UserID: "u1", Amount: 150_000})
	require.NoError(t, err)
	require.Len(t, ch.sent, 1)

	p := ch.sent[0]
	assert.Equal(t, ExchangeName, p.exchange)
	assert.Equal(t, "order.paid", p.key)
	assert.Equal(t, "application/json", p.msg.ContentType)
	assert.Equal(t, amqp.Persistent, p.msg.DeliveryMode)
	assert.NotEmpty(t, p.msg.MessageId)

	var env Envelope
	require.NoError(t, json.Unmarshal(p.msg.Body, &env))
	assert.Equal(t, p.msg.MessageId, env.ID)
	assert.Equal(t, "order.paid", env.Name)
	assert.True(t, env.OccurredAt.Equal(at))

	var payload order.PaidEvent
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "o1", payload.OrderID)
	assert.Equal(t, int64(150_000), payload.Amount)
}

func TestHandleReturnsPublishError(t *testing.T) {
	r := newRelay(&fakeChannel{err: errors.New("channel closed")}, nil)
	err := r.Handle(context.Background(), order.CreatedEvent{OrderID: "o1"})
	assert.ErrorContains(t, err, "order.created")
}

func TestAttachReceivesEveryEvent(t *testing.T) {
	ch := &fakeChannel{}
	bus := outbox.NewBus(observability.NopLogger(), observability.Nop(), outbox.Options{Concurrency: 1})
	newRelay(ch, nil).Attach(bus)
	bus.Start(context.Background())

	require.NoError(t, bus.Publish(context.Background(), order.CreatedEvent{OrderID: "o1"}))
	require.NoError(t, bus.Publish(context.Background(), order.CancelledEvent{OrderID: "o1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	bus.Stop(ctx)

	ch.mu.Lock()
	defer ch.mu.Unlock()
	keys := []string{}
	for _, p := range ch.sent {
		keys = append(keys, p.key)
	}
	assert.ElementsMatch(t, []string{"order.created", "order.cancelled"}, keys)
}

func TestDialLive(t *testing.T) {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		t.Skip("RABBITMQ_URL not set")
	}
	r, err := Dial(url, nil)
	require.NoError(t, err)
	defer r.Close()
	assert.NoError(t, r.Handle(context.Background(), order.CreatedEvent{OrderID: "live"}))
}
