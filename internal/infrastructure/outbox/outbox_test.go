package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domoutbox "github.com/Zhima-Mochi/readify/internal/domain/outbox"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestBusFansOutToNamedAndWildcardSubscribers(t *testing.T) {
	bus := NewBus(observability.NopLogger(), observability.Nop(), Options{})
	var mu sync.Mutex
	got := map[string]int{}
	record := func(tag string) domoutbox.Handler {
		return func(_ context.Context, e domoutbox.Event) error {
			mu.Lock()
			defer mu.Unlock()
			got[tag+":"+e.EventName()]++
			return nil
		}
	}
	bus.Subscribe("order.created", record("named"))
	bus.Subscribe(AllEvents, record("all"))
	bus.Start(context.Background())

	require.NoError(t, bus.Publish(context.Background(), testEvent{"order.created"}))
	require.NoError(t, bus.Publish(context.Background(), testEvent{"order.paid"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	bus.Stop(ctx)

	assert.Equal(t, 1, got["named:order.created"])
	assert.Equal(t, 1, got["all:order.created"])
	assert.Equal(t, 1, got["all:order.paid"])
	assert.Zero(t, got["named:order.paid"])
}

func TestBusSurvivesFailingAndPanickingHandlers(t *testing.T) {
	bus := NewBus(nil, nil, Options{Concurrency: 1})
	done := make(chan struct{}, 1)
	bus.Subscribe("x", func(context.Context, domoutbox.Event) error { return errors.New("boom") })
	bus.Subscribe("x", func(context.Context, domoutbox.Event) error { panic("bad handler") })
	bus.Subscribe("x", func(context.Context, domoutbox.Event) error {
		done <- struct{}{}
		return nil
	})
	bus.Start(context.Background())
	require.NoError(t, bus.Publish(context.Background(), testEvent{"x"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("third handler never ran")
	}
	bus.Stop(context.Background())
	assert.Error(t, bus.Publish(context.Background(), testEvent{"x"}))
}
