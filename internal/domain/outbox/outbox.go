// Package outbox defines how domain events leave a use case.
package outbox

import "context"

type Event interface {
	EventName() string
}

type Handler func(ctx context.Context, e Event) error

// Middleware decorates a Handler.
type Middleware func(Handler) Handler

// Chain applies mws so that the first one runs outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Publisher is called after the state change it describes has been saved.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
