// Package workerpresentation adapts background event handlers the way the HTTP package adapts requests.
package workerpresentation

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	domoutbox "github.com/Zhima-Mochi/readify/internal/domain/outbox"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/observability/logctx"
)

// WithEventContext injects an event-scoped logger: event_id (generated), the event name,
// trace_id/span_id when the context carries a valid span, plus low-cardinality attrs such as
// "consumer".
func WithEventContext(ctx context.Context, base observability.Logger, e domoutbox.Event, attrs map[string]string) context.Context {
	base = logctx.FromOr(ctx, base)
	if base == nil {
		base = observability.NopLogger()
	}

	fields := make([]observability.Field, 0, 4+len(attrs))
	fields = append(fields,
		observability.F("event_id", uuid.NewString()),
		observability.F("event", e.EventName()),
	)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	for k, v := range attrs {
		if v == "" || k == "event_id" || k == "event" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}
	return logctx.With(ctx, base.With(fields...))
}

// Middleware wraps one handler so it runs with WithEventContext applied.
func Middleware(base observability.Logger, consumer string) domoutbox.Middleware {
	attrs := map[string]string{"consumer": consumer}
	return func(next domoutbox.Handler) domoutbox.Handler {
		return func(ctx context.Context, e domoutbox.Event) error {
			return next(WithEventContext(ctx, base, e, attrs), e)
		}
	}
}

type subscriber struct {
	next domoutbox.Subscriber
	mws  []domoutbox.Middleware
}

// Subscriber decorates sub so every handler registered through it gets the event-scoped logger,
// followed by any extra middlewares.
func Subscriber(sub domoutbox.Subscriber, base observability.Logger, consumer string, mws ...domoutbox.Middleware) domoutbox.Subscriber {
	return &subscriber{next: sub, mws: append([]domoutbox.Middleware{Middleware(base, consumer)}, mws...)}
}

func (s *subscriber) Subscribe(eventName string, h domoutbox.Handler) {
	s.next.Subscribe(eventName, domoutbox.Chain(h, s.mws...))
}
