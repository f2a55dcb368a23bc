package order

import (
	"context"
	"time"

	domain "github.com/Zhima-Mochi/readify/internal/domain/order"
)

// ExpiryScheduler arranges for an unpaid online order to be cancelled after a delay.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, orderID string, after time.Duration) error
}

// NopExpiryScheduler is used when no workflow engine is configured.
type NopExpiryScheduler struct{}

func (NopExpiryScheduler) ScheduleExpiry(context.Context, string, time.Duration) error { return nil }

// PaymentLinker builds the gateway checkout URL for an order.
type PaymentLinker interface {
	PaymentURLFor(ctx context.Context, o *domain.Order, clientIP string) (string, error)
}
