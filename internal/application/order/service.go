// Package order holds checkout and the order lifecycle use cases.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/readify/internal/application"
	"github.com/Zhima-Mochi/readify/internal/domain/book"
	domcart "github.com/Zhima-Mochi/readify/internal/domain/cart"
	"github.com/Zhima-Mochi/readify/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/readify/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/readify/internal/domain/outbox"
	"github.com/Zhima-Mochi/readify/internal/domain/promotion"
	"github.com/Zhima-Mochi/readify/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	orderService       = "order-service"
	defaultExpireAfter = 15 * time.Minute

	reasonCustomer = "customer"
	reasonStaff    = "staff"
	reasonExpired  = "payment_expired"
)

type Deps struct {
	Orders        domain.Repository
	Carts         domcart.Repository
	Stocks        inventory.Repository
	Books         book.Repository
	Promotions    promotion.Repository
	PromotionLogs promotion.LogRepository
	Tx            application.TxRunner
	IDs           application.IDGenerator
	Publisher     domoutbox.Publisher
	Expiry        ExpiryScheduler
	Payments      PaymentLinker
	// ExpireAfter is how long an online order may stay unpaid.
	ExpireAfter time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Expiry == nil {
		d.Expiry = NopExpiryScheduler{}
	}
	if d.ExpireAfter <= 0 {
		d.ExpireAfter = defaultExpireAfter
	}
	return d
}

// Service runs every order use case except checkout, which lives in CreateOrderUseCase.
type Service struct {
	d     Deps
	clock application.Clock
	inst  *application.Instrumentation
}

func NewService(d Deps, tel observability.Observability) *Service {
	return &Service{
		d:     d.withDefaults(),
		clock: application.SystemClock,
		inst:  application.NewInstrumentation(orderService, tel),
	}
}

func (s *Service) WithClock(c application.Clock) *Service {
	s.clock = c
	return s
}

// cancel flips the order to CANCELLED and gives back its stock and promotion usage, all in one
// transaction. The status compare-and-set makes sure the give-back happens once.
func (s *Service) cancel(ctx context.Context, call *application.Call, o *domain.Order, by, reason string) error {
	from := o.Status
	err := s.d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.d.Orders.CompareAndSetStatus(ctx, o.ID, from, domain.StatusCancelled)
		if err != nil {
			return application.WrapRepositoryError(err)
		}
		if !ok {
			return s.lostRace(ctx, o.ID)
		}
		for _, l := range o.Items {
			if err := s.d.Stocks.Increment(ctx, l.BookID, l.Quantity); err != nil {
				return application.WrapRepositoryError(err)
			}
		}
		if o.Promotion == nil {
			return nil
		}
		if err := s.d.Promotions.Release(ctx, o.Promotion.PromotionID, o.UserID); err != nil {
			return application.WrapRepositoryError(err)
		}
		p, err := s.d.Promotions.Get(ctx, o.Promotion.PromotionID)
		if errors.Is(err, promotion.ErrNotFound) {
			// soft-deleted since checkout; usage is released but there is nothing to log against
			return nil
		}
		if err != nil {
			return application.WrapRepositoryError(err)
		}
		entry := promotion.NewLog(s.d.IDs.NewID(), p, promotion.ActionCancel, by, promotion.RequestMeta{})
		entry.Note = "Order " + o.Code + " cancelled"
		return application.WrapRepositoryError(s.d.PromotionLogs.Insert(ctx, entry))
	})
	if err != nil {
		return err
	}
	o.MoveTo(domain.StatusCancelled)
	call.Event("order.cancelled", attribute.String("order.id", o.ID), attribute.String("reason", reason))
	if pubErr := s.inst.Publish(ctx, s.d.Publisher, domain.NewCancelledEvent(o, reason)); pubErr != nil {
		call.Status("EVENT_PUBLISH_FAILED")
	}
	return nil
}

// lostRace explains a failed status compare-and-set.
func (s *Service) lostRace(ctx context.Context, id string) error {
	cur, err := s.d.Orders.Get(ctx, id)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	if cur.Status == domain.StatusCancelled {
		return domain.ErrAlreadyCancelled
	}
	return domain.ErrConcurrentlyChanged
}
