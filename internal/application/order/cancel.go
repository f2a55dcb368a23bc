package order

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/readify/internal/application"
	domain "github.com/Zhima-Mochi/readify/internal/domain/order"

	"go.opentelemetry.io/otel/attribute"
)

// CancelOrder lets a customer cancel their own order while it is still cancellable.
func (s *Service) CancelOrder(ctx context.Context, actor application.Actor, id string) (_ *domain.Order, err error) {
	ctx, call := s.inst.Start(ctx, "order.cancel", "CancelOrder",
		attribute.String("order.id", id),
		attribute.String("order.customer_id", actor.UserID),
	)
	defer call.End(&err)

	if !actor.IsCustomer() {
		return nil, application.ErrForbidden
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.OwnedBy(actor.UserID) {
		return nil, domain.ErrNotOwner
	}
	if err = o.CheckCustomerCancel(); err != nil {
		return nil, err
	}
	if err = s.cancel(ctx, call, o, actor.UserID, reasonCustomer); err != nil {
		return nil, err
	}
	return o, nil
}

// ExpireUnpaidOrder cancels an online order whose payment window has closed. It reports false
// when the order was paid, cancelled or moved on in the meantime.
func (s *Service) ExpireUnpaidOrder(ctx context.Context, id string) (_ bool, err error) {
	ctx, call := s.inst.Start(ctx, "order.expire", "ExpireUnpaidOrder", attribute.String("order.id", id))
	defer call.End(&err)

	o, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}
	if !o.AwaitingOnlinePayment() || o.CheckStaffTransition(domain.StatusCancelled) != nil {
		call.Status("SKIPPED")
		return false, nil
	}
	err = s.cancel(ctx, call, o, application.SystemActor.UserID, reasonExpired)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrAlreadyCancelled), errors.Is(err, domain.ErrConcurrentlyChanged):
		// paid or cancelled while we were looking
		call.Status("SKIPPED")
		return false, nil
	default:
		return false, err
	}
}

func (s *Service) load(ctx context.Context, id string) (*domain.Order, error) {
	if err := checkOrderID(id); err != nil {
		return nil, err
	}
	o, err := s.d.Orders.Get(ctx, id)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return o, nil
}
