package order

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/application"
	domain "github.com/Zhima-Mochi/readify/internal/domain/order"

	"go.opentelemetry.io/otel/attribute"
)

// UpdateOrderInput carries the staff-editable fields; nil means unchanged.
type UpdateOrderInput struct {
	ShippingAddress *string
	Status          *domain.Status
}

// UpdateOrder is the back-office edit: address changes while pending and status transitions.
// Cancelling here releases stock and promotion usage exactly like a customer cancel.
func (s *Service) UpdateOrder(ctx context.Context, actor application.Actor, id string, in UpdateOrderInput) (_ *domain.Order, err error) {
	ctx, call := s.inst.Start(ctx, "order.update", "UpdateOrder",
		attribute.String("order.id", id),
		attribute.String("actor.id", actor.UserID),
	)
	defer call.End(&err)

	if !actor.IsStaff() {
		return nil, application.ErrForbidden
	}
	if in.ShippingAddress == nil && in.Status == nil {
		return nil, application.NewValidation("nothing to update")
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	from := o.Status
	to := from
	if in.Status != nil && *in.Status != from {
		to = *in.Status
		if err = o.CheckStaffTransition(to); err != nil {
			return nil, err
		}
	}
	if in.ShippingAddress != nil {
		if err = o.ChangeAddress(*in.ShippingAddress); err != nil {
			return nil, err
		}
	}
	call.Field("from", string(from))
	call.Field("to", string(to))

	if to == domain.StatusCancelled {
		if err = s.cancel(ctx, call, o, actor.UserID, reasonStaff); err != nil {
			return nil, err
		}
		if in.ShippingAddress != nil {
			if err = s.d.Orders.Update(ctx, o); err != nil {
				return nil, application.WrapRepositoryError(err)
			}
		}
		return o, nil
	}

	if to != from {
		o.MoveTo(to)
	}
	err = s.d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if to != from {
			ok, err := s.d.Orders.CompareAndSetStatus(ctx, o.ID, from, to)
			if err != nil {
				return application.WrapRepositoryError(err)
			}
			if !ok {
				return s.lostRace(ctx, o.ID)
			}
		}
		if err := s.d.Orders.Update(ctx, o); err != nil {
			return application.WrapRepositoryError(err)
		}
		if to == from || to != domain.StatusCompleted {
			return nil
		}
		for _, l := range o.Items {
			if err := s.d.Books.IncSold(ctx, l.BookID, l.Quantity); err != nil {
				return application.WrapRepositoryError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if to != from {
		call.Event("order.status_changed", attribute.String("from", string(from)), attribute.String("to", string(to)))
		if pubErr := s.inst.Publish(ctx, s.d.Publisher, domain.NewStatusChangedEvent(o, from, to, actor.UserID)); pubErr != nil {
			call.Status("EVENT_PUBLISH_FAILED")
		}
	}
	return o, nil
}
