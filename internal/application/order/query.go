package order

import (
	"context"
	"strings"

	"github.com/Zhima-Mochi/readify/internal/application"
	domain "github.com/Zhima-Mochi/readify/internal/domain/order"
	"github.com/Zhima-Mochi/readify/internal/pkg/objectid"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"

	"go.opentelemetry.io/otel/attribute"
)

// ListFilter narrows order listings. Empty fields match everything.
type ListFilter struct {
	application.ListQuery
	Status        domain.Status
	PaymentMethod domain.PaymentMethod
	PaymentStatus domain.PaymentStatus
	Search        string
}

func (f ListFilter) validate() error {
	if f.Status != "" && !f.Status.Valid() {
		return application.NewValidation("invalid order status")
	}
	if f.PaymentMethod != "" && !f.PaymentMethod.Valid() {
		return domain.ErrInvalidMethod
	}
	if f.PaymentStatus != "" && !f.PaymentStatus.Valid() {
		return application.NewValidation("invalid payment status")
	}
	return nil
}

func (f ListFilter) repoFilter(userID string) domain.ListFilter {
	return domain.ListFilter{
		UserID:        userID,
		Status:        f.Status,
		PaymentMethod: f.PaymentMethod,
		PaymentStatus: f.PaymentStatus,
		Query:         strings.TrimSpace(f.Search),
		Sort:          f.SortBy(domain.SortKeys, domain.SortCreatedAt),
		Paging:        f.Params(),
	}
}

// ListOrders is the staff view over every order.
func (s *Service) ListOrders(ctx context.Context, actor application.Actor, f ListFilter) (_ paging.Result[*domain.Order], err error) {
	ctx, call := s.inst.Start(ctx, "order.list", "ListOrders", attribute.String("actor.id", actor.UserID))
	defer call.End(&err)

	if !actor.IsStaff() {
		return paging.Result[*domain.Order]{}, application.ErrForbidden
	}
	return s.list(ctx, f, "")
}

// OrderHistory lists the caller's own orders.
func (s *Service) OrderHistory(ctx context.Context, actor application.Actor, f ListFilter) (_ paging.Result[*domain.Order], err error) {
	ctx, call := s.inst.Start(ctx, "order.history", "OrderHistory", attribute.String("order.customer_id", actor.UserID))
	defer call.End(&err)

	if !actor.IsCustomer() {
		return paging.Result[*domain.Order]{}, application.ErrForbidden
	}
	return s.list(ctx, f, actor.UserID)
}

func (s *Service) list(ctx context.Context, f ListFilter, userID string) (paging.Result[*domain.Order], error) {
	if err := f.validate(); err != nil {
		return paging.Result[*domain.Order]{}, err
	}
	rf := f.repoFilter(userID)
	rows, total, err := s.d.Orders.List(ctx, rf)
	if err != nil {
		return paging.Result[*domain.Order]{}, application.WrapRepositoryError(err)
	}
	return paging.NewResult(rows, rf.Paging, total), nil
}

// GetOrder returns an order to its owner or to staff.
func (s *Service) GetOrder(ctx context.Context, actor application.Actor, id string) (_ *domain.Order, err error) {
	ctx, call := s.inst.Start(ctx, "order.get", "GetOrder", attribute.String("order.id", id))
	defer call.End(&err)

	if actor.UserID == "" {
		return nil, application.ErrUnauthorized
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && !o.OwnedBy(actor.UserID) {
		return nil, domain.ErrNotOwner
	}
	return o, nil
}

func checkOrderID(id string) error {
	if !objectid.Valid(id) {
		return application.NewValidation("invalid order id")
	}
	return nil
}
