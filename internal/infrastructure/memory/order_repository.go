package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/Zhima-Mochi/readify/internal/domain/order"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

const orderCounter = "order_code"

type OrderRepository struct{ s *Store }

func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	defer r.s.lock(ctx)()
	if r.s.orders.has(order.ID) {
		return domain.ErrConflict
	}
	if _, dup := r.s.orders.first(func(o *domain.Order) bool { return o.Code == order.Code }); dup {
		return domain.ErrConflict
	}
	r.s.orders.put(order.ID, order)
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	defer r.s.rlock(ctx)()
	order, ok := r.s.orders.get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	defer r.s.lock(ctx)()
	if !r.s.orders.has(order.ID) {
		return domain.ErrNotFound
	}
	r.s.orders.put(order.ID, order)
	return nil
}

func (r *OrderRepository) CompareAndSetStatus(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	defer r.s.lock(ctx)()
	order, ok := r.s.orders.get(id)
	if !ok {
		return false, domain.ErrNotFound
	}
	if order.Status != from {
		return false, nil
	}
	now := time.Now().UTC()
	order.Status = to
	order.UpdatedAt = now
	if to == domain.StatusCancelled {
		order.CancelledAt = &now
	}
	r.s.orders.put(id, order)
	return true, nil
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id string, p domain.Payment) (bool, error) {
	defer r.s.lock(ctx)()
	order, ok := r.s.orders.get(id)
	if !ok {
		return false, domain.ErrNotFound
	}
	if order.PaymentStatus == domain.PaymentPaid || order.Status == domain.StatusCancelled {
		return false, nil
	}
	order.PaymentStatus = domain.PaymentPaid
	order.Status = domain.StatusConfirmed
	order.Payment = p
	order.UpdatedAt = time.Now().UTC()
	r.s.orders.put(id, order)
	return true, nil
}

func (r *OrderRepository) MarkPaymentFailed(ctx context.Context, id string) (bool, error) {
	defer r.s.lock(ctx)()
	order, ok := r.s.orders.get(id)
	if !ok {
		return false, domain.ErrNotFound
	}
	if order.PaymentStatus == domain.PaymentPaid {
		return false, nil
	}
	order.PaymentStatus = domain.PaymentFailed
	order.UpdatedAt = time.Now().UTC()
	r.s.orders.put(id, order)
	return true, nil
}

func (r *OrderRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Order, int64, error) {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	unlock := r.s.rlock(ctx)
	rows := r.s.orders.find(func(o *domain.Order) bool {
		switch {
		case f.UserID != "" && o.UserID != f.UserID:
			return false
		case f.Status != "" && o.Status != f.Status:
			return false
		case f.PaymentMethod != "" && o.PaymentMethod != f.PaymentMethod:
			return false
		case f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus:
			return false
		}
		return q == "" || strings.Contains(strings.ToLower(o.Code), q) || strings.Contains(strings.ToLower(o.ShippingAddress), q)
	})
	unlock()

	sortBy(rows, func(o *domain.Order) string { return o.ID }, func(a, b *domain.Order) int {
		var c int
		switch f.Sort.Field {
		case domain.SortUpdatedAt:
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		case domain.SortTotalAmount:
			c = compareInt64(a.TotalAmount, b.TotalAmount)
		case domain.SortFinalAmount:
			c = compareInt64(a.FinalAmount, b.FinalAmount)
		case domain.SortCode:
			c = strings.Compare(a.Code, b.Code)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		return dir(c, f.Sort.Desc)
	})
	return paging.Window(rows, f.Paging), int64(len(rows)), nil
}

func (r *OrderRepository) NextCode(ctx context.Context) (string, error) {
	defer r.s.lock(ctx)()
	seq := int64(domain.CodeSeqStart)
	if cur, ok := r.s.counters.get(orderCounter); ok {
		seq = *cur
	}
	seq++
	r.s.counters.put(orderCounter, &seq)
	return domain.FormatCode(seq), nil
}
