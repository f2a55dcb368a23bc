package memory

import (
	"context"

	domain "github.com/Zhima-Mochi/readify/internal/domain/inventory"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

type InventoryRepository struct{ s *Store }

func (s *Store) Inventory() *InventoryRepository { return &InventoryRepository{s: s} }

func (r *InventoryRepository) Insert(ctx context.Context, stock *domain.Stock) error {
	defer r.s.lock(ctx)()
	if r.s.stocks.has(stock.BookID) {
		return domain.ErrExists
	}
	r.s.stocks.put(stock.BookID, stock)
	return nil
}

func (r *InventoryRepository) GetByBook(ctx context.Context, bookID string) (*domain.Stock, error) {
	defer r.s.rlock(ctx)()
	st, ok := r.s.stocks.get(bookID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return st, nil
}

func (r *InventoryRepository) GetByBooks(ctx context.Context, bookIDs []string) ([]*domain.Stock, error) {
	defer r.s.rlock(ctx)()
	out := make([]*domain.Stock, 0, len(bookIDs))
	for _, id := range bookIDs {
		if st, ok := r.s.stocks.get(id); ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *InventoryRepository) Update(ctx context.Context, stock *domain.Stock) error {
	if stock == nil {
		return nil
	}
	defer r.s.lock(ctx)()
	if !r.s.stocks.has(stock.BookID) {
		return domain.ErrNotFound
	}
	r.s.stocks.put(stock.BookID, stock)
	return nil
}

func (r *InventoryRepository) Decrement(ctx context.Context, bookID string, qty int) error {
	defer r.s.lock(ctx)()
	st, ok := r.s.stocks.get(bookID)
	if !ok || st.Quantity < qty {
		return domain.ErrInsufficientStock
	}
	st.Quantity -= qty
	r.s.stocks.put(bookID, st)
	return nil
}

func (r *InventoryRepository) Increment(ctx context.Context, bookID string, qty int) error {
	defer r.s.lock(ctx)()
	st, ok := r.s.stocks.get(bookID)
	if !ok {
		return domain.ErrNotFound
	}
	st.Quantity += qty
	r.s.stocks.put(bookID, st)
	return nil
}

func (r *InventoryRepository) InStockBookIDs(ctx context.Context) ([]string, error) {
	defer r.s.rlock(ctx)()
	rows := r.s.stocks.find(func(s *domain.Stock) bool { return s.Quantity > 0 })
	ids := make([]string, 0, len(rows))
	for _, s := range rows {
		ids = append(ids, s.BookID)
	}
	return ids, nil
}

func (r *InventoryRepository) List(ctx context.Context, p paging.Params) ([]*domain.Stock, int64, error) {
	unlock := r.s.rlock(ctx)
	rows := r.s.stocks.find(nil)
	unlock()
	sortBy(rows, func(s *domain.Stock) string { return s.ID }, func(a, b *domain.Stock) int {
		return -a.UpdatedAt.Compare(b.UpdatedAt)
	})
	return paging.Window(rows, p), int64(len(rows)), nil
}
