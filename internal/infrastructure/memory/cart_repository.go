package memory

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/domain/cart"
	"github.com/Zhima-Mochi/readify/internal/domain/wishlist"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

type CartRepository struct{ s *Store }

func (s *Store) Carts() *CartRepository { return &CartRepository{s: s} }

func newestFirst(a, b *cart.Item) int { return -a.CreatedAt.Compare(b.CreatedAt) }

func cartID(it *cart.Item) string { return it.ID }

func (r *CartRepository) Insert(ctx context.Context, it *cart.Item) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.carts.first(func(x *cart.Item) bool { return x.UserID == it.UserID && x.BookID == it.BookID }); ok {
		return cart.ErrItemExists
	}
	r.s.carts.put(it.ID, it)
	return nil
}

func (r *CartRepository) Get(ctx context.Context, userID, bookID string) (*cart.Item, error) {
	defer r.s.rlock(ctx)()
	it, ok := r.s.carts.first(func(x *cart.Item) bool { return x.UserID == userID && x.BookID == bookID })
	if !ok {
		return nil, cart.ErrItemNotFound
	}
	return it, nil
}

func (r *CartRepository) GetByIDs(ctx context.Context, userID string, ids []string) ([]*cart.Item, error) {
	set := inSet(ids)
	unlock := r.s.rlock(ctx)
	rows := r.s.carts.find(func(x *cart.Item) bool {
		_, ok := set[x.ID]
		return ok && x.UserID == userID
	})
	unlock()
	sortBy(rows, cartID, newestFirst)
	return rows, nil
}

func (r *CartRepository) List(ctx context.Context, userID string) ([]*cart.Item, error) {
	unlock := r.s.rlock(ctx)
	rows := r.s.carts.find(func(x *cart.Item) bool { return x.UserID == userID })
	unlock()
	sortBy(rows, cartID, newestFirst)
	return rows, nil
}

func (r *CartRepository) ListSelected(ctx context.Context, userID string) ([]*cart.Item, error) {
	unlock := r.s.rlock(ctx)
	rows := r.s.carts.find(func(x *cart.Item) bool { return x.UserID == userID && x.IsSelected })
	unlock()
	sortBy(rows, cartID, newestFirst)
	return rows, nil
}

func (r *CartRepository) Update(ctx context.Context, it *cart.Item) error {
	defer r.s.lock(ctx)()
	if !r.s.carts.has(it.ID) {
		return cart.ErrItemNotFound
	}
	r.s.carts.put(it.ID, it)
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, userID, bookID string) error {
	defer r.s.lock(ctx)()
	it, ok := r.s.carts.first(func(x *cart.Item) bool { return x.UserID == userID && x.BookID == bookID })
	if !ok {
		return cart.ErrItemNotFound
	}
	r.s.carts.remove(it.ID)
	return nil
}

func (r *CartRepository) DeleteByIDs(ctx context.Context, userID string, ids []string) (int64, error) {
	set := inSet(ids)
	return r.removeWhere(ctx, func(x *cart.Item) bool {
		_, ok := set[x.ID]
		return ok && x.UserID == userID
	})
}

func (r *CartRepository) Clear(ctx context.Context, userID string) (int64, error) {
	return r.removeWhere(ctx, func(x *cart.Item) bool { return x.UserID == userID })
}

func (r *CartRepository) removeWhere(ctx context.Context, pred func(*cart.Item) bool) (int64, error) {
	defer r.s.lock(ctx)()
	rows := r.s.carts.find(pred)
	for _, it := range rows {
		r.s.carts.remove(it.ID)
	}
	return int64(len(rows)), nil
}

func (r *CartRepository) Count(ctx context.Context, userID string) (int64, error) {
	defer r.s.rlock(ctx)()
	return r.s.carts.count(func(x *cart.Item) bool { return x.UserID == userID }), nil
}

func (r *CartRepository) SetSelectionAll(ctx context.Context, userID string, selected bool) (int64, error) {
	defer r.s.lock(ctx)()
	rows := r.s.carts.find(func(x *cart.Item) bool { return x.UserID == userID && x.IsSelected != selected })
	for _, it := range rows {
		it.Select(selected)
		r.s.carts.put(it.ID, it)
	}
	return int64(len(rows)), nil
}

type WishlistRepository struct{ s *Store }

func (s *Store) Wishlists() *WishlistRepository { return &WishlistRepository{s: s} }

func (r *WishlistRepository) Insert(ctx context.Context, it *wishlist.Item) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.wishlists.first(func(x *wishlist.Item) bool { return x.UserID == it.UserID && x.BookID == it.BookID }); ok {
		return wishlist.ErrAlreadyExists
	}
	r.s.wishlists.put(it.ID, it)
	return nil
}

func (r *WishlistRepository) Exists(ctx context.Context, userID, bookID string) (bool, error) {
	defer r.s.rlock(ctx)()
	_, ok := r.s.wishlists.first(func(x *wishlist.Item) bool { return x.UserID == userID && x.BookID == bookID })
	return ok, nil
}

func (r *WishlistRepository) List(ctx context.Context, userID string, p paging.Params) ([]*wishlist.Item, int64, error) {
	unlock := r.s.rlock(ctx)
	rows := r.s.wishlists.find(func(x *wishlist.Item) bool { return x.UserID == userID })
	unlock()
	sortBy(rows, func(x *wishlist.Item) string { return x.ID }, func(a, b *wishlist.Item) int {
		return -a.CreatedAt.Compare(b.CreatedAt)
	})
	return paging.Window(rows, p), int64(len(rows)), nil
}

func (r *WishlistRepository) Count(ctx context.Context, userID string) (int64, error) {
	defer r.s.rlock(ctx)()
	return r.s.wishlists.count(func(x *wishlist.Item) bool { return x.UserID == userID }), nil
}

func (r *WishlistRepository) Delete(ctx context.Context, userID, bookID string) error {
	n, err := r.removeWhere(ctx, func(x *wishlist.Item) bool { return x.UserID == userID && x.BookID == bookID })
	if err != nil {
		return err
	}
	if n == 0 {
		return wishlist.ErrNotFound
	}
	return nil
}

func (r *WishlistRepository) DeleteMany(ctx context.Context, userID string, bookIDs []string) (int64, error) {
	set := inSet(bookIDs)
	return r.removeWhere(ctx, func(x *wishlist.Item) bool {
		_, ok := set[x.BookID]
		return ok && x.UserID == userID
	})
}

func (r *WishlistRepository) Clear(ctx context.Context, userID string) (int64, error) {
	return r.removeWhere(ctx, func(x *wishlist.Item) bool { return x.UserID == userID })
}

func (r *WishlistRepository) removeWhere(ctx context.Context, pred func(*wishlist.Item) bool) (int64, error) {
	defer r.s.lock(ctx)()
	rows := r.s.wishlists.find(pred)
	for _, it := range rows {
		r.s.wishlists.remove(it.ID)
	}
	return int64(len(rows)), nil
}
