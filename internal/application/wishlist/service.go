// Package wishlist holds the wishlist use cases, including moving items into the cart.
package wishlist

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/readify/internal/application"
	"github.com/Zhima-Mochi/readify/internal/domain/book"
	domcart "github.com/Zhima-Mochi/readify/internal/domain/cart"
	"github.com/Zhima-Mochi/readify/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/readify/internal/domain/wishlist"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/pkg/objectid"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"

	"go.opentelemetry.io/otel/attribute"
)

const wishlistService = "wishlist-service"

type Deps struct {
	Wishlists domain.Repository
	Carts     domcart.Repository
	Books     book.Repository
	Stocks    inventory.Repository
	Tx        application.TxRunner
	IDs       application.IDGenerator
}

type Service struct {
	wishlists domain.Repository
	carts     domcart.Repository
	books     book.Repository
	stocks    inventory.Repository
	tx        application.TxRunner
	ids       application.IDGenerator
	inst      *application.Instrumentation
}

func NewService(d Deps, tel observability.Observability) *Service {
	return &Service{
		wishlists: d.Wishlists,
		carts:     d.Carts,
		books:     d.Books,
		stocks:    d.Stocks,
		tx:        d.Tx,
		ids:       d.IDs,
		inst:      application.NewInstrumentation(wishlistService, tel),
	}
}

// Entry is a wishlist item with its book, nil when the book no longer exists.
type Entry struct {
	Item *domain.Item
	Book *book.Book
}

// Failure explains why one book of a bulk move stayed in the wishlist.
type Failure struct {
	BookID string
	Reason string
}

type BulkMoveResult struct {
	Success []string
	Failed  []Failure
}

type BulkRemoveResult struct {
	DeletedCount   int64
	RequestedCount int
}

func checkUser(actor application.Actor) error {
	if actor.UserID == "" {
		return application.ErrUnauthorized
	}
	return nil
}

func checkBookIDs(ids ...string) error {
	if !objectid.AllValid(ids) {
		return application.NewValidation("invalid bookId")
	}
	return nil
}

func (s *Service) AddToWishlist(ctx context.Context, actor application.Actor, bookID string) (_ *domain.Item, err error) {
	ctx, call := s.inst.Start(ctx, "wishlist.add", "AddToWishlist", attribute.String("book.id", bookID))
	defer call.End(&err)

	if err = checkUser(actor); err != nil {
		return nil, err
	}
	if err = checkBookIDs(bookID); err != nil {
		return nil, err
	}
	if _, err = s.books.Get(ctx, bookID); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	exists, err := s.wishlists.Exists(ctx, actor.UserID, bookID)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if exists {
		return nil, domain.ErrAlreadyExists
	}
	it := domain.NewItem(s.ids.NewID(), actor.UserID, bookID)
	if err = s.wishlists.Insert(ctx, it); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return it, nil
}

func (s *Service) GetWishlist(ctx context.Context, actor application.Actor, q application.ListQuery) (_ paging.Result[Entry], err error) {
	ctx, call := s.inst.Start(ctx, "wishlist.get", "GetWishlist")
	defer call.End(&err)

	if err = checkUser(actor); err != nil {
		return paging.Result[Entry]{}, err
	}
	p := q.Params()
	items, total, err := s.wishlists.List(ctx, actor.UserID, p)
	if err != nil {
		return paging.Result[Entry]{}, application.WrapRepositoryError(err)
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.BookID)
	}
	books, err := s.books.GetMany(ctx, ids)
	if err != nil {
		return paging.Result[Entry]{}, application.WrapRepositoryError(err)
	}
	byID := make(map[string]*book.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, Entry{Item: it, Book: byID[it.BookID]})
	}
	return paging.NewResult(entries, p, total), nil
}

func (s *Service) CountWishlist(ctx context.Context, actor application.Actor) (_ int64, err error) {
	ctx, call := s.inst.Start(ctx, "wishlist.count", "CountWishlist")
	defer call.End(&err)

	if err = checkUser(actor); err != nil {
		return 0, err
	}
	n, err := s.wishlists.Count(ctx, actor.UserID)
	return n, application.WrapRepositoryError(err)
}

func (s *Service) IsInWishlist(ctx context.Context, actor application.Actor, bookID string) (_ bool, err error) {
	ctx, call := s.inst.Start(ctx, "wishlist.exists", "IsInWishlist", attribute.String("book.id", bookID))
	defer call.End(&err)

	if err = checkUser(actor); err != nil {
		return false, err
	}
	if err = checkBookIDs(bookID); err != nil {
		return false, err
	}
	ok, err := s.wishlists.Exists(ctx, actor.UserID, bookID)
	return ok, application.WrapRepositoryError(err)
}

func (s *Service) RemoveFromWishlist(ctx context.Context, actor application.Actor, bookID string) (err error) {
	ctx, call := s.inst.Start(ctx, "wishlist.remove", "RemoveFromWishlist", attribute.String("book.id", bookID))
	defer call.End(&err)

	if err = checkUser(actor); err != nil {
		return err
	}
	if err = checkBookIDs(bookID); err != nil {
		return err
	}
	return application.WrapRepositoryError(s.wishlists.Delete(ctx, actor.UserID, bookID))
}

func (s *Service) ClearWishlist(ctx context.Context, actor application.Actor) (_ int64, err error) {
	ctx, call := s.inst.Start(ctx, "wishlist.clear", "ClearWishlist")
	defer call.End(&err)

	if err = checkUser(actor); err != nil {
		return 0, err
	}
	n, err := s.wishlists.Clear(ctx, actor.UserID)
	if err != nil {
		return 0, application.WrapRepositoryError(err)
	}
	call.Field("deleted", n)
	return n, nil
}

// MoveToCart adds one unit of the book to the cart and drops it from the wishlist.
func (s *Service) MoveToCart(ctx context.Context, actor application.Actor, bookID string) (err error) {
	ctx, call := s.inst.Start(ctx, "wishlist.move_to_cart", "MoveToCart", attribute.String("book.id", bookID))
	defer call.End(&err)

	if err = checkUser(actor); err != nil {
		return err
	}
	if err = checkBookIDs(bookID); err != nil {
		return err
	}
	return s.moveOne(ctx, actor.UserID, bookID)
}

func (s *Service) moveOne(ctx context.Context, userID, bookID string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.wishlists.Exists(ctx, userID, bookID)
		if err != nil {
			return application.WrapRepositoryError(err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		st, err := s.stocks.GetByBook(ctx, bookID)
		if err != nil {
			return application.WrapRepositoryError(err)
		}
		if st.Quantity < 1 {
			return inventory.ErrOutOfStock
		}

		it, err := s.carts.Get(ctx, userID, bookID)
		switch {
		case err == nil:
			if it.Quantity+1 > st.Quantity {
				return domcart.ErrNotEnoughStock.Withf("Not enough stock. Available: %d, In cart: %d", st.Quantity, it.Quantity)
			}
			if err := it.SetQuantity(it.Quantity + 1); err != nil {
				return err
			}
			if err := s.carts.Update(ctx, it); err != nil {
				return application.WrapRepositoryError(err)
			}
		case errors.Is(err, domcart.ErrItemNotFound):
			it, err = domcart.NewItem(s.ids.NewID(), userID, bookID, 1)
			if err != nil {
				return err
			}
			if err := s.carts.Insert(ctx, it); err != nil {
				return application.WrapRepositoryError(err)
			}
		default:
			return application.WrapRepositoryError(err)
		}
		return application.WrapRepositoryError(s.wishlists.Delete(ctx, userID, bookID))
	})
}

// BulkMoveToCart moves each book independently and reports a reason for every one left behind.
func (s *Service) BulkMoveToCart(ctx context.Context, actor application.Actor, bookIDs []string) (_ BulkMoveResult, err error) {
	ctx, call := s.inst.Start(ctx, "wishlist.bulk_move_to_cart", "BulkMoveToCart", attribute.Int("wishlist.requested", len(bookIDs)))
	defer call.End(&err)

	if err = checkUser(actor); err != nil {
		return BulkMoveResult{}, err
	}
	if err = checkBookIDs(bookIDs...); err != nil {
		return BulkMoveResult{}, err
	}
	res := BulkMoveResult{Success: []string{}, Failed: []Failure{}}
	for _, id := range bookIDs {
		if err := s.moveOne(ctx, actor.UserID, id); err != nil {
			res.Failed = append(res.Failed, Failure{BookID: id, Reason: reasonOf(err)})
			continue
		}
		res.Success = append(res.Success, id)
	}
	call.Field("moved", len(res.Success))
	call.Field("failed", len(res.Failed))
	return res, nil
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.ReasonNotInWishlist
	case errors.Is(err, inventory.ErrOutOfStock), errors.Is(err, inventory.ErrNotFound):
		return domain.ReasonOutOfStock
	case errors.Is(err, domcart.ErrNotEnoughStock):
		return domain.ReasonNotEnoughStock
	default:
		return domain.ReasonProcessingError
	}
}

func (s *Service) BulkRemove(ctx context.Context, actor application.Actor, bookIDs []string) (_ BulkRemoveResult, err error) {
	ctx, call := s.inst.Start(ctx, "wishlist.bulk_remove", "BulkRemove", attribute.Int("wishlist.requested", len(bookIDs)))
	defer call.End(&err)

	if err = checkUser(actor); err != nil {
		return BulkRemoveResult{}, err
	}
	if err = checkBookIDs(bookIDs...); err != nil {
		return BulkRemoveResult{}, err
	}
	n, err := s.wishlists.DeleteMany(ctx, actor.UserID, bookIDs)
	if err != nil {
		return BulkRemoveResult{}, application.WrapRepositoryError(err)
	}
	return BulkRemoveResult{DeletedCount: n, RequestedCount: len(bookIDs)}, nil
}
