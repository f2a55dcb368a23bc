// Package cart holds the shopping cart use cases.
package cart

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/readify/internal/application"
	"github.com/Zhima-Mochi/readify/internal/domain/book"
	domcart "github.com/Zhima-Mochi/readify/internal/domain/cart"
	"github.com/Zhima-Mochi/readify/internal/domain/inventory"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/pkg/objectid"

	"go.opentelemetry.io/otel/attribute"
)

const cartService = "cart-service"

type Service struct {
	carts  domcart.Repository
	books  book.Repository
	stocks inventory.Repository
	ids    application.IDGenerator
	inst   *application.Instrumentation
}

func NewService(carts domcart.Repository, books book.Repository, stocks inventory.Repository, ids application.IDGenerator, tel observability.Observability) *Service {
	return &Service{
		carts:  carts,
		books:  books,
		stocks: stocks,
		ids:    ids,
		inst:   application.NewInstrumentation(cartService, tel),
	}
}

// Line is a cart item joined with its book and current stock.
type Line struct {
	Item      *domcart.Item
	Book      *book.Book
	UnitPrice int64
	InStock   int
	// Available is false when the book is gone or has no stock left.
	Available bool
	// Clamped reports that the quantity was lowered to the available stock.
	Clamped bool
}

func (l Line) Subtotal() int64 { return l.UnitPrice * int64(l.Item.Quantity) }

func requireUser(actor application.Actor) error {
	if actor.UserID == "" {
		return application.ErrUnauthorized
	}
	return nil
}

func checkBookID(id string) error {
	if !objectid.Valid(id) {
		return application.NewValidation("invalid bookId")
	}
	return nil
}

// AddToCart adds qty of a book, merging into an existing line. The resulting quantity must fit the stock.
func (s *Service) AddToCart(ctx context.Context, actor application.Actor, bookID string, qty int) (_ *domcart.Item, err error) {
	ctx, call := s.inst.Start(ctx, "cart.add_to_cart", "AddToCart",
		attribute.String("book.id", bookID),
		attribute.Int("cart.quantity", qty),
	)
	defer call.End(&err)

	if err = requireUser(actor); err != nil {
		return nil, err
	}
	if err = checkBookID(bookID); err != nil {
		return nil, err
	}
	if qty == 0 {
		qty = 1
	}
	if qty < 1 {
		return nil, domcart.ErrInvalidQuantity
	}
	stock, err := s.sellable(ctx, bookID)
	if err != nil {
		return nil, err
	}

	existing, err := s.carts.Get(ctx, actor.UserID, bookID)
	switch {
	case err == nil:
		want := existing.Quantity + qty
		if want > stock.Quantity {
			return nil, domcart.NotEnoughStock(stock.Quantity, want)
		}
		if err = existing.SetQuantity(want); err != nil {
			return nil, err
		}
		if err = s.carts.Update(ctx, existing); err != nil {
			return nil, application.WrapRepositoryError(err)
		}
		call.Field("merged", true)
		return existing, nil
	case !errors.Is(err, domcart.ErrItemNotFound):
		return nil, application.WrapRepositoryError(err)
	}

	if qty > stock.Quantity {
		return nil, domcart.NotEnoughStock(stock.Quantity, qty)
	}
	it, err := domcart.NewItem(s.ids.NewID(), actor.UserID, bookID, qty)
	if err != nil {
		return nil, err
	}
	if err = s.carts.Insert(ctx, it); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return it, nil
}

// sellable loads the stock of a live book.
func (s *Service) sellable(ctx context.Context, bookID string) (*inventory.Stock, error) {
	b, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if b.IsDeleted {
		return nil, book.ErrNotFound
	}
	st, err := s.stocks.GetByBook(ctx, bookID)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return st, nil
}

func (s *Service) UpdateQuantity(ctx context.Context, actor application.Actor, bookID string, qty int) (_ *domcart.Item, err error) {
	ctx, call := s.inst.Start(ctx, "cart.update_quantity", "UpdateQuantity",
		attribute.String("book.id", bookID),
		attribute.Int("cart.quantity", qty),
	)
	defer call.End(&err)

	if err = requireUser(actor); err != nil {
		return nil, err
	}
	if err = checkBookID(bookID); err != nil {
		return nil, err
	}
	it, err := s.carts.Get(ctx, actor.UserID, bookID)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if qty < 1 {
		return nil, domcart.ErrInvalidQuantity
	}
	st, err := s.stocks.GetByBook(ctx, bookID)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if qty > st.Quantity {
		return nil, domcart.NotEnoughStock(st.Quantity, qty)
	}
	if err = it.SetQuantity(qty); err != nil {
		return nil, err
	}
	if err = s.carts.Update(ctx, it); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return it, nil
}

func (s *Service) RemoveFromCart(ctx context.Context, actor application.Actor, bookID string) (err error) {
	ctx, call := s.inst.Start(ctx, "cart.remove_from_cart", "RemoveFromCart", attribute.String("book.id", bookID))
	defer call.End(&err)

	if err = requireUser(actor); err != nil {
		return err
	}
	if err = checkBookID(bookID); err != nil {
		return err
	}
	return application.WrapRepositoryError(s.carts.Delete(ctx, actor.UserID, bookID))
}

func (s *Service) ClearCart(ctx context.Context, actor application.Actor) (_ int64, err error) {
	ctx, call := s.inst.Start(ctx, "cart.clear_cart", "ClearCart")
	defer call.End(&err)

	if err = requireUser(actor); err != nil {
		return 0, err
	}
	n, err := s.carts.Clear(ctx, actor.UserID)
	if err != nil {
		return 0, application.WrapRepositoryError(err)
	}
	call.Field("deleted", n)
	return n, nil
}

// GetCart returns every line newest first. Lines above the current stock are clamped and saved.
func (s *Service) GetCart(ctx context.Context, actor application.Actor) (_ []Line, err error) {
	ctx, call := s.inst.Start(ctx, "cart.get_cart", "GetCart")
	defer call.End(&err)

	if err = requireUser(actor); err != nil {
		return nil, err
	}
	items, err := s.carts.List(ctx, actor.UserID)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	lines, err := s.lines(ctx, call, items)
	if err != nil {
		return nil, err
	}
	call.Field("lines", len(lines))
	return lines, nil
}

func (s *Service) GetSelectedItems(ctx context.Context, actor application.Actor) (_ []Line, err error) {
	ctx, call := s.inst.Start(ctx, "cart.get_selected_items", "GetSelectedItems")
	defer call.End(&err)

	if err = requireUser(actor); err != nil {
		return nil, err
	}
	items, err := s.carts.ListSelected(ctx, actor.UserID)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return s.lines(ctx, call, items)
}

func (s *Service) GetCartItem(ctx context.Context, actor application.Actor, bookID string) (_ Line, err error) {
	ctx, call := s.inst.Start(ctx, "cart.get_cart_item", "GetCartItem", attribute.String("book.id", bookID))
	defer call.End(&err)

	if err = requireUser(actor); err != nil {
		return Line{}, err
	}
	if err = checkBookID(bookID); err != nil {
		return Line{}, err
	}
	it, err := s.carts.Get(ctx, actor.UserID, bookID)
	if err != nil {
		return Line{}, application.WrapRepositoryError(err)
	}
	lines, err := s.lines(ctx, call, []*domcart.Item{it})
	if err != nil {
		return Line{}, err
	}
	return lines[0], nil
}

func (s *Service) CountCartItems(ctx context.Context, actor application.Actor) (_ int64, err error) {
	ctx, call := s.inst.Start(ctx, "cart.count_cart_items", "CountCartItems")
	defer call.End(&err)

	if err = requireUser(actor); err != nil {
		return 0, err
	}
	n, err := s.carts.Count(ctx, actor.UserID)
	return n, application.WrapRepositoryError(err)
}

func (s *Service) lines(ctx context.Context, call *application.Call, items []*domcart.Item) ([]Line, error) {
	if len(items) == 0 {
		return []Line{}, nil
	}
	bookIDs := make([]string, 0, len(items))
	for _, it := range items {
		bookIDs = append(bookIDs, it.BookID)
	}
	books, err := s.books.GetMany(ctx, bookIDs)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	stocks, err := s.stocks.GetByBooks(ctx, bookIDs)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	bookByID := make(map[string]*book.Book, len(books))
	for _, b := range books {
		bookByID[b.ID] = b
	}
	stockByBook := make(map[string]*inventory.Stock, len(stocks))
	for _, st := range stocks {
		stockByBook[st.BookID] = st
	}

	out := make([]Line, 0, len(items))
	clamped := 0
	for _, it := range items {
		line := Line{Item: it, Book: bookByID[it.BookID]}
		st := stockByBook[it.BookID]
		if st != nil {
			line.UnitPrice = st.Price
			line.InStock = st.Quantity
		}
		line.Available = line.Book != nil && !line.Book.IsDeleted && st != nil && st.Quantity > 0
		if line.Available && it.Quantity > st.Quantity {
			if err := it.SetQuantity(st.Quantity); err != nil {
				return nil, err
			}
			if err := s.carts.Update(ctx, it); err != nil {
				return nil, application.WrapRepositoryError(err)
			}
			line.Clamped = true
			clamped++
		}
		out = append(out, line)
	}
	if clamped > 0 {
		call.Field("clamped", clamped)
	}
	return out, nil
}
