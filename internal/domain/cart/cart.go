package cart

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain"
)

var (
	ErrItemNotFound    = domain.NewError(domain.ErrNotFound, "CART_ITEM_NOT_FOUND", "cart: item not found")
	ErrItemExists      = domain.NewError(domain.ErrInvalid, "CART_ITEM_EXISTS", "cart: book is already in the cart")
	ErrInvalidQuantity = domain.NewError(domain.ErrInvalid, "CART_QUANTITY_INVALID", "cart: quantity must be at least 1")
	ErrNotEnoughStock  = domain.NewError(domain.ErrInvalid, "NOT_ENOUGH_STOCK", "cart: not enough stock")
)

// NotEnoughStock formats the stock shortage message with both figures.
func NotEnoughStock(available, requested int) error {
	return ErrNotEnoughStock.Withf("Not enough stock. Available: %d, Requested: %d", available, requested)
}

type Item struct {
	ID         string
	UserID     string
	BookID     string
	Quantity   int
	IsSelected bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewItem(id, userID, bookID string, qty int) (*Item, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	now := time.Now().UTC()
	return &Item{
		ID:         id,
		UserID:     userID,
		BookID:     bookID,
		Quantity:   qty,
		IsSelected: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (i *Item) SetQuantity(qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	i.Quantity = qty
	i.touch()
	return nil
}

func (i *Item) Select(selected bool) {
	i.IsSelected = selected
	i.touch()
}

func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

func (i *Item) touch() { i.UpdatedAt = time.Now().UTC() }

type Repository interface {
	// Insert fails with ErrItemExists when the user already has the book in the cart.
	Insert(ctx context.Context, it *Item) error
	Get(ctx context.Context, userID, bookID string) (*Item, error)
	GetByIDs(ctx context.Context, userID string, ids []string) ([]*Item, error)
	// List returns the newest items first.
	List(ctx context.Context, userID string) ([]*Item, error)
	ListSelected(ctx context.Context, userID string) ([]*Item, error)
	Update(ctx context.Context, it *Item) error
	Delete(ctx context.Context, userID, bookID string) error
	DeleteByIDs(ctx context.Context, userID string, ids []string) (int64, error)
	Clear(ctx context.Context, userID string) (int64, error)
	Count(ctx context.Context, userID string) (int64, error)
	SetSelectionAll(ctx context.Context, userID string, selected bool) (int64, error)
}
