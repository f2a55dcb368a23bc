package wishlist

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

var (
	ErrNotFound      = domain.NewError(domain.ErrNotFound, "WISHLIST_ITEM_NOT_FOUND", "wishlist: book not in wishlist")
	ErrAlreadyExists = domain.NewError(domain.ErrConflict, "ALREADY_IN_WISHLIST", "wishlist: book already in wishlist")
)

// Bulk move failure reasons.
const (
	ReasonNotInWishlist   = "Not in wishlist"
	ReasonOutOfStock      = "Book is out of stock"
	ReasonNotEnoughStock  = "Not enough stock"
	ReasonProcessingError = "Processing error"
)

type Item struct {
	ID        string
	UserID    string
	BookID    string
	CreatedAt time.Time
}

func NewItem(id, userID, bookID string) *Item {
	return &Item{ID: id, UserID: userID, BookID: bookID, CreatedAt: time.Now().UTC()}
}

func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

type Repository interface {
	Insert(ctx context.Context, it *Item) error
	Exists(ctx context.Context, userID, bookID string) (bool, error)
	// List orders newest first with id as tiebreak.
	List(ctx context.Context, userID string, p paging.Params) ([]*Item, int64, error)
	Count(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, bookID string) error
	DeleteMany(ctx context.Context, userID string, bookIDs []string) (int64, error)
	Clear(ctx context.Context, userID string) (int64, error)
}
