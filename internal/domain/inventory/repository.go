package inventory

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

type Repository interface {
	Insert(ctx context.Context, s *Stock) error
	GetByBook(ctx context.Context, bookID string) (*Stock, error)
	GetByBooks(ctx context.Context, bookIDs []string) ([]*Stock, error)
	Update(ctx context.Context, s *Stock) error
	// Decrement subtracts qty only when at least qty units are available, else ErrInsufficientStock.
	Decrement(ctx context.Context, bookID string, qty int) error
	Increment(ctx context.Context, bookID string, qty int) error
	InStockBookIDs(ctx context.Context) ([]string, error)
	List(ctx context.Context, p paging.Params) ([]*Stock, int64, error)
}
