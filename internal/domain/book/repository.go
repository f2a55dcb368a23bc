package book

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

// Public storefront sort keys.
const (
	SortNewest      = "newest"
	SortOldest      = "oldest"
	SortPriceAsc    = "price_asc"
	SortPriceDesc   = "price_desc"
	SortBestSelling = "best_selling"
)

var SortKeys = []string{SortNewest, SortOldest, SortPriceAsc, SortPriceDesc, SortBestSelling}

const (
	DefaultPageSize   = 12
	DefaultSuggestMax = 6
	MaxSuggest        = 10
	MinSuggestQuery   = 2
)

type ListFilter struct {
	// PublicOnly restricts to non-deleted books with status active.
	PublicOnly bool
	CategoryID string
	MinPrice   *int64
	MaxPrice   *int64
	// IDs restricts the result when non-nil; an empty non-nil slice matches nothing.
	IDs       []string
	Query     string
	Status    *Status
	IsDeleted *bool
	Sort      string
	Paging    paging.Params
}

type Repository interface {
	Insert(ctx context.Context, b *Book) error
	Get(ctx context.Context, id string) (*Book, error)
	GetBySlug(ctx context.Context, slug string) (*Book, error)
	GetMany(ctx context.Context, ids []string) ([]*Book, error)
	Update(ctx context.Context, b *Book) error
	SlugTaken(ctx context.Context, slug, excludeID string) (bool, error)
	ISBNTaken(ctx context.Context, isbn, excludeID string) (bool, error)
	List(ctx context.Context, f ListFilter) ([]*Book, int64, error)
	// Suggest returns public books matching q on title or authors, best sellers first.
	Suggest(ctx context.Context, q string, limit int) ([]*Book, error)
	IncSold(ctx context.Context, id string, qty int) error
	SetRating(ctx context.Context, id string, avg float64, count int64) error
}
