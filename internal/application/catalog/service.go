// Package catalog holds the category, book and media use cases.
package catalog

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/application"
	domaccount "github.com/Zhima-Mochi/readify/internal/domain/account"
	"github.com/Zhima-Mochi/readify/internal/domain/book"
	"github.com/Zhima-Mochi/readify/internal/domain/category"
	"github.com/Zhima-Mochi/readify/internal/domain/inventory"
	"github.com/Zhima-Mochi/readify/internal/domain/media"
	"github.com/Zhima-Mochi/readify/internal/observability"
)

const catalogService = "catalog-service"

// BookCache fronts the public book detail lookup.
type BookCache interface {
	GetOrLoad(ctx context.Context, slug string, load func(ctx context.Context) (*book.Book, error)) (*book.Book, error)
	Invalidate(ctx context.Context, slugs ...string) error
}

// NopBookCache always loads from the repository.
type NopBookCache struct{}

func (NopBookCache) GetOrLoad(ctx context.Context, _ string, load func(ctx context.Context) (*book.Book, error)) (*book.Book, error) {
	return load(ctx)
}

func (NopBookCache) Invalidate(context.Context, ...string) error { return nil }

type Deps struct {
	Categories category.Repository
	Books      book.Repository
	Media      media.Repository
	Stocks     inventory.Repository
	Accounts   domaccount.Repository
	Tx         application.TxRunner
	IDs        application.IDGenerator
	Cache      BookCache
}

type Service struct {
	categories category.Repository
	books      book.Repository
	media      media.Repository
	stocks     inventory.Repository
	accounts   domaccount.Repository
	tx         application.TxRunner
	ids        application.IDGenerator
	cache      BookCache
	clock      application.Clock
	inst       *application.Instrumentation
}

func NewService(d Deps, tel observability.Observability) *Service {
	cache := d.Cache
	if cache == nil {
		cache = NopBookCache{}
	}
	return &Service{
		categories: d.Categories,
		books:      d.Books,
		media:      d.Media,
		stocks:     d.Stocks,
		accounts:   d.Accounts,
		tx:         d.Tx,
		ids:        d.IDs,
		cache:      cache,
		clock:      application.SystemClock,
		inst:       application.NewInstrumentation(catalogService, tel),
	}
}

func (s *Service) WithClock(c application.Clock) *Service {
	s.clock = c
	return s
}

func requireStaff(actor application.Actor) error {
	if !actor.IsStaff() {
		return application.ErrForbidden
	}
	return nil
}
