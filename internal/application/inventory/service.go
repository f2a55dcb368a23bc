// Package inventory holds the back-office stock use cases.
package inventory

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/application"
	dominv "github.com/Zhima-Mochi/readify/internal/domain/inventory"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"

	"go.opentelemetry.io/otel/attribute"
)

const inventoryService = "inventory-service"

type Service struct {
	stocks dominv.Repository
	inst   *application.Instrumentation
}

func NewService(stocks dominv.Repository, tel observability.Observability) *Service {
	return &Service{
		stocks: stocks,
		inst:   application.NewInstrumentation(inventoryService, tel),
	}
}

func (s *Service) ListStocks(ctx context.Context, actor application.Actor, q application.ListQuery) (_ paging.Result[*dominv.Stock], err error) {
	ctx, call := s.inst.Start(ctx, "inventory.list_stocks", "ListStocks")
	defer call.End(&err)

	if !actor.IsStaff() {
		return paging.Result[*dominv.Stock]{}, application.ErrForbidden
	}
	p := q.Params()
	rows, total, err := s.stocks.List(ctx, p)
	if err != nil {
		return paging.Result[*dominv.Stock]{}, application.WrapRepositoryError(err)
	}
	return paging.NewResult(rows, p, total), nil
}

func (s *Service) GetStock(ctx context.Context, actor application.Actor, bookID string) (_ *dominv.Stock, err error) {
	ctx, call := s.inst.Start(ctx, "inventory.get_stock", "GetStock", attribute.String("book.id", bookID))
	defer call.End(&err)

	if !actor.IsStaff() {
		return nil, application.ErrForbidden
	}
	st, err := s.stocks.GetByBook(ctx, bookID)
	return st, application.WrapRepositoryError(err)
}
