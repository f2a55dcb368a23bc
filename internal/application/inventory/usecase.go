package inventory

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/application"
	domaccount "github.com/Zhima-Mochi/readify/internal/domain/account"
	dominv "github.com/Zhima-Mochi/readify/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/readify/internal/domain/outbox"
	"github.com/Zhima-Mochi/readify/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

type AdjustStockCommand struct {
	Actor    application.Actor
	BookID   string
	Quantity int
	Price    int64
}

// AdjustStockUseCase sets the absolute quantity and price of a book. Admins and warehouse staff only.
type AdjustStockUseCase struct {
	stocks    dominv.Repository
	publisher domoutbox.Publisher
	inst      *application.Instrumentation
}

var _ application.UseCase[AdjustStockCommand, *dominv.Stock] = (*AdjustStockUseCase)(nil)

func NewAdjustStockUseCase(stocks dominv.Repository, publisher domoutbox.Publisher, tel observability.Observability) *AdjustStockUseCase {
	return &AdjustStockUseCase{
		stocks:    stocks,
		publisher: publisher,
		inst:      application.NewInstrumentation(inventoryService, tel),
	}
}

func (uc *AdjustStockUseCase) Execute(ctx context.Context, cmd AdjustStockCommand) (_ *dominv.Stock, err error) {
	ctx, call := uc.inst.Start(ctx, "inventory.adjust_stock", "AdjustStock",
		attribute.String("book.id", cmd.BookID),
		attribute.Int("stock.quantity", cmd.Quantity),
	)
	defer call.End(&err)

	if !cmd.Actor.HasRole(domaccount.RoleAdmin, domaccount.RoleWarehouse) {
		return nil, application.ErrForbidden
	}
	st, err := uc.stocks.GetByBook(ctx, cmd.BookID)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	oldQty := st.Quantity
	if err = st.Adjust(cmd.Quantity, cmd.Price); err != nil {
		return nil, err
	}
	if err = uc.stocks.Update(ctx, st); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	call.Event("inventory.adjusted", attribute.Int("stock.old_quantity", oldQty))
	if pubErr := uc.inst.Publish(ctx, uc.publisher, dominv.NewStockAdjustedEvent(st, oldQty, cmd.Actor.UserID)); pubErr != nil {
		call.Status("EVENT_PUBLISH_FAILED")
	}
	return st, nil
}
