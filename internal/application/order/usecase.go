package order

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/readify/internal/application"
	"github.com/Zhima-Mochi/readify/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/readify/internal/domain/order"
	"github.com/Zhima-Mochi/readify/internal/domain/promotion"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/pkg/objectid"

	"go.opentelemetry.io/otel/attribute"
)

type CreateOrderCommand struct {
	Actor               application.Actor
	SelectedCartItemIDs []string
	ShippingAddress     string
	PaymentMethod       domain.PaymentMethod
	Note                string
	PromotionCode       string
	ClientIP            string
}

type CreateOrderResult struct {
	Order *domain.Order
	// PaymentURL is set for VNPAY orders.
	PaymentURL string
}

// CreateOrderUseCase turns selected cart items into a PENDING order. Stock, the order code, the
// order itself, promotion usage and the cart cleanup commit together or not at all.
type CreateOrderUseCase struct {
	d     Deps
	clock application.Clock
	inst  *application.Instrumentation
}

var _ application.UseCase[CreateOrderCommand, *CreateOrderResult] = (*CreateOrderUseCase)(nil)

func NewCreateOrderUseCase(d Deps, tel observability.Observability) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		d:     d.withDefaults(),
		clock: application.SystemClock,
		inst:  application.NewInstrumentation(orderService, tel),
	}
}

func (uc *CreateOrderUseCase) WithClock(c application.Clock) *CreateOrderUseCase {
	uc.clock = c
	return uc
}

func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderCommand) (_ *CreateOrderResult, err error) {
	ctx, call := uc.inst.Start(ctx, "order.create", "CreateOrder",
		attribute.String("order.customer_id", cmd.Actor.UserID),
		attribute.String("order.payment_method", string(cmd.PaymentMethod)),
		attribute.Int("order.selected_items", len(cmd.SelectedCartItemIDs)),
	)
	defer call.End(&err)

	if !cmd.Actor.IsCustomer() {
		return nil, application.ErrForbidden
	}
	ids := cmd.SelectedCartItemIDs
	if len(ids) == 0 {
		return nil, domain.ErrEmptySelection
	}
	if !objectid.AllValid(ids) {
		return nil, application.NewValidation("selectedCartItemIds contains an invalid id")
	}
	if len(objectid.Unique(ids)) != len(ids) {
		return nil, application.NewValidation("selectedCartItemIds must be unique")
	}
	address, err := domain.CheckAddress(cmd.ShippingAddress)
	if err != nil {
		return nil, err
	}
	if !cmd.PaymentMethod.Valid() {
		return nil, domain.ErrInvalidMethod
	}

	lines, err := uc.price(ctx, cmd.Actor.UserID, ids)
	if err != nil {
		return nil, err
	}
	total := domain.Total(lines)

	var promo *promotion.Promotion
	var applied *domain.AppliedPromotion
	if code := promotion.NormalizeCode(cmd.PromotionCode); code != "" {
		promo, err = uc.d.Promotions.GetByCode(ctx, code)
		if err != nil {
			return nil, application.WrapRepositoryError(err)
		}
		if err = promo.Validate(cmd.Actor.UserID, total, uc.clock()); err != nil {
			return nil, err
		}
		applied = &domain.AppliedPromotion{PromotionID: promo.ID, Code: promo.Code, DiscountAmount: promo.Discount(total)}
	}

	var o *domain.Order
	err = uc.d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, l := range lines {
			if err := uc.d.Stocks.Decrement(ctx, l.BookID, l.Quantity); err != nil {
				if errors.Is(err, inventory.ErrInsufficientStock) {
					return domain.ErrInsufficientStock.Withf("Insufficient stock for %q", l.Title)
				}
				return application.WrapRepositoryError(err)
			}
		}
		code, err := uc.d.Orders.NextCode(ctx)
		if err != nil {
			return application.WrapRepositoryError(err)
		}
		o, err = domain.New(uc.d.IDs.NewID(), code, cmd.Actor.UserID, lines, address, cmd.PaymentMethod, cmd.Note, applied)
		if err != nil {
			return err
		}
		if err := uc.d.Orders.Insert(ctx, o); err != nil {
			return application.WrapRepositoryError(err)
		}
		if promo != nil {
			if err := uc.d.Promotions.Redeem(ctx, promo.ID, cmd.Actor.UserID); err != nil {
				return application.WrapRepositoryError(err)
			}
			entry := promotion.NewLog(uc.d.IDs.NewID(), promo, promotion.ActionApply, cmd.Actor.UserID, promotion.RequestMeta{IPAddress: cmd.ClientIP})
			entry.Note = promotion.ApplyNote(o.Code, applied.DiscountAmount)
			if err := uc.d.PromotionLogs.Insert(ctx, entry); err != nil {
				return application.WrapRepositoryError(err)
			}
		}
		_, err = uc.d.Carts.DeleteByIDs(ctx, cmd.Actor.UserID, ids)
		return application.WrapRepositoryError(err)
	})
	if err != nil {
		return nil, err
	}

	call.Field("order_id", o.ID)
	call.Field("order_code", o.Code)
	call.Event("order.created", attribute.String("order.id", o.ID), attribute.Int64("order.final_amount", o.FinalAmount))
	if pubErr := uc.inst.Publish(ctx, uc.d.Publisher, domain.NewCreatedEvent(o)); pubErr != nil {
		call.Status("EVENT_PUBLISH_FAILED")
	}
	if promo != nil {
		ev := promotion.AppliedEvent{
			PromotionID:    promo.ID,
			Code:           promo.Code,
			UserID:         o.UserID,
			OrderID:        o.ID,
			OrderCode:      o.Code,
			DiscountAmount: o.DiscountAmount,
			OccurredAt:     uc.clock(),
		}
		if pubErr := uc.inst.Publish(ctx, uc.d.Publisher, ev); pubErr != nil {
			call.Status("EVENT_PUBLISH_FAILED")
		}
	}

	res := &CreateOrderResult{Order: o}
	if o.PaymentMethod == domain.PaymentVNPay {
		uc.startOnlinePayment(ctx, call, o, cmd.ClientIP, res)
	}
	return res, nil
}

// price loads the selected cart lines and snapshots the current stock price for each.
func (uc *CreateOrderUseCase) price(ctx context.Context, userID string, ids []string) ([]domain.Line, error) {
	items, err := uc.d.Carts.GetByIDs(ctx, userID, ids)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if len(items) != len(ids) {
		return nil, domain.ErrCartMismatch
	}
	bookIDs := make([]string, 0, len(items))
	for _, it := range items {
		bookIDs = append(bookIDs, it.BookID)
	}
	stocks, err := uc.d.Stocks.GetByBooks(ctx, bookIDs)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if len(stocks) != len(bookIDs) {
		return nil, domain.ErrStockMismatch
	}
	books, err := uc.d.Books.GetMany(ctx, bookIDs)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	titles := make(map[string]string, len(books))
	for _, b := range books {
		titles[b.ID] = b.Title
	}
	prices := make(map[string]int64, len(stocks))
	for _, st := range stocks {
		prices[st.BookID] = st.Price
	}

	lines := make([]domain.Line, 0, len(items))
	for _, it := range items {
		l, err := domain.NewLine(it.BookID, titles[it.BookID], it.Quantity, prices[it.BookID])
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// startOnlinePayment builds the gateway URL and schedules expiry. The order is already committed,
// so failures here are logged and leave the order payable later.
func (uc *CreateOrderUseCase) startOnlinePayment(ctx context.Context, call *application.Call, o *domain.Order, clientIP string, res *CreateOrderResult) {
	if uc.d.Payments != nil {
		url, err := uc.d.Payments.PaymentURLFor(ctx, o, clientIP)
		if err != nil {
			call.Status("PAYMENT_URL_FAILED")
			call.Logger().Warn("payment_url_failed", observability.F("order_id", o.ID), observability.F("error", err.Error()))
		} else {
			res.PaymentURL = url
		}
	}
	if err := uc.d.Expiry.ScheduleExpiry(ctx, o.ID, uc.d.ExpireAfter); err != nil {
		call.Status("EXPIRY_SCHEDULE_FAILED")
		call.Logger().Warn("order_expiry_schedule_failed", observability.F("order_id", o.ID), observability.F("error", err.Error()))
	}
}
