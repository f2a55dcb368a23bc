package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Zhima-Mochi/readify/internal/application"
	"github.com/Zhima-Mochi/readify/internal/application/apptest"
	domerr "github.com/Zhima-Mochi/readify/internal/domain"
	"github.com/Zhima-Mochi/readify/internal/domain/book"
	domcart "github.com/Zhima-Mochi/readify/internal/domain/cart"
	"github.com/Zhima-Mochi/readify/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/readify/internal/domain/order"
	"github.com/Zhima-Mochi/readify/internal/domain/promotion"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/id"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/pkg/objectid"
	"github.com/Zhima-Mochi/readify/internal/pkg/textutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const address = "12 Nguyen Hue, District 1, HCMC"

type expiryRecorder struct{ ids []string }

func (e *expiryRecorder) ScheduleExpiry(_ context.Context, orderID string, _ time.Duration) error {
	e.ids = append(e.ids, orderID)
	return nil
}

type linker struct{ err error }

func (l linker) PaymentURLFor(_ context.Context, o *domain.Order, _ string) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	return "https://pay.test/" + o.Code, nil
}

type fixture struct {
	store   *memory.Store
	pub     *apptest.Publisher
	expiry  *expiryRecorder
	create  *CreateOrderUseCase
	service *Service
}

func newFixture(payments PaymentLinker) *fixture {
	store := memory.NewStore()
	f := &fixture{store: store, pub: &apptest.Publisher{}, expiry: &expiryRecorder{}}
	d := Deps{
		Orders:        store.Orders(),
		Carts:         store.Carts(),
		Stocks:        store.Inventory(),
		Books:         store.Books(),
		Promotions:    store.Promotions(),
		PromotionLogs: store.PromotionLogs(),
		Tx:            store,
		IDs:           id.NewObjectIDGenerator(),
		Publisher:     f.pub,
		Expiry:        f.expiry,
		Payments:      payments,
	}
	f.create = NewCreateOrderUseCase(d, observability.Nop())
	f.service = NewService(d, observability.Nop())
	return f
}

func (f *fixture) book(t *testing.T, title string, qty int, price int64) string {
	t.Helper()
	ctx := context.Background()
	b, err := book.New(objectid.New(), textutil.Slugify(title), book.Details{Title: title}, []string{objectid.New()}, price, "", book.StatusActive)
	require.NoError(t, err)
	require.NoError(t, f.store.Books().Insert(ctx, b))
	st, err := inventory.NewStock(objectid.New(), b.ID, qty, price, "")
	require.NoError(t, err)
	require.NoError(t, f.store.Inventory().Insert(ctx, st))
	return b.ID
}

// cartItem bypasses the cart service so tests can hold more than is in stock.
func (f *fixture) cartItem(t *testing.T, userID, bookID string, qty int) string {
	t.Helper()
	it, err := domcart.NewItem(objectid.New(), userID, bookID, qty)
	require.NoError(t, err)
	require.NoError(t, f.store.Carts().Insert(context.Background(), it))
	return it.ID
}

func (f *fixture) stock(t *testing.T, bookID string) int {
	t.Helper()
	st, err := f.store.Inventory().GetByBook(context.Background(), bookID)
	require.NoError(t, err)
	return st.Quantity
}

func (f *fixture) promotion(t *testing.T, code string, terms promotion.Terms, limit int64) *promotion.Promotion {
	t.Helper()
	now := time.Now().UTC()
	p, err := promotion.New(objectid.New(), code, code, "", terms, now.Add(-time.Hour), now.Add(24*time.Hour), limit, promotion.StatusActive, apptest.Admin.UserID)
	require.NoError(t, err)
	require.NoError(t, f.store.Promotions().Insert(context.Background(), p))
	return p
}

func (f *fixture) checkout(ctx context.Context, method domain.PaymentMethod, code string, ids ...string) (*CreateOrderResult, error) {
	return f.create.Execute(ctx, CreateOrderCommand{
		Actor:               apptest.Customer,
		SelectedCartItemIDs: ids,
		ShippingAddress:     address,
		PaymentMethod:       method,
		PromotionCode:       code,
	})
}

func TestCreateOrderCOD(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	a := f.book(t, "Cho Toi Xin Mot Ve Di Tuoi Tho", 5, 80_000)
	b := f.book(t, "Toi Thay Hoa Vang Tren Co Xanh", 3, 120_000)
	ia := f.cartItem(t, apptest.Customer.UserID, a, 2)
	ib := f.cartItem(t, apptest.Customer.UserID, b, 1)
	keep := f.cartItem(t, apptest.Customer.UserID, f.book(t, "Mat Biec", 1, 90_000), 1)

	res, err := f.checkout(ctx, domain.PaymentCOD, "", ia, ib)
	require.NoError(t, err)
	o := res.Order
	assert.Equal(t, "ORD20250001", o.Code)
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, domain.PaymentUnpaid, o.PaymentStatus)
	assert.EqualValues(t, 280_000, o.TotalAmount)
	assert.EqualValues(t, 280_000, o.FinalAmount)
	assert.Empty(t, res.PaymentURL)
	assert.Empty(t, f.expiry.ids)

	assert.Equal(t, 3, f.stock(t, a))
	assert.Equal(t, 2, f.stock(t, b))

	left, err := f.store.Carts().List(ctx, apptest.Customer.UserID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, keep, left[0].ID)
	assert.Equal(t, []string{"order.created"}, f.pub.Names())

	res, err = f.checkout(ctx, domain.PaymentCOD, "", f.cartItem(t, apptest.Customer.UserID, a, 1))
	require.NoError(t, err)
	assert.Equal(t, "ORD20250002", res.Order.Code)
}

func TestCreateOrderRollsBackOnInsufficientStock(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	a := f.book(t, "A", 5, 10_000)
	b := f.book(t, "B", 1, 10_000)
	ia := f.cartItem(t, apptest.Customer.UserID, a, 2)
	ib := f.cartItem(t, apptest.Customer.UserID, b, 4)

	_, err := f.checkout(ctx, domain.PaymentCOD, "", ia, ib)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, 5, f.stock(t, a))
	assert.Equal(t, 1, f.stock(t, b))
	n, err := f.store.Carts().Count(ctx, apptest.Customer.UserID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	_, total, err := f.store.Orders().List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, f.pub.Events)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	a := f.book(t, "A", 5, 10_000)
	ia := f.cartItem(t, apptest.Customer.UserID, a, 1)
	other := f.cartItem(t, apptest.Admin.UserID, a, 1)

	cases := []struct {
		name string
		cmd  CreateOrderCommand
		want error
	}{
		{"staff", CreateOrderCommand{Actor: apptest.Seller, SelectedCartItemIDs: []string{ia}, ShippingAddress: address, PaymentMethod: domain.PaymentCOD}, application.ErrForbidden},
		{"empty", CreateOrderCommand{Actor: apptest.Customer, ShippingAddress: address, PaymentMethod: domain.PaymentCOD}, domain.ErrEmptySelection},
		{"short address", CreateOrderCommand{Actor: apptest.Customer, SelectedCartItemIDs: []string{ia}, ShippingAddress: " short ", PaymentMethod: domain.PaymentCOD}, domain.ErrAddressTooShort},
		{"method", CreateOrderCommand{Actor: apptest.Customer, SelectedCartItemIDs: []string{ia}, ShippingAddress: address, PaymentMethod: "CARD"}, domain.ErrInvalidMethod},
		{"foreign cart item", CreateOrderCommand{Actor: apptest.Customer, SelectedCartItemIDs: []string{ia, other}, ShippingAddress: address, PaymentMethod: domain.PaymentCOD}, domain.ErrCartMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.create.Execute(ctx, tc.cmd)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.create.Execute(ctx, CreateOrderCommand{Actor: apptest.Customer, SelectedCartItemIDs: []string{ia, ia}, ShippingAddress: address, PaymentMethod: domain.PaymentCOD})
	assert.Equal(t, "VALIDATION_ERROR", domerr.CodeOf(err))
	assert.Equal(t, 5, f.stock(t, a))
}

func TestCreateOrderWithPromotion(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	a := f.book(t, "A", 5, 100_000)
	p := f.promotion(t, "sale10", promotion.Terms{DiscountType: promotion.DiscountPercent, DiscountValue: 10, MaxDiscount: 15_000}, 10)

	res, err := f.checkout(ctx, domain.PaymentCOD, " Sale10 ", f.cartItem(t, apptest.Customer.UserID, a, 2))
	require.NoError(t, err)
	o := res.Order
	require.NotNil(t, o.Promotion)
	assert.Equal(t, "SALE10", o.Promotion.Code)
	assert.EqualValues(t, 15_000, o.DiscountAmount)
	assert.EqualValues(t, 185_000, o.FinalAmount)
	assert.Equal(t, []string{"order.created", "promotion.applied"}, f.pub.Names())

	stored, err := f.store.Promotions().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.UsedCount)
	assert.True(t, stored.UsedBy(apptest.Customer.UserID))

	logs, _, err := f.store.PromotionLogs().List(ctx, promotion.LogFilter{PromotionID: p.ID, Action: promotion.ActionApply})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Note, o.Code)

	_, err = f.checkout(ctx, domain.PaymentCOD, "SALE10", f.cartItem(t, apptest.Customer.UserID, a, 1))
	assert.ErrorIs(t, err, promotion.ErrAlreadyUsed)
	assert.Equal(t, 3, f.stock(t, a))

	_, err = f.checkout(ctx, domain.PaymentCOD, "NOPE", f.cartItem(t, apptest.Customer.UserID, f.book(t, "B", 1, 1), 1))
	assert.ErrorIs(t, err, promotion.ErrNotFound)
}

func TestCancelOrderReleasesStockAndPromotion(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	a := f.book(t, "A", 5, 100_000)
	p := f.promotion(t, "FIXED", promotion.Terms{DiscountType: promotion.DiscountFixed, DiscountValue: 20_000}, 0)
	res, err := f.checkout(ctx, domain.PaymentCOD, "FIXED", f.cartItem(t, apptest.Customer.UserID, a, 3))
	require.NoError(t, err)
	id := res.Order.ID
	require.Equal(t, 2, f.stock(t, a))

	_, err = f.service.CancelOrder(ctx, apptest.Admin, id)
	assert.ErrorIs(t, err, application.ErrForbidden)

	o, err := f.service.CancelOrder(ctx, apptest.Customer, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, o.Status)
	assert.NotNil(t, o.CancelledAt)
	assert.Equal(t, 5, f.stock(t, a))

	stored, err := f.store.Promotions().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.UsedCount)
	assert.False(t, stored.UsedBy(apptest.Customer.UserID))
	_, n, err := f.store.PromotionLogs().List(ctx, promotion.LogFilter{PromotionID: p.ID, Action: promotion.ActionCancel})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = f.service.CancelOrder(ctx, apptest.Customer, id)
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	assert.Equal(t, 5, f.stock(t, a))
	assert.Equal(t, []string{"order.created", "promotion.applied", "order.cancelled"}, f.pub.Names())
}

func TestCancelOrderLostRace(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	a := f.book(t, "A", 5, 100_000)
	res, err := f.checkout(ctx, domain.PaymentCOD, "", f.cartItem(t, apptest.Customer.UserID, a, 1))
	require.NoError(t, err)

	// the order moves on between load and the status swap
	stale := res.Order.Clone()
	ok, err := f.store.Orders().CompareAndSetStatus(ctx, stale.ID, domain.StatusPending, domain.StatusConfirmed)
	require.NoError(t, err)
	require.True(t, ok)

	_, call := f.service.inst.Start(ctx, "order.cancel", "CancelOrder")
	err = f.service.cancel(ctx, call, stale, apptest.Customer.UserID, reasonCustomer)
	call.End(&err)
	assert.ErrorIs(t, err, domain.ErrConcurrentlyChanged)
	assert.Equal(t, 4, f.stock(t, a))
}

func TestCancelOrderNotOwner(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	res, err := f.checkout(ctx, domain.PaymentCOD, "", f.cartItem(t, apptest.Customer.UserID, f.book(t, "A", 1, 1), 1))
	require.NoError(t, err)

	stranger := application.Actor{UserID: objectid.New(), Role: apptest.Customer.Role}
	_, err = f.service.CancelOrder(ctx, stranger, res.Order.ID)
	assert.ErrorIs(t, err, domain.ErrNotOwner)
	_, err = f.service.GetOrder(ctx, stranger, res.Order.ID)
	assert.ErrorIs(t, err, domain.ErrNotOwner)
	_, err = f.service.GetOrder(ctx, apptest.Seller, res.Order.ID)
	assert.NoError(t, err)
}

func TestCreateOrderVNPay(t *testing.T) {
	f := newFixture(linker{})
	ctx := context.Background()
	res, err := f.checkout(ctx, domain.PaymentVNPay, "", f.cartItem(t, apptest.Customer.UserID, f.book(t, "A", 1, 50_000), 1))
	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/"+res.Order.Code, res.PaymentURL)
	assert.Equal(t, []string{res.Order.ID}, f.expiry.ids)

	f = newFixture(linker{err: errors.New("gateway down")})
	res, err = f.checkout(ctx, domain.PaymentVNPay, "", f.cartItem(t, apptest.Customer.UserID, f.book(t, "A", 1, 50_000), 1))
	require.NoError(t, err)
	assert.Empty(t, res.PaymentURL)
	assert.Len(t, f.expiry.ids, 1)
}

func TestExpireUnpaidOrder(t *testing.T) {
	f := newFixture(linker{})
	ctx := context.Background()
	a := f.book(t, "A", 2, 50_000)
	res, err := f.checkout(ctx, domain.PaymentVNPay, "", f.cartItem(t, apptest.Customer.UserID, a, 2))
	require.NoError(t, err)
	require.Zero(t, f.stock(t, a))

	expired, err := f.service.ExpireUnpaidOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.True(t, expired)
	assert.Equal(t, 2, f.stock(t, a))

	expired, err = f.service.ExpireUnpaidOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.False(t, expired)

	paid, err := f.checkout(ctx, domain.PaymentVNPay, "", f.cartItem(t, apptest.Customer.UserID, a, 1))
	require.NoError(t, err)
	_, err = f.store.Orders().MarkPaid(ctx, paid.Order.ID, domain.Payment{TransactionNo: "1"})
	require.NoError(t, err)
	expired, err = f.service.ExpireUnpaidOrder(ctx, paid.Order.ID)
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, 1, f.stock(t, a))
}

func TestLatePaymentCannotRevive(t *testing.T) {
	f := newFixture(linker{})
	ctx := context.Background()
	a := f.book(t, "A", 5, 50_000)
	p := f.promotion(t, "LATE10", promotion.Terms{DiscountType: promotion.DiscountPercent, DiscountValue: 10}, 10)
	res, err := f.checkout(ctx, domain.PaymentVNPay, "LATE10", f.cartItem(t, apptest.Customer.UserID, a, 2))
	require.NoError(t, err)
	require.Equal(t, 3, f.stock(t, a))

	expired, err := f.service.ExpireUnpaidOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	require.True(t, expired)
	require.Equal(t, 5, f.stock(t, a))

	changed, err := f.store.Orders().MarkPaid(ctx, res.Order.ID, domain.Payment{TransactionNo: "late"})
	require.NoError(t, err)
	assert.False(t, changed)

	cancelled := domain.StatusCancelled
	_, err = f.service.UpdateOrder(ctx, apptest.Admin, res.Order.ID, UpdateOrderInput{Status: &cancelled})
	assert.ErrorIs(t, err, domain.ErrFinalized)
	assert.Equal(t, 5, f.stock(t, a))

	stored, err := f.store.Promotions().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.UsedCount)
	assert.Empty(t, stored.UsedByUsers)
}

func TestUpdateOrderCODTransitions(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	a := f.book(t, "A", 5, 10_000)
	res, err := f.checkout(ctx, domain.PaymentCOD, "", f.cartItem(t, apptest.Customer.UserID, a, 2))
	require.NoError(t, err)
	id := res.Order.ID
	status := func(s domain.Status) *domain.Status { return &s }

	_, err = f.service.UpdateOrder(ctx, apptest.Customer, id, UpdateOrderInput{Status: status(domain.StatusConfirmed)})
	assert.ErrorIs(t, err, application.ErrForbidden)

	_, err = f.service.UpdateOrder(ctx, apptest.Seller, id, UpdateOrderInput{Status: status(domain.StatusDelivered)})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	moved := "99 Le Loi Street, District 3"
	o, err := f.service.UpdateOrder(ctx, apptest.Seller, id, UpdateOrderInput{ShippingAddress: &moved, Status: status(domain.StatusConfirmed)})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, o.Status)
	assert.Equal(t, moved, o.ShippingAddress)

	_, err = f.service.UpdateOrder(ctx, apptest.Seller, id, UpdateOrderInput{ShippingAddress: &moved})
	assert.ErrorIs(t, err, domain.ErrAddressLocked)

	for _, s := range []domain.Status{domain.StatusDelivered, domain.StatusCompleted} {
		_, err = f.service.UpdateOrder(ctx, apptest.Admin, id, UpdateOrderInput{Status: status(s)})
		require.NoError(t, err)
	}
	b, err := f.store.Books().Get(ctx, a)
	require.NoError(t, err)
	assert.EqualValues(t, 2, b.SoldCount)

	_, err = f.service.UpdateOrder(ctx, apptest.Admin, id, UpdateOrderInput{Status: status(domain.StatusCancelled)})
	assert.ErrorIs(t, err, domain.ErrCannotCancel)
	assert.Equal(t, 3, f.stock(t, a))
	assert.Equal(t, []string{"order.created", "order.status_changed", "order.status_changed", "order.status_changed"}, f.pub.Names())
}

func TestUpdateOrderStaffCancel(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	a := f.book(t, "A", 5, 10_000)
	res, err := f.checkout(ctx, domain.PaymentCOD, "", f.cartItem(t, apptest.Customer.UserID, a, 2))
	require.NoError(t, err)
	cancelled := domain.StatusCancelled

	o, err := f.service.UpdateOrder(ctx, apptest.Admin, res.Order.ID, UpdateOrderInput{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, o.Status)
	assert.Equal(t, 5, f.stock(t, a))

	confirmed := domain.StatusConfirmed
	_, err = f.service.UpdateOrder(ctx, apptest.Admin, res.Order.ID, UpdateOrderInput{Status: &confirmed})
	assert.ErrorIs(t, err, domain.ErrFinalized)
}

func TestListOrders(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	a := f.book(t, "A", 10, 10_000)
	for i := 0; i < 3; i++ {
		_, err := f.checkout(ctx, domain.PaymentCOD, "", f.cartItem(t, apptest.Customer.UserID, a, 1))
		require.NoError(t, err)
	}

	_, err := f.service.ListOrders(ctx, apptest.Customer, ListFilter{})
	assert.ErrorIs(t, err, application.ErrForbidden)

	all, err := f.service.ListOrders(ctx, apptest.Seller, ListFilter{ListQuery: application.ListQuery{Sort: domain.SortCode, Order: "asc"}})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)
	assert.Equal(t, "ORD20250001", all.Items[0].Code)

	mine, err := f.service.OrderHistory(ctx, apptest.Customer, ListFilter{Search: "ord20250002"})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "ORD20250002", mine.Items[0].Code)

	_, err = f.service.OrderHistory(ctx, apptest.Customer, ListFilter{Status: "LOST"})
	assert.Equal(t, "VALIDATION_ERROR", domerr.CodeOf(err))
}
