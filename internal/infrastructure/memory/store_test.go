package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain/cart"
	"github.com/Zhima-Mochi/readify/internal/domain/inventory"
	"github.com/Zhima-Mochi/readify/internal/domain/order"
	"github.com/Zhima-Mochi/readify/internal/domain/promotion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStock(t *testing.T, s *Store, bookID string, qty int) {
	t.Helper()
	st, err := inventory.NewStock("st-"+bookID, bookID, qty, 100_000, "")
	require.NoError(t, err)
	require.NoError(t, s.Inventory().Insert(context.Background(), st))
}

func TestWithinTxRollsBackEveryTable(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedStock(t, s, "b1", 5)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Inventory().Decrement(ctx, "b1", 3))
		code, err := s.Orders().NextCode(ctx)
		require.NoError(t, err)
		o := &order.Order{ID: "o1", Code: code, Status: order.StatusPending}
		require.NoError(t, s.Orders().Insert(ctx, o))
		return boom
	})
	require.ErrorIs(t, err, boom)

	st, err := s.Inventory().GetByBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 5, st.Quantity)
	_, err = s.Orders().Get(ctx, "o1")
	assert.ErrorIs(t, err, order.ErrNotFound)

	// the counter was rolled back too
	code, err := s.Orders().NextCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ORD20250001", code)
}

func TestRollbackKeepsWritesOutsideTx(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedStock(t, s, "b1", 1)

	done := make(chan error, 1)
	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(txCtx context.Context) error {
		go func() {
			it, err := cart.NewItem("c2", "u2", "b2", 1)
			if err != nil {
				done <- err
				return
			}
			done <- s.Carts().Insert(ctx, it)
		}()
		require.NoError(t, s.Inventory().Decrement(txCtx, "b1", 1))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, <-done)

	items, err := s.Carts().List(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	st, err := s.Inventory().GetByBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Quantity)
}

func TestNestedTxJoinsOuter(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedStock(t, s, "b1", 5)

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		return s.WithinTx(ctx, func(ctx context.Context) error {
			return s.Inventory().Decrement(ctx, "b1", 2)
		})
	})
	require.NoError(t, err)
	st, _ := s.Inventory().GetByBook(ctx, "b1")
	assert.Equal(t, 3, st.Quantity)
}

func TestNextCodeIsSequential(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	a, _ := s.Orders().NextCode(ctx)
	b, _ := s.Orders().NextCode(ctx)
	assert.Equal(t, "ORD20250001", a)
	assert.Equal(t, "ORD20250002", b)
}

func TestDecrementIsConditional(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedStock(t, s, "b1", 2)

	err := s.Inventory().Decrement(ctx, "b1", 3)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.ErrorIs(t, err, order.ErrInsufficientStock, "stock errors share the INSUFFICIENT_STOCK code")
	require.NoError(t, s.Inventory().Decrement(ctx, "b1", 2))
	st, _ := s.Inventory().GetByBook(ctx, "b1")
	assert.Equal(t, 0, st.Quantity)
}

func TestRedeemOncePerUser(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()
	p, err := promotion.New("p1", "sale10", "Sale", "", promotion.Terms{DiscountType: promotion.DiscountPercent, DiscountValue: 10},
		now.Add(-time.Hour), now.Add(time.Hour), 2, promotion.StatusActive, "admin")
	require.NoError(t, err)
	require.NoError(t, s.Promotions().Insert(ctx, p))

	require.NoError(t, s.Promotions().Redeem(ctx, "p1", "u1"))
	assert.ErrorIs(t, s.Promotions().Redeem(ctx, "p1", "u1"), promotion.ErrAlreadyUsed)
	require.NoError(t, s.Promotions().Redeem(ctx, "p1", "u2"))
	assert.ErrorIs(t, s.Promotions().Redeem(ctx, "p1", "u3"), promotion.ErrUsageLimit)

	require.NoError(t, s.Promotions().Release(ctx, "p1", "u1"))
	// releasing a user who holds no usage changes nothing
	require.NoError(t, s.Promotions().Release(ctx, "p1", "u1"))
	require.NoError(t, s.Promotions().Release(ctx, "p1", "u9"))
	got, err := s.Promotions().Get(ctx, "p1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.UsedCount)
	assert.Equal(t, []string{"u2"}, got.UsedByUsers)
}

func TestMarkPaidOnlyOnce(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Orders().Insert(ctx, &order.Order{
		ID: "o1", Code: "ORD20250001", Status: order.StatusPending,
		PaymentMethod: order.PaymentVNPay, PaymentStatus: order.PaymentUnpaid,
	}))

	ok, err := s.Orders().MarkPaid(ctx, "o1", order.Payment{TransactionNo: "T1"})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Orders().MarkPaid(ctx, "o1", order.Payment{TransactionNo: "T2"})
	require.NoError(t, err)
	assert.False(t, ok)

	got, _ := s.Orders().Get(ctx, "o1")
	assert.Equal(t, "T1", got.Payment.TransactionNo)
	assert.Equal(t, order.StatusConfirmed, got.Status)

	ok, err = s.Orders().MarkPaymentFailed(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkPaidSkipsCancelledOrder(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Orders().Insert(ctx, &order.Order{
		ID: "o1", Code: "ORD20250001", Status: order.StatusCancelled,
		PaymentMethod: order.PaymentVNPay, PaymentStatus: order.PaymentUnpaid,
	}))

	ok, err := s.Orders().MarkPaid(ctx, "o1", order.Payment{TransactionNo: "T1"})
	require.NoError(t, err)
	assert.False(t, ok)
	got, _ := s.Orders().Get(ctx, "o1")
	assert.Equal(t, order.StatusCancelled, got.Status)
	assert.Equal(t, order.PaymentUnpaid, got.PaymentStatus)
}

func TestCompareAndSetStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Orders().Insert(ctx, &order.Order{ID: "o1", Code: "ORD20250001", Status: order.StatusPending}))

	ok, err := s.Orders().CompareAndSetStatus(ctx, "o1", order.StatusPending, order.StatusCancelled)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Orders().CompareAndSetStatus(ctx, "o1", order.StatusPending, order.StatusCancelled)
	require.NoError(t, err)
	assert.False(t, ok)

	got, _ := s.Orders().Get(ctx, "o1")
	assert.NotNil(t, got.CancelledAt)
}
