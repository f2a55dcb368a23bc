package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/readify/internal/domain/inventory"
	"github.com/Zhima-Mochi/readify/internal/domain/order"
	"github.com/Zhima-Mochi/readify/internal/domain/promotion"
	"github.com/Zhima-Mochi/readify/internal/pkg/objectid"
)

// liveStore connects to MONGODB_URI (a replica set, for transactions) and
// drops its scratch database afterwards.
func liveStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Connect(ctx, uri, "readify_test_"+objectid.New())
	require.NoError(t, err)
	require.NoError(t, s.EnsureIndexes(ctx))
	t.Cleanup(func() {
		_ = s.db.Drop(context.Background())
		_ = s.Close(context.Background())
	})
	return s
}

func TestLiveStockAndCounterRollBack(t *testing.T) {
	s := liveStore(t)
	ctx := context.Background()
	st, err := inventory.NewStock(objectid.New(), "b1", 5, 100_000, "")
	require.NoError(t, err)
	require.NoError(t, s.Inventory().Insert(ctx, st))

	boom := errors.New("boom")
	err = s.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Inventory().Decrement(ctx, "b1", 3))
		_, err := s.Orders().NextCode(ctx)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Inventory().GetByBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)

	code, err := s.Orders().NextCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ORD20250001", code)

	assert.ErrorIs(t, s.Inventory().Decrement(ctx, "b1", 6), inventory.ErrInsufficientStock)
}

func TestLivePromotionRedeemOncePerUser(t *testing.T) {
	s := liveStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	p := &promotion.Promotion{
		ID: objectid.New(), Code: "SALE10", Name: "Sale", DiscountType: promotion.DiscountFixed, DiscountValue: 10_000,
		StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour), UsageLimit: 2, Status: promotion.StatusActive,
		ApplyScope: "ORDER", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.Promotions().Insert(ctx, p))

	require.NoError(t, s.Promotions().Redeem(ctx, p.ID, "u1"))
	assert.ErrorIs(t, s.Promotions().Redeem(ctx, p.ID, "u1"), promotion.ErrAlreadyUsed)
	require.NoError(t, s.Promotions().Redeem(ctx, p.ID, "u2"))
	assert.ErrorIs(t, s.Promotions().Redeem(ctx, p.ID, "u3"), promotion.ErrUsageLimit)

	require.NoError(t, s.Promotions().Release(ctx, p.ID, "u1"))
	got, err := s.Promotions().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UsedCount)
	assert.Equal(t, []string{"u2"}, got.UsedByUsers)
}

func TestLiveMarkPaidIsIdempotent(t *testing.T) {
	s := liveStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	o := &order.Order{
		ID: objectid.New(), Code: order.FormatCode(order.CodeSeqStart + 1), UserID: "u1",
		PaymentMethod: order.PaymentVNPay, PaymentStatus: order.PaymentUnpaid, Status: order.StatusPending,
		FinalAmount: 100_000, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.Orders().Insert(ctx, o))

	ok, err := s.Orders().MarkPaid(ctx, o.ID, order.Payment{TransactionNo: "T1"})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Orders().MarkPaid(ctx, o.ID, order.Payment{TransactionNo: "T1"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Orders().MarkPaid(ctx, objectid.New(), order.Payment{})
	assert.ErrorIs(t, err, order.ErrNotFound)

	got, err := s.Orders().Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, got.Status)
	assert.Equal(t, "T1", got.Payment.TransactionNo)
}
