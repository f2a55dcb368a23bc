package wishlist

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/readify/internal/application"
	"github.com/Zhima-Mochi/readify/internal/application/apptest"
	domerr "github.com/Zhima-Mochi/readify/internal/domain"
	"github.com/Zhima-Mochi/readify/internal/domain/book"
	domcart "github.com/Zhima-Mochi/readify/internal/domain/cart"
	"github.com/Zhima-Mochi/readify/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/readify/internal/domain/wishlist"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/id"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/pkg/objectid"
	"github.com/Zhima-Mochi/readify/internal/pkg/textutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() (*Service, *memory.Store) {
	store := memory.NewStore()
	svc := NewService(Deps{
		Wishlists: store.Wishlists(),
		Carts:     store.Carts(),
		Books:     store.Books(),
		Stocks:    store.Inventory(),
		Tx:        store,
		IDs:       id.NewObjectIDGenerator(),
	}, observability.Nop())
	return svc, store
}

func seedBook(t *testing.T, store *memory.Store, title string, qty int) string {
	t.Helper()
	ctx := context.Background()
	b, err := book.New(objectid.New(), textutil.Slugify(title), book.Details{Title: title}, []string{objectid.New()}, 10_000, "", book.StatusActive)
	require.NoError(t, err)
	require.NoError(t, store.Books().Insert(ctx, b))
	st, err := inventory.NewStock(objectid.New(), b.ID, qty, 10_000, "")
	require.NoError(t, err)
	require.NoError(t, store.Inventory().Insert(ctx, st))
	return b.ID
}

func TestAddAndQueryWishlist(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	a := seedBook(t, store, "A", 1)
	b := seedBook(t, store, "B", 1)

	_, err := svc.AddToWishlist(ctx, apptest.Customer, a)
	require.NoError(t, err)
	_, err = svc.AddToWishlist(ctx, apptest.Customer, b)
	require.NoError(t, err)
	_, err = svc.AddToWishlist(ctx, apptest.Customer, a)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	_, err = svc.AddToWishlist(ctx, apptest.Customer, objectid.New())
	assert.ErrorIs(t, err, book.ErrNotFound)

	page, err := svc.GetWishlist(ctx, apptest.Customer, application.ListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Meta.Total)
	for _, e := range page.Items {
		require.NotNil(t, e.Book)
		assert.Equal(t, e.Item.BookID, e.Book.ID)
	}

	in, err := svc.IsInWishlist(ctx, apptest.Customer, a)
	require.NoError(t, err)
	assert.True(t, in)
	in, err = svc.IsInWishlist(ctx, apptest.Admin, a)
	require.NoError(t, err)
	assert.False(t, in)

	require.NoError(t, svc.RemoveFromWishlist(ctx, apptest.Customer, a))
	assert.ErrorIs(t, svc.RemoveFromWishlist(ctx, apptest.Customer, a), domain.ErrNotFound)

	n, err := svc.CountWishlist(ctx, apptest.Customer)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMoveToCart(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	b := seedBook(t, store, "A", 1)

	assert.ErrorIs(t, svc.MoveToCart(ctx, apptest.Customer, b), domain.ErrNotFound)

	_, err := svc.AddToWishlist(ctx, apptest.Customer, b)
	require.NoError(t, err)
	require.NoError(t, svc.MoveToCart(ctx, apptest.Customer, b))

	it, err := store.Carts().Get(ctx, apptest.Customer.UserID, b)
	require.NoError(t, err)
	assert.Equal(t, 1, it.Quantity)
	in, err := svc.IsInWishlist(ctx, apptest.Customer, b)
	require.NoError(t, err)
	assert.False(t, in)

	// the cart already holds the only unit, so nothing changes
	_, err = svc.AddToWishlist(ctx, apptest.Customer, b)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.MoveToCart(ctx, apptest.Customer, b), domcart.ErrNotEnoughStock)
	in, err = svc.IsInWishlist(ctx, apptest.Customer, b)
	require.NoError(t, err)
	assert.True(t, in)
}

func TestBulkMoveToCartReportsEachBook(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	ok := seedBook(t, store, "Ok", 3)
	empty := seedBook(t, store, "Empty", 0)
	full := seedBook(t, store, "Full", 1)
	missing := objectid.New()

	for _, b := range []string{ok, empty, full} {
		_, err := svc.AddToWishlist(ctx, apptest.Customer, b)
		require.NoError(t, err)
	}
	it, err := domcart.NewItem(objectid.New(), apptest.Customer.UserID, full, 1)
	require.NoError(t, err)
	require.NoError(t, store.Carts().Insert(ctx, it))

	res, err := svc.BulkMoveToCart(ctx, apptest.Customer, []string{ok, empty, full, missing})
	require.NoError(t, err)
	assert.Equal(t, []string{ok}, res.Success)
	assert.Equal(t, []Failure{
		{BookID: empty, Reason: domain.ReasonOutOfStock},
		{BookID: full, Reason: domain.ReasonNotEnoughStock},
		{BookID: missing, Reason: domain.ReasonNotInWishlist},
	}, res.Failed)

	_, err = svc.BulkMoveToCart(ctx, apptest.Customer, []string{ok, "bad"})
	assert.Equal(t, "VALIDATION_ERROR", domerr.CodeOf(err))
}

func TestBulkRemove(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	a := seedBook(t, store, "A", 1)
	b := seedBook(t, store, "B", 1)
	for _, id := range []string{a, b} {
		_, err := svc.AddToWishlist(ctx, apptest.Customer, id)
		require.NoError(t, err)
	}

	res, err := svc.BulkRemove(ctx, apptest.Customer, []string{a, objectid.New()})
	require.NoError(t, err)
	assert.Equal(t, BulkRemoveResult{DeletedCount: 1, RequestedCount: 2}, res)

	n, err := svc.ClearWishlist(ctx, apptest.Customer)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
