package cart

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/readify/internal/application"
	"github.com/Zhima-Mochi/readify/internal/application/apptest"
	"github.com/Zhima-Mochi/readify/internal/domain/book"
	domcart "github.com/Zhima-Mochi/readify/internal/domain/cart"
	"github.com/Zhima-Mochi/readify/internal/domain/inventory"
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
	return NewService(store.Carts(), store.Books(), store.Inventory(), id.NewObjectIDGenerator(), observability.Nop()), store
}

func seedBook(t *testing.T, store *memory.Store, title string, qty int, price int64) string {
	t.Helper()
	ctx := context.Background()
	b, err := book.New(objectid.New(), textutil.Slugify(title), book.Details{Title: title}, []string{objectid.New()}, price, "", book.StatusActive)
	require.NoError(t, err)
	require.NoError(t, store.Books().Insert(ctx, b))
	st, err := inventory.NewStock(objectid.New(), b.ID, qty, price, "")
	require.NoError(t, err)
	require.NoError(t, store.Inventory().Insert(ctx, st))
	return b.ID
}

func setQuantity(t *testing.T, store *memory.Store, bookID string, qty int) {
	t.Helper()
	ctx := context.Background()
	st, err := store.Inventory().GetByBook(ctx, bookID)
	require.NoError(t, err)
	require.NoError(t, st.Adjust(qty, st.Price))
	require.NoError(t, store.Inventory().Update(ctx, st))
}

func TestAddToCartMergesWithinStock(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	b := seedBook(t, store, "Dune", 3, 120_000)

	it, err := svc.AddToCart(ctx, apptest.Customer, b, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, it.Quantity)
	assert.True(t, it.IsSelected)

	it, err = svc.AddToCart(ctx, apptest.Customer, b, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, it.Quantity)

	_, err = svc.AddToCart(ctx, apptest.Customer, b, 1)
	require.ErrorIs(t, err, domcart.ErrNotEnoughStock)
	assert.Equal(t, "Not enough stock. Available: 3, Requested: 4", err.Error())

	n, err := svc.CountCartItems(ctx, apptest.Customer)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestAddToCartRejects(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	b := seedBook(t, store, "Dune", 1, 120_000)

	_, err := svc.AddToCart(ctx, application.Actor{}, b, 1)
	assert.ErrorIs(t, err, application.ErrUnauthorized)
	_, err = svc.AddToCart(ctx, apptest.Customer, "not-an-id", 1)
	assert.ErrorIs(t, err, application.NewValidation(""))
	_, err = svc.AddToCart(ctx, apptest.Customer, objectid.New(), 1)
	assert.ErrorIs(t, err, book.ErrNotFound)
	_, err = svc.AddToCart(ctx, apptest.Customer, b, -2)
	assert.ErrorIs(t, err, domcart.ErrInvalidQuantity)
	_, err = svc.AddToCart(ctx, apptest.Customer, b, 2)
	assert.ErrorIs(t, err, domcart.ErrNotEnoughStock)
}

func TestUpdateQuantity(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	b := seedBook(t, store, "Dune", 5, 120_000)

	_, err := svc.UpdateQuantity(ctx, apptest.Customer, b, 2)
	assert.ErrorIs(t, err, domcart.ErrItemNotFound)

	_, err = svc.AddToCart(ctx, apptest.Customer, b, 1)
	require.NoError(t, err)
	_, err = svc.UpdateQuantity(ctx, apptest.Customer, b, 0)
	assert.ErrorIs(t, err, domcart.ErrInvalidQuantity)
	_, err = svc.UpdateQuantity(ctx, apptest.Customer, b, 6)
	assert.ErrorIs(t, err, domcart.ErrNotEnoughStock)

	it, err := svc.UpdateQuantity(ctx, apptest.Customer, b, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, it.Quantity)
}

func TestGetCartClampsToStock(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	plenty := seedBook(t, store, "Plenty", 10, 50_000)
	scarce := seedBook(t, store, "Scarce", 10, 80_000)
	gone := seedBook(t, store, "Gone", 10, 90_000)

	for _, b := range []string{plenty, scarce, gone} {
		_, err := svc.AddToCart(ctx, apptest.Customer, b, 4)
		require.NoError(t, err)
	}
	setQuantity(t, store, scarce, 2)
	setQuantity(t, store, gone, 0)

	lines, err := svc.GetCart(ctx, apptest.Customer)
	require.NoError(t, err)
	require.Len(t, lines, 3)

	byBook := map[string]Line{}
	for _, l := range lines {
		byBook[l.Item.BookID] = l
	}
	assert.True(t, byBook[plenty].Available)
	assert.False(t, byBook[plenty].Clamped)
	assert.EqualValues(t, 200_000, byBook[plenty].Subtotal())

	assert.True(t, byBook[scarce].Clamped)
	assert.Equal(t, 2, byBook[scarce].Item.Quantity)
	saved, err := store.Carts().Get(ctx, apptest.Customer.UserID, scarce)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Quantity, "clamped quantity is persisted")

	assert.False(t, byBook[gone].Available)
	assert.Equal(t, 4, byBook[gone].Item.Quantity)
}

func TestSelection(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	a := seedBook(t, store, "A", 5, 1_000)
	b := seedBook(t, store, "B", 5, 1_000)
	for _, id := range []string{a, b} {
		_, err := svc.AddToCart(ctx, apptest.Customer, id, 1)
		require.NoError(t, err)
	}

	it, err := svc.ToggleSelect(ctx, apptest.Customer, a)
	require.NoError(t, err)
	assert.False(t, it.IsSelected)

	sel, err := svc.GetSelectedItems(ctx, apptest.Customer)
	require.NoError(t, err)
	require.Len(t, sel, 1)
	assert.Equal(t, b, sel[0].Item.BookID)

	n, err := svc.DeselectAll(ctx, apptest.Customer)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = svc.SetSelection(ctx, apptest.Customer, a, true)
	require.NoError(t, err)
	sel, err = svc.GetSelectedItems(ctx, apptest.Customer)
	require.NoError(t, err)
	assert.Len(t, sel, 1)

	n, err = svc.SelectAll(ctx, apptest.Customer)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, svc.RemoveFromCart(ctx, apptest.Customer, a))
	assert.ErrorIs(t, svc.RemoveFromCart(ctx, apptest.Customer, a), domcart.ErrItemNotFound)

	n, err = svc.ClearCart(ctx, apptest.Customer)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
