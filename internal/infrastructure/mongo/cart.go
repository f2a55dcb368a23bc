package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Zhima-Mochi/readify/internal/domain/cart"
	"github.com/Zhima-Mochi/readify/internal/domain/wishlist"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

type cartDoc struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"userId"`
	BookID     string    `bson:"bookId"`
	Quantity   int       `bson:"quantity"`
	IsSelected bool      `bson:"isSelected"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

func toCartDoc(it *cart.Item) cartDoc {
	return cartDoc{
		ID: it.ID, UserID: it.UserID, BookID: it.BookID, Quantity: it.Quantity, IsSelected: it.IsSelected,
		CreatedAt: it.CreatedAt, UpdatedAt: it.UpdatedAt,
	}
}

func (d *cartDoc) domain() *cart.Item {
	return &cart.Item{
		ID: d.ID, UserID: d.UserID, BookID: d.BookID, Quantity: d.Quantity, IsSelected: d.IsSelected,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

var newestFirst = sortSpec("createdAt", true)

type CartRepository struct{ c *mongo.Collection }

func (s *Store) Carts() *CartRepository { return &CartRepository{c: s.col(colCarts)} }

func (r *CartRepository) Insert(ctx context.Context, it *cart.Item) error {
	return insert(ctx, r.c, toCartDoc(it), cart.ErrItemExists)
}

func (r *CartRepository) Get(ctx context.Context, userID, bookID string) (*cart.Item, error) {
	return findOne(ctx, r.c, bson.M{"userId": userID, "bookId": bookID}, cart.ErrItemNotFound, (*cartDoc).domain)
}

func (r *CartRepository) GetByIDs(ctx context.Context, userID string, ids []string) ([]*cart.Item, error) {
	f := bson.M{"userId": userID, "_id": bson.M{"$in": ids}}
	return findAll(ctx, r.c, f, options.Find().SetSort(newestFirst), (*cartDoc).domain)
}

func (r *CartRepository) List(ctx context.Context, userID string) ([]*cart.Item, error) {
	return findAll(ctx, r.c, bson.M{"userId": userID}, options.Find().SetSort(newestFirst), (*cartDoc).domain)
}

func (r *CartRepository) ListSelected(ctx context.Context, userID string) ([]*cart.Item, error) {
	f := bson.M{"userId": userID, "isSelected": true}
	return findAll(ctx, r.c, f, options.Find().SetSort(newestFirst), (*cartDoc).domain)
}

func (r *CartRepository) Update(ctx context.Context, it *cart.Item) error {
	return replace(ctx, r.c, it.ID, toCartDoc(it), cart.ErrItemNotFound)
}

func (r *CartRepository) Delete(ctx context.Context, userID, bookID string) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"userId": userID, "bookId": bookID})
	if err != nil {
		return fmt.Errorf("mongo: delete cart item: %w", err)
	}
	if res.DeletedCount == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

func (r *CartRepository) DeleteByIDs(ctx context.Context, userID string, ids []string) (int64, error) {
	return deleteMany(ctx, r.c, bson.M{"userId": userID, "_id": bson.M{"$in": ids}})
}

func (r *CartRepository) Clear(ctx context.Context, userID string) (int64, error) {
	return deleteMany(ctx, r.c, bson.M{"userId": userID})
}

func (r *CartRepository) Count(ctx context.Context, userID string) (int64, error) {
	n, err := r.c.CountDocuments(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("mongo: count cart: %w", err)
	}
	return n, nil
}

func (r *CartRepository) SetSelectionAll(ctx context.Context, userID string, selected bool) (int64, error) {
	res, err := r.c.UpdateMany(ctx, bson.M{"userId": userID},
		bson.M{"$set": bson.M{"isSelected": selected, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return 0, fmt.Errorf("mongo: select cart: %w", err)
	}
	return res.ModifiedCount, nil
}

type wishlistDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	BookID    string    `bson:"bookId"`
	CreatedAt time.Time `bson:"createdAt"`
}

func (d *wishlistDoc) domain() *wishlist.Item {
	return &wishlist.Item{ID: d.ID, UserID: d.UserID, BookID: d.BookID, CreatedAt: d.CreatedAt}
}

type WishlistRepository struct{ c *mongo.Collection }

func (s *Store) Wishlists() *WishlistRepository { return &WishlistRepository{c: s.col(colWishlists)} }

func (r *WishlistRepository) Insert(ctx context.Context, it *wishlist.Item) error {
	doc := wishlistDoc{ID: it.ID, UserID: it.UserID, BookID: it.BookID, CreatedAt: it.CreatedAt}
	return insert(ctx, r.c, doc, wishlist.ErrAlreadyExists)
}

func (r *WishlistRepository) Exists(ctx context.Context, userID, bookID string) (bool, error) {
	return exists(ctx, r.c, bson.M{"userId": userID, "bookId": bookID})
}

func (r *WishlistRepository) List(ctx context.Context, userID string, p paging.Params) ([]*wishlist.Item, int64, error) {
	skip, limit := pageOf(p)
	return findPage(ctx, r.c, bson.M{"userId": userID}, newestFirst, skip, limit, (*wishlistDoc).domain)
}

func (r *WishlistRepository) Count(ctx context.Context, userID string) (int64, error) {
	n, err := r.c.CountDocuments(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("mongo: count wishlist: %w", err)
	}
	return n, nil
}

func (r *WishlistRepository) Delete(ctx context.Context, userID, bookID string) error {
	n, err := deleteMany(ctx, r.c, bson.M{"userId": userID, "bookId": bookID})
	if err != nil {
		return err
	}
	if n == 0 {
		return wishlist.ErrNotFound
	}
	return nil
}

func (r *WishlistRepository) DeleteMany(ctx context.Context, userID string, bookIDs []string) (int64, error) {
	return deleteMany(ctx, r.c, bson.M{"userId": userID, "bookId": bson.M{"$in": bookIDs}})
}

func (r *WishlistRepository) Clear(ctx context.Context, userID string) (int64, error) {
	return deleteMany(ctx, r.c, bson.M{"userId": userID})
}

func deleteMany(ctx context.Context, c *mongo.Collection, f bson.M) (int64, error) {
	res, err := c.DeleteMany(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("mongo: delete %s: %w", c.Name(), err)
	}
	return res.DeletedCount, nil
}
