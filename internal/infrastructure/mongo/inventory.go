package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/Zhima-Mochi/readify/internal/domain/inventory"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

type stockDoc struct {
	ID        string        `bson:"_id"`
	BookID    string        `bson:"bookId"`
	Quantity  int           `bson:"quantity"`
	Price     int64         `bson:"price"`
	Location  string        `bson:"location,omitempty"`
	Status    domain.Status `bson:"status"`
	CreatedAt time.Time     `bson:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

func toStockDoc(s *domain.Stock) stockDoc {
	return stockDoc{
		ID: s.ID, BookID: s.BookID, Quantity: s.Quantity, Price: s.Price, Location: s.Location,
		Status: s.Status, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
	}
}

func (d *stockDoc) domain() *domain.Stock {
	return &domain.Stock{
		ID: d.ID, BookID: d.BookID, Quantity: d.Quantity, Price: d.Price, Location: d.Location,
		Status: d.Status, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type InventoryRepository struct{ c *mongo.Collection }

func (s *Store) Inventory() *InventoryRepository { return &InventoryRepository{c: s.col(colStocks)} }

func (r *InventoryRepository) Insert(ctx context.Context, s *domain.Stock) error {
	return insert(ctx, r.c, toStockDoc(s), domain.ErrExists)
}

func (r *InventoryRepository) GetByBook(ctx context.Context, bookID string) (*domain.Stock, error) {
	return findOne(ctx, r.c, bson.M{"bookId": bookID}, domain.ErrNotFound, (*stockDoc).domain)
}

func (r *InventoryRepository) GetByBooks(ctx context.Context, bookIDs []string) ([]*domain.Stock, error) {
	return findAll(ctx, r.c, bson.M{"bookId": bson.M{"$in": bookIDs}}, options.Find(), (*stockDoc).domain)
}

func (r *InventoryRepository) Update(ctx context.Context, s *domain.Stock) error {
	if s == nil {
		return nil
	}
	res, err := r.c.ReplaceOne(ctx, bson.M{"bookId": s.BookID}, toStockDoc(s))
	if err != nil {
		return fmt.Errorf("mongo: replace stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Decrement only matches when enough units remain, so concurrent checkouts
// cannot drive the quantity negative.
func (r *InventoryRepository) Decrement(ctx context.Context, bookID string, qty int) error {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"bookId": bookID, "quantity": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"quantity": -qty}, "$set": bson.M{"updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("mongo: decrement stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

func (r *InventoryRepository) Increment(ctx context.Context, bookID string, qty int) error {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"bookId": bookID},
		bson.M{"$inc": bson.M{"quantity": qty}, "$set": bson.M{"updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("mongo: increment stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *InventoryRepository) InStockBookIDs(ctx context.Context) ([]string, error) {
	raw, err := r.c.Distinct(ctx, "bookId", bson.M{"quantity": bson.M{"$gt": 0}})
	if err != nil {
		return nil, fmt.Errorf("mongo: distinct stock: %w", err)
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

func (r *InventoryRepository) List(ctx context.Context, p paging.Params) ([]*domain.Stock, int64, error) {
	skip, limit := pageOf(p)
	return findPage(ctx, r.c, bson.M{}, sortSpec("updatedAt", true), skip, limit, (*stockDoc).domain)
}
