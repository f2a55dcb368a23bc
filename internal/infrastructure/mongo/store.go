// Package mongo implements the repositories on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	colAccounts      = "accounts"
	colPending       = "pending_registrations"
	colOTPs          = "otps"
	colCategories    = "categories"
	colBooks         = "books"
	colMedia         = "media"
	colStocks        = "stocks"
	colCarts         = "carts"
	colWishlists     = "wishlists"
	colOrders        = "orders"
	colCounters      = "counters"
	colPromotions    = "promotions"
	colPromotionLogs = "promotion_logs"
	colNotifications = "notifications"
	colReads         = "notification_reads"
	colReviews       = "reviews"
)

// Store owns the client and hands out repositories bound to one database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) col(name string) *mongo.Collection { return s.db.Collection(name) }

// WithinTx runs fn in a multi-document transaction. A nested call joins the
// outer session. Requires a replica set.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	specs := map[string][]mongo.IndexModel{
		colAccounts: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}}},
		},
		colPending: {
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		colOTPs: {
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "purpose", Value: 1}}, Options: unique},
		},
		colBooks: {
			{Keys: bson.D{{Key: "slug", Value: 1}}},
			{Keys: bson.D{{Key: "isbn", Value: 1}}},
			{Keys: bson.D{{Key: "categoryIds", Value: 1}}},
			{Keys: bson.D{{Key: "isDeleted", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		colMedia: {
			{Keys: bson.D{{Key: "publicId", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		colStocks: {
			{Keys: bson.D{{Key: "bookId", Value: 1}}, Options: unique},
		},
		colCarts: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "bookId", Value: 1}}, Options: unique},
		},
		colWishlists: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "bookId", Value: 1}}, Options: unique},
		},
		colOrders: {
			{Keys: bson.D{{Key: "orderCode", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		colPromotions: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: unique},
		},
		colPromotionLogs: {
			{Keys: bson.D{{Key: "promotionId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		colNotifications: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		colReads: {
			{Keys: bson.D{{Key: "notificationId", Value: 1}, {Key: "userId", Value: 1}}, Options: unique},
		},
		colReviews: {
			{Keys: bson.D{{Key: "bookId", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "bookId", Value: 1}}},
		},
	}
	for name, models := range specs {
		if _, err := s.col(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: indexes %s: %w", name, err)
		}
	}
	return nil
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return sentinel
	}
	return fmt.Errorf("mongo: %w", err)
}

// findPage runs a paginated find and a count over the same filter.
func findPage[D any, T any](ctx context.Context, c *mongo.Collection, filter bson.M, sort bson.D, skip, limit int64, conv func(*D) *T) ([]*T, int64, error) {
	total, err := c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: count %s: %w", c.Name(), err)
	}
	opts := options.Find().SetSort(sort).SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	rows, err := findAll(ctx, c, filter, opts, conv)
	return rows, total, err
}

func findAll[D any, T any](ctx context.Context, c *mongo.Collection, filter bson.M, opts *options.FindOptions, conv func(*D) *T) ([]*T, error) {
	cur, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: find %s: %w", c.Name(), err)
	}
	var docs []D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode %s: %w", c.Name(), err)
	}
	out := make([]*T, 0, len(docs))
	for i := range docs {
		out = append(out, conv(&docs[i]))
	}
	return out, nil
}

func findOne[D any, T any](ctx context.Context, c *mongo.Collection, filter bson.M, missing error, conv func(*D) *T) (*T, error) {
	var d D
	if err := c.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, notFound(err, missing)
	}
	return conv(&d), nil
}

func exists(ctx context.Context, c *mongo.Collection, filter bson.M) (bool, error) {
	n, err := c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongo: count %s: %w", c.Name(), err)
	}
	return n > 0, nil
}

// replace overwrites the document with the same _id, or returns missing.
func replace(ctx context.Context, c *mongo.Collection, id string, doc any, missing error) error {
	res, err := c.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return fmt.Errorf("mongo: replace %s: %w", c.Name(), err)
	}
	if res.MatchedCount == 0 {
		return missing
	}
	return nil
}

func insert(ctx context.Context, c *mongo.Collection, doc any, dup error) error {
	if _, err := c.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) && dup != nil {
			return dup
		}
		return fmt.Errorf("mongo: insert %s: %w", c.Name(), err)
	}
	return nil
}
