package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Zhima-Mochi/readify/internal/domain/review"
)

type reviewDoc struct {
	ID           string        `bson:"_id"`
	UserID       string        `bson:"userId"`
	BookID       string        `bson:"bookId"`
	OrderID      string        `bson:"orderId,omitempty"`
	Rating       int           `bson:"rating"`
	Comment      string        `bson:"comment"`
	Status       review.Status `bson:"status"`
	HelpfulCount int64         `bson:"helpfulCount"`
	HelpfulBy    []string      `bson:"helpfulBy"`
	IsActive     bool          `bson:"isActive"`
	CreatedAt    time.Time     `bson:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt"`
}

func toReviewDoc(r *review.Review) reviewDoc {
	by := r.HelpfulBy
	if by == nil {
		by = []string{}
	}
	return reviewDoc{
		ID: r.ID, UserID: r.UserID, BookID: r.BookID, OrderID: r.OrderID, Rating: r.Rating, Comment: r.Comment,
		Status: r.Status, HelpfulCount: r.HelpfulCount, HelpfulBy: by, IsActive: r.IsActive,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (d *reviewDoc) domain() *review.Review {
	return &review.Review{
		ID: d.ID, UserID: d.UserID, BookID: d.BookID, OrderID: d.OrderID, Rating: d.Rating, Comment: d.Comment,
		Status: d.Status, HelpfulCount: d.HelpfulCount, HelpfulBy: d.HelpfulBy, IsActive: d.IsActive,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type ReviewRepository struct{ c *mongo.Collection }

func (s *Store) Reviews() *ReviewRepository { return &ReviewRepository{c: s.col(colReviews)} }

func (r *ReviewRepository) Insert(ctx context.Context, rv *review.Review) error {
	return insert(ctx, r.c, toReviewDoc(rv), nil)
}

func (r *ReviewRepository) Get(ctx context.Context, id string) (*review.Review, error) {
	return findOne(ctx, r.c, bson.M{"_id": id, "isActive": true}, review.ErrNotFound, (*reviewDoc).domain)
}

func (r *ReviewRepository) Update(ctx context.Context, rv *review.Review) error {
	return replace(ctx, r.c, rv.ID, toReviewDoc(rv), review.ErrNotFound)
}

func (r *ReviewRepository) ExistsActive(ctx context.Context, userID, bookID string) (bool, error) {
	return exists(ctx, r.c, bson.M{"userId": userID, "bookId": bookID, "isActive": true})
}

func (r *ReviewRepository) List(ctx context.Context, f review.ListFilter) ([]*review.Review, int64, error) {
	skip, limit := pageOf(f.Paging)
	return findPage(ctx, r.c, reviewFilter(f), sortSpec(f.Sort.Field, f.Sort.Desc), skip, limit, (*reviewDoc).domain)
}

func (r *ReviewRepository) ApprovedRatings(ctx context.Context, bookID string) ([]int, error) {
	f := bson.M{"bookId": bookID, "isActive": true, "status": review.StatusApproved}
	cur, err := r.c.Find(ctx, f, options.Find().SetProjection(bson.M{"rating": 1}))
	if err != nil {
		return nil, fmt.Errorf("mongo: find ratings: %w", err)
	}
	var docs []struct {
		Rating int `bson:"rating"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode ratings: %w", err)
	}
	out := make([]int, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Rating)
	}
	return out, nil
}

func (r *ReviewRepository) MarkHelpful(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": id, "isActive": true, "helpfulBy": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"helpfulBy": userID}, "$inc": bson.M{"helpfulCount": 1}})
	if err != nil {
		return false, fmt.Errorf("mongo: mark helpful: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	found, err := exists(ctx, r.c, bson.M{"_id": id, "isActive": true})
	if err != nil {
		return false, err
	}
	if !found {
		return false, review.ErrNotFound
	}
	return false, nil
}
