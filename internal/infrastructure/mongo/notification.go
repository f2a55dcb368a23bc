package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Zhima-Mochi/readify/internal/domain/notification"
)

type notificationDoc struct {
	ID                 string            `bson:"_id"`
	UserID             string            `bson:"userId"`
	Title              string            `bson:"title"`
	Content            string            `bson:"content"`
	Type               notification.Type `bson:"type"`
	RelatedOrderID     string            `bson:"relatedOrderId,omitempty"`
	RelatedPromotionID string            `bson:"relatedPromotionId,omitempty"`
	IsActive           bool              `bson:"isActive"`
	CreatedAt          time.Time         `bson:"createdAt"`
	UpdatedAt          time.Time         `bson:"updatedAt"`
}

func toNotificationDoc(n *notification.Notification) notificationDoc {
	return notificationDoc{
		ID: n.ID, UserID: n.UserID, Title: n.Title, Content: n.Content, Type: n.Type,
		RelatedOrderID: n.RelatedOrderID, RelatedPromotionID: n.RelatedPromotionID, IsActive: n.IsActive,
		CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt,
	}
}

func (d *notificationDoc) domain() *notification.Notification {
	return &notification.Notification{
		ID: d.ID, UserID: d.UserID, Title: d.Title, Content: d.Content, Type: d.Type,
		RelatedOrderID: d.RelatedOrderID, RelatedPromotionID: d.RelatedPromotionID, IsActive: d.IsActive,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type NotificationRepository struct{ c *mongo.Collection }

func (s *Store) Notifications() *NotificationRepository {
	return &NotificationRepository{c: s.col(colNotifications)}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *notification.Notification) error {
	return insert(ctx, r.c, toNotificationDoc(n), nil)
}

func (r *NotificationRepository) Get(ctx context.Context, id string) (*notification.Notification, error) {
	return findOne(ctx, r.c, bson.M{"_id": id}, notification.ErrNotFound, (*notificationDoc).domain)
}

func (r *NotificationRepository) Update(ctx context.Context, n *notification.Notification) error {
	return replace(ctx, r.c, n.ID, toNotificationDoc(n), notification.ErrNotFound)
}

func (r *NotificationRepository) List(ctx context.Context, f notification.ListFilter) ([]*notification.Notification, int64, error) {
	skip, limit := pageOf(f.Paging)
	return findPage(ctx, r.c, notificationFilter(f), sortSpec("createdAt", true), skip, limit, (*notificationDoc).domain)
}

func (r *NotificationRepository) VisibleIDs(ctx context.Context, userID string) ([]string, error) {
	f := notificationFilter(notification.ListFilter{UserID: userID})
	return distinctStrings(ctx, r.c, "_id", f)
}

type readDoc struct {
	NotificationID string    `bson:"notificationId"`
	UserID         string    `bson:"userId"`
	ReadAt         time.Time `bson:"readAt"`
}

type NotificationReadRepository struct{ c *mongo.Collection }

func (s *Store) NotificationReads() *NotificationReadRepository {
	return &NotificationReadRepository{c: s.col(colReads)}
}

// Mark relies on the unique (notificationId, userId) index; an existing read keeps its time.
func (r *NotificationReadRepository) Mark(ctx context.Context, rd notification.Read) (bool, error) {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"notificationId": rd.NotificationID, "userId": rd.UserID},
		bson.M{"$setOnInsert": bson.M{"readAt": rd.ReadAt}},
		options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("mongo: mark read: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (r *NotificationReadRepository) Unmark(ctx context.Context, notificationID, userID string) error {
	if _, err := r.c.DeleteOne(ctx, bson.M{"notificationId": notificationID, "userId": userID}); err != nil {
		return fmt.Errorf("mongo: unmark read: %w", err)
	}
	return nil
}

func (r *NotificationReadRepository) ReadAt(ctx context.Context, userID string, ids []string) (map[string]time.Time, error) {
	cur, err := r.c.Find(ctx, bson.M{"userId": userID, "notificationId": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("mongo: find reads: %w", err)
	}
	var docs []readDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode reads: %w", err)
	}
	out := make(map[string]time.Time, len(docs))
	for _, d := range docs {
		out[d.NotificationID] = d.ReadAt
	}
	return out, nil
}

func (r *NotificationReadRepository) ReadIDs(ctx context.Context, userID string) ([]string, error) {
	return distinctStrings(ctx, r.c, "notificationId", bson.M{"userId": userID})
}

func distinctStrings(ctx context.Context, c *mongo.Collection, field string, f bson.M) ([]string, error) {
	raw, err := c.Distinct(ctx, field, f)
	if err != nil {
		return nil, fmt.Errorf("mongo: distinct %s.%s: %w", c.Name(), field, err)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}
