package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Zhima-Mochi/readify/internal/domain/promotion"
)

type promotionDoc struct {
	ID            string                 `bson:"_id"`
	Code          string                 `bson:"code"`
	Name          string                 `bson:"name"`
	Description   string                 `bson:"description,omitempty"`
	DiscountType  promotion.DiscountType `bson:"discountType"`
	DiscountValue int64                  `bson:"discountValue"`
	MinOrderValue int64                  `bson:"minOrderValue"`
	MaxDiscount   int64                  `bson:"maxDiscount"`
	StartDate     time.Time              `bson:"startDate"`
	EndDate       time.Time              `bson:"endDate"`
	UsageLimit    int64                  `bson:"usageLimit"`
	UsedCount     int64                  `bson:"usedCount"`
	UsedByUsers   []string               `bson:"usedByUsers"`
	Status        promotion.Status       `bson:"status"`
	ApplyScope    string                 `bson:"applyScope"`
	CreatedBy     string                 `bson:"createdBy"`
	UpdatedBy     string                 `bson:"updatedBy,omitempty"`
	IsDeleted     bool                   `bson:"isDeleted"`
	CreatedAt     time.Time              `bson:"createdAt"`
	UpdatedAt     time.Time              `bson:"updatedAt"`
}

func toPromotionDoc(p *promotion.Promotion) promotionDoc {
	used := p.UsedByUsers
	if used == nil {
		used = []string{}
	}
	return promotionDoc{
		ID: p.ID, Code: p.Code, Name: p.Name, Description: p.Description,
		DiscountType: p.DiscountType, DiscountValue: p.DiscountValue, MinOrderValue: p.MinOrderValue, MaxDiscount: p.MaxDiscount,
		StartDate: p.StartDate, EndDate: p.EndDate, UsageLimit: p.UsageLimit, UsedCount: p.UsedCount, UsedByUsers: used,
		Status: p.Status, ApplyScope: p.ApplyScope, CreatedBy: p.CreatedBy, UpdatedBy: p.UpdatedBy, IsDeleted: p.IsDeleted,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

func (d *promotionDoc) domain() *promotion.Promotion {
	return &promotion.Promotion{
		ID: d.ID, Code: d.Code, Name: d.Name, Description: d.Description,
		DiscountType: d.DiscountType, DiscountValue: d.DiscountValue, MinOrderValue: d.MinOrderValue, MaxDiscount: d.MaxDiscount,
		StartDate: d.StartDate, EndDate: d.EndDate, UsageLimit: d.UsageLimit, UsedCount: d.UsedCount, UsedByUsers: d.UsedByUsers,
		Status: d.Status, ApplyScope: d.ApplyScope, CreatedBy: d.CreatedBy, UpdatedBy: d.UpdatedBy, IsDeleted: d.IsDeleted,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type PromotionRepository struct{ c *mongo.Collection }

func (s *Store) Promotions() *PromotionRepository { return &PromotionRepository{c: s.col(colPromotions)} }

func (r *PromotionRepository) Insert(ctx context.Context, p *promotion.Promotion) error {
	return insert(ctx, r.c, toPromotionDoc(p), promotion.ErrCodeExists)
}

func (r *PromotionRepository) Get(ctx context.Context, id string) (*promotion.Promotion, error) {
	return findOne(ctx, r.c, bson.M{"_id": id, "isDeleted": false}, promotion.ErrNotFound, (*promotionDoc).domain)
}

func (r *PromotionRepository) GetByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	return findOne(ctx, r.c, bson.M{"code": code, "isDeleted": false}, promotion.ErrNotFound, (*promotionDoc).domain)
}

func (r *PromotionRepository) Update(ctx context.Context, p *promotion.Promotion) error {
	return replace(ctx, r.c, p.ID, toPromotionDoc(p), promotion.ErrNotFound)
}

func (r *PromotionRepository) List(ctx context.Context, f promotion.ListFilter) ([]*promotion.Promotion, int64, error) {
	skip, limit := pageOf(f.Paging)
	return findPage(ctx, r.c, promotionFilter(f), sortSpec(f.Sort.Field, f.Sort.Desc), skip, limit, (*promotionDoc).domain)
}

// Redeem guards both the per-user and the global limit in one update.
func (r *PromotionRepository) Redeem(ctx context.Context, id, userID string) error {
	filter := bson.M{
		"_id":         id,
		"isDeleted":   false,
		"usedByUsers": bson.M{"$ne": userID},
		"$or": bson.A{
			bson.M{"usageLimit": bson.M{"$lte": 0}},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$usedCount", "$usageLimit"}}},
		},
	}
	update := bson.M{
		"$inc":      bson.M{"usedCount": 1},
		"$addToSet": bson.M{"usedByUsers": userID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := r.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongo: redeem promotion: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	p, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.UsedBy(userID) {
		return promotion.ErrAlreadyUsed
	}
	return promotion.ErrUsageLimit
}

func (r *PromotionRepository) Release(ctx context.Context, id, userID string) error {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": id, "usedByUsers": userID},
		bson.M{
			"$inc":  bson.M{"usedCount": -1},
			"$pull": bson.M{"usedByUsers": userID},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		})
	if err != nil {
		return fmt.Errorf("mongo: release promotion: %w", err)
	}
	if res.MatchedCount == 0 {
		found, err := exists(ctx, r.c, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if !found {
			return promotion.ErrNotFound
		}
	}
	return nil
}

type changeDoc struct {
	From any `bson:"from"`
	To   any `bson:"to"`
}

type promotionLogDoc struct {
	ID            string               `bson:"_id"`
	PromotionID   string               `bson:"promotionId"`
	PromotionCode string               `bson:"promotionCode"`
	PromotionName string               `bson:"promotionName"`
	Action        promotion.Action     `bson:"action"`
	PerformedBy   string               `bson:"performedBy"`
	OldData       bson.M               `bson:"oldData,omitempty"`
	NewData       bson.M               `bson:"newData,omitempty"`
	Changes       map[string]changeDoc `bson:"changes,omitempty"`
	Note          string               `bson:"note,omitempty"`
	IPAddress     string               `bson:"ipAddress,omitempty"`
	UserAgent     string               `bson:"userAgent,omitempty"`
	CreatedAt     time.Time            `bson:"createdAt"`
}

func toPromotionLogDoc(l *promotion.Log) promotionLogDoc {
	d := promotionLogDoc{
		ID: l.ID, PromotionID: l.PromotionID, PromotionCode: l.PromotionCode, PromotionName: l.PromotionName,
		Action: l.Action, PerformedBy: l.PerformedBy, OldData: bson.M(l.OldData), NewData: bson.M(l.NewData),
		Note: l.Note, IPAddress: l.IPAddress, UserAgent: l.UserAgent, CreatedAt: l.CreatedAt,
	}
	if len(l.Changes) > 0 {
		d.Changes = make(map[string]changeDoc, len(l.Changes))
		for k, c := range l.Changes {
			d.Changes[k] = changeDoc{From: c.From, To: c.To}
		}
	}
	return d
}

func (d *promotionLogDoc) domain() *promotion.Log {
	l := &promotion.Log{
		ID: d.ID, PromotionID: d.PromotionID, PromotionCode: d.PromotionCode, PromotionName: d.PromotionName,
		Action: d.Action, PerformedBy: d.PerformedBy, OldData: map[string]any(d.OldData), NewData: map[string]any(d.NewData),
		Note: d.Note, IPAddress: d.IPAddress, UserAgent: d.UserAgent, CreatedAt: d.CreatedAt,
	}
	if len(d.Changes) > 0 {
		l.Changes = make(map[string]promotion.Change, len(d.Changes))
		for k, c := range d.Changes {
			l.Changes[k] = promotion.Change{From: c.From, To: c.To}
		}
	}
	return l
}

type PromotionLogRepository struct{ c *mongo.Collection }

func (s *Store) PromotionLogs() *PromotionLogRepository {
	return &PromotionLogRepository{c: s.col(colPromotionLogs)}
}

func (r *PromotionLogRepository) Insert(ctx context.Context, l *promotion.Log) error {
	return insert(ctx, r.c, toPromotionLogDoc(l), nil)
}

func (r *PromotionLogRepository) Get(ctx context.Context, id string) (*promotion.Log, error) {
	return findOne(ctx, r.c, bson.M{"_id": id}, promotion.ErrLogNotFound, (*promotionLogDoc).domain)
}

func (r *PromotionLogRepository) List(ctx context.Context, f promotion.LogFilter) ([]*promotion.Log, int64, error) {
	skip, limit := pageOf(f.Paging)
	return findPage(ctx, r.c, promotionLogFilter(f), sortSpec(f.Sort.Field, f.Sort.Desc), skip, limit, (*promotionLogDoc).domain)
}
