package mongo

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Zhima-Mochi/readify/internal/domain/account"
	"github.com/Zhima-Mochi/readify/internal/domain/book"
	"github.com/Zhima-Mochi/readify/internal/domain/notification"
	"github.com/Zhima-Mochi/readify/internal/domain/order"
	"github.com/Zhima-Mochi/readify/internal/domain/promotion"
	"github.com/Zhima-Mochi/readify/internal/domain/review"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

// contains matches s literally and case-insensitively.
func contains(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func anyContains(q string, fields ...string) bson.A {
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: contains(q)})
	}
	return or
}

// sortSpec orders by field and breaks ties on _id in the same direction.
func sortSpec(field string, desc bool) bson.D {
	d := 1
	if desc {
		d = -1
	}
	if field == "" || field == "_id" {
		return bson.D{{Key: "_id", Value: d}}
	}
	return bson.D{{Key: field, Value: d}, {Key: "_id", Value: d}}
}

func pageOf(p paging.Params) (int64, int64) { return p.Skip(), int64(p.Limit) }

func accountFilter(f account.ListFilter) bson.M {
	m := bson.M{}
	if len(f.Roles) > 0 {
		roles := make(bson.A, 0, len(f.Roles))
		for _, r := range f.Roles {
			roles = append(roles, int(r))
		}
		m["role"] = bson.M{"$in": roles}
	}
	status := bson.M{}
	if f.Status != nil {
		status["$eq"] = int(*f.Status)
	}
	if f.ExcludeStatus != nil {
		status["$ne"] = int(*f.ExcludeStatus)
	}
	if len(status) > 0 {
		m["status"] = status
	}
	if f.IsDeleted != nil {
		m["isDeleted"] = *f.IsDeleted
	}
	if len(f.Terms) > 0 {
		and := make(bson.A, 0, len(f.Terms))
		for _, t := range f.Terms {
			and = append(and, bson.M{"$or": anyContains(t, "firstName", "lastName", "email", "phone")})
		}
		m["$and"] = and
	}
	return m
}

func bookFilter(f book.ListFilter) bson.M {
	m := bson.M{}
	if f.PublicOnly {
		m["isDeleted"] = false
		m["status"] = int(book.StatusActive)
	}
	if f.IDs != nil {
		m["_id"] = bson.M{"$in": f.IDs}
	}
	if f.CategoryID != "" {
		m["categoryIds"] = f.CategoryID
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		m["basePrice"] = price
	}
	if f.Status != nil {
		m["status"] = int(*f.Status)
	}
	if f.IsDeleted != nil {
		m["isDeleted"] = *f.IsDeleted
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		m["$or"] = anyContains(q, "title", "slug", "authors", "isbn")
	}
	return m
}

func bookSort(key string) bson.D {
	switch key {
	case book.SortOldest:
		return sortSpec("createdAt", false)
	case book.SortPriceAsc:
		return sortSpec("basePrice", false)
	case book.SortPriceDesc:
		return sortSpec("basePrice", true)
	case book.SortBestSelling:
		return sortSpec("soldCount", true)
	default:
		return sortSpec("createdAt", true)
	}
}

func orderFilter(f order.ListFilter) bson.M {
	m := bson.M{}
	if f.UserID != "" {
		m["userId"] = f.UserID
	}
	if f.Status != "" {
		m["status"] = string(f.Status)
	}
	if f.PaymentMethod != "" {
		m["paymentMethod"] = string(f.PaymentMethod)
	}
	if f.PaymentStatus != "" {
		m["paymentStatus"] = string(f.PaymentStatus)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		m["$or"] = anyContains(q, "orderCode", "shippingAddress")
	}
	return m
}

func promotionFilter(f promotion.ListFilter) bson.M {
	m := bson.M{"isDeleted": false}
	if f.Status != "" {
		m["status"] = string(f.Status)
	}
	if f.DiscountType != "" {
		m["discountType"] = string(f.DiscountType)
	}
	if f.ApplyScope != "" {
		m["applyScope"] = f.ApplyScope
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		m["$or"] = anyContains(q, "code", "name")
	}
	return m
}

func promotionLogFilter(f promotion.LogFilter) bson.M {
	m := bson.M{}
	if f.PromotionID != "" {
		m["promotionId"] = f.PromotionID
	}
	if f.PromotionCode != "" {
		m["promotionCode"] = contains(f.PromotionCode)
	}
	if f.Action != "" {
		m["action"] = string(f.Action)
	}
	if f.PerformedBy != "" {
		m["performedBy"] = f.PerformedBy
	}
	created := bson.M{}
	if f.From != nil {
		created["$gte"] = *f.From
	}
	if f.To != nil {
		created["$lte"] = *f.To
	}
	if len(created) > 0 {
		m["createdAt"] = created
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		m["$or"] = anyContains(q, "promotionCode", "promotionName", "note")
	}
	return m
}

func reviewFilter(f review.ListFilter) bson.M {
	m := bson.M{"isActive": true}
	if f.BookID != "" {
		m["bookId"] = f.BookID
	}
	if f.UserID != "" {
		m["userId"] = f.UserID
	}
	if f.Rating != 0 {
		m["rating"] = f.Rating
	}
	if f.Status != "" {
		m["status"] = string(f.Status)
	}
	return m
}

func notificationFilter(f notification.ListFilter) bson.M {
	m := bson.M{
		"isActive": true,
		"userId":   bson.M{"$in": bson.A{"", f.UserID}},
	}
	if f.Type != "" {
		m["type"] = string(f.Type)
	}
	id := bson.M{}
	if f.IncludeIDs != nil {
		id["$in"] = f.IncludeIDs
	}
	if f.ExcludeIDs != nil {
		id["$nin"] = f.ExcludeIDs
	}
	if len(id) > 0 {
		m["_id"] = id
	}
	return m
}
