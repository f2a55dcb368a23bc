package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Zhima-Mochi/readify/internal/domain/account"
	"github.com/Zhima-Mochi/readify/internal/domain/book"
	"github.com/Zhima-Mochi/readify/internal/domain/notification"
	"github.com/Zhima-Mochi/readify/internal/domain/order"
	"github.com/Zhima-Mochi/readify/internal/domain/promotion"
	"github.com/Zhima-Mochi/readify/internal/domain/review"
)

func TestContainsEscapesRegex(t *testing.T) {
	re := contains("ORD2025.*(")
	assert.Equal(t, `ORD2025\.\*\(`, re.Pattern)
	assert.Equal(t, "i", re.Options)
}

func TestSortSpecAddsIDTiebreak(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}, sortSpec("createdAt", true))
	assert.Equal(t, bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}, sortSpec("name", false))
	assert.Equal(t, bson.D{{Key: "_id", Value: 1}}, sortSpec("", false))
}

func TestBookSortKeys(t *testing.T) {
	tests := map[string]bson.D{
		book.SortNewest:      sortSpec("createdAt", true),
		book.SortOldest:      sortSpec("createdAt", false),
		book.SortPriceAsc:    sortSpec("basePrice", false),
		book.SortPriceDesc:   sortSpec("basePrice", true),
		book.SortBestSelling: sortSpec("soldCount", true),
		"bogus":              sortSpec("createdAt", true),
	}
	for key, want := range tests {
		assert.Equal(t, want, bookSort(key), key)
	}
}

func TestAccountFilter(t *testing.T) {
	active := account.StatusActive
	banned := account.StatusBanned
	deleted := false
	m := accountFilter(account.ListFilter{
		Roles:         []account.Role{account.RoleAdmin, account.RoleSeller},
		Status:        &active,
		ExcludeStatus: &banned,
		IsDeleted:     &deleted,
		Terms:         []string{"an", "gmail"},
	})

	assert.Equal(t, bson.M{"$in": bson.A{1, 2}}, m["role"])
	assert.Equal(t, bson.M{"$eq": 1, "$ne": -1}, m["status"])
	assert.Equal(t, false, m["isDeleted"])
	and, ok := m["$and"].(bson.A)
	require.True(t, ok)
	require.Len(t, and, 2)
	first := and[0].(bson.M)["$or"].(bson.A)
	assert.Len(t, first, 4)
	assert.Equal(t, bson.M{"firstName": primitive.Regex{Pattern: "an", Options: "i"}}, first[0])
}

func TestBookFilterPublic(t *testing.T) {
	min, max := int64(10_000), int64(50_000)
	m := bookFilter(book.ListFilter{
		PublicOnly: true,
		CategoryID: "c1",
		MinPrice:   &min,
		MaxPrice:   &max,
		IDs:        []string{},
		Query:      " go ",
	})
	assert.Equal(t, false, m["isDeleted"])
	assert.Equal(t, int(book.StatusActive), m["status"])
	assert.Equal(t, "c1", m["categoryIds"])
	assert.Equal(t, bson.M{"$gte": min, "$lte": max}, m["basePrice"])
	assert.Equal(t, bson.M{"$in": []string{}}, m["_id"])
	assert.Len(t, m["$or"], 4)
}

func TestBookFilterEmpty(t *testing.T) {
	assert.Empty(t, bookFilter(book.ListFilter{}))
}

func TestOrderFilter(t *testing.T) {
	m := orderFilter(order.ListFilter{
		UserID:        "u1",
		Status:        order.StatusPending,
		PaymentMethod: order.PaymentVNPay,
		PaymentStatus: order.PaymentUnpaid,
		Query:         "ord+1",
	})
	assert.Equal(t, "u1", m["userId"])
	assert.Equal(t, "PENDING", m["status"])
	assert.Equal(t, "VNPAY", m["paymentMethod"])
	assert.Equal(t, "UNPAID", m["paymentStatus"])
	assert.Equal(t, bson.A{
		bson.M{"orderCode": primitive.Regex{Pattern: `ord\+1`, Options: "i"}},
		bson.M{"shippingAddress": primitive.Regex{Pattern: `ord\+1`, Options: "i"}},
	}, m["$or"])
}

func TestPromotionFilters(t *testing.T) {
	m := promotionFilter(promotion.ListFilter{Status: promotion.StatusActive, Query: "sale"})
	assert.Equal(t, false, m["isDeleted"])
	assert.Equal(t, "ACTIVE", m["status"])
	assert.Len(t, m["$or"], 2)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	l := promotionLogFilter(promotion.LogFilter{Action: promotion.ActionApply, From: &from, To: &to, Search: "x"})
	assert.Equal(t, "APPLY", l["action"])
	assert.Equal(t, bson.M{"$gte": from, "$lte": to}, l["createdAt"])
	assert.Len(t, l["$or"], 3)
}

func TestReviewFilterKeepsActiveOnly(t *testing.T) {
	m := reviewFilter(review.ListFilter{BookID: "b1", Rating: 5, Status: review.StatusApproved})
	assert.Equal(t, bson.M{"isActive": true, "bookId": "b1", "rating": 5, "status": "APPROVED"}, m)
}

func TestNotificationFilterIncludesBroadcasts(t *testing.T) {
	m := notificationFilter(notification.ListFilter{
		UserID:     "u1",
		Type:       notification.TypeOrder,
		ExcludeIDs: []string{"n1"},
	})
	assert.Equal(t, bson.M{"$in": bson.A{"", "u1"}}, m["userId"])
	assert.Equal(t, true, m["isActive"])
	assert.Equal(t, bson.M{"$nin": []string{"n1"}}, m["_id"])
}
