package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/Zhima-Mochi/readify/internal/domain/order"
)

const orderCounter = "order_code"

type lineDoc struct {
	BookID    string `bson:"bookId"`
	Title     string `bson:"title"`
	Quantity  int    `bson:"quantity"`
	UnitPrice int64  `bson:"unitPrice"`
	Subtotal  int64  `bson:"subtotal"`
}

type appliedPromotionDoc struct {
	PromotionID    string `bson:"promotionId"`
	Code           string `bson:"code"`
	DiscountAmount int64  `bson:"discountAmount"`
}

type orderDoc struct {
	ID              string               `bson:"_id"`
	Code            string               `bson:"orderCode"`
	UserID          string               `bson:"userId"`
	Items           []lineDoc            `bson:"items"`
	ShippingAddress string               `bson:"shippingAddress"`
	PaymentMethod   domain.PaymentMethod `bson:"paymentMethod"`
	PaymentStatus   domain.PaymentStatus `bson:"paymentStatus"`
	Status          domain.Status        `bson:"status"`
	TotalAmount     int64                `bson:"totalAmount"`
	DiscountAmount  int64                `bson:"discountAmount"`
	FinalAmount     int64                `bson:"finalAmount"`
	Promotion       *appliedPromotionDoc `bson:"promotion,omitempty"`
	Note            string               `bson:"note,omitempty"`
	TransactionID   string               `bson:"transactionId,omitempty"`
	VNPayOrderID    string               `bson:"vnpayOrderId,omitempty"`
	BankCode        string               `bson:"bankCode,omitempty"`
	PayDate         *time.Time           `bson:"payDate,omitempty"`
	CancelledAt     *time.Time           `bson:"cancelledAt,omitempty"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

func toOrderDoc(o *domain.Order) orderDoc {
	items := make([]lineDoc, 0, len(o.Items))
	for _, l := range o.Items {
		items = append(items, lineDoc{BookID: l.BookID, Title: l.Title, Quantity: l.Quantity, UnitPrice: l.UnitPrice, Subtotal: l.Subtotal})
	}
	d := orderDoc{
		ID: o.ID, Code: o.Code, UserID: o.UserID, Items: items, ShippingAddress: o.ShippingAddress,
		PaymentMethod: o.PaymentMethod, PaymentStatus: o.PaymentStatus, Status: o.Status,
		TotalAmount: o.TotalAmount, DiscountAmount: o.DiscountAmount, FinalAmount: o.FinalAmount, Note: o.Note,
		TransactionID: o.Payment.TransactionNo, VNPayOrderID: o.Payment.GatewayOrderID, BankCode: o.Payment.BankCode,
		PayDate: o.Payment.PaidAt, CancelledAt: o.CancelledAt, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
	}
	if p := o.Promotion; p != nil {
		d.Promotion = &appliedPromotionDoc{PromotionID: p.PromotionID, Code: p.Code, DiscountAmount: p.DiscountAmount}
	}
	return d
}

func (d *orderDoc) domain() *domain.Order {
	items := make([]domain.Line, 0, len(d.Items))
	for _, l := range d.Items {
		items = append(items, domain.Line{BookID: l.BookID, Title: l.Title, Quantity: l.Quantity, UnitPrice: l.UnitPrice, Subtotal: l.Subtotal})
	}
	o := &domain.Order{
		ID: d.ID, Code: d.Code, UserID: d.UserID, Items: items, ShippingAddress: d.ShippingAddress,
		PaymentMethod: d.PaymentMethod, PaymentStatus: d.PaymentStatus, Status: d.Status,
		TotalAmount: d.TotalAmount, DiscountAmount: d.DiscountAmount, FinalAmount: d.FinalAmount, Note: d.Note,
		Payment: domain.Payment{
			TransactionNo: d.TransactionID, GatewayOrderID: d.VNPayOrderID, BankCode: d.BankCode, PaidAt: d.PayDate,
		},
		CancelledAt: d.CancelledAt, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
	if p := d.Promotion; p != nil {
		o.Promotion = &domain.AppliedPromotion{PromotionID: p.PromotionID, Code: p.Code, DiscountAmount: p.DiscountAmount}
	}
	return o
}

type OrderRepository struct {
	c        *mongo.Collection
	counters *mongo.Collection
}

func (s *Store) Orders() *OrderRepository {
	return &OrderRepository{c: s.col(colOrders), counters: s.col(colCounters)}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	return insert(ctx, r.c, toOrderDoc(o), domain.ErrConflict)
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return findOne(ctx, r.c, bson.M{"_id": id}, domain.ErrNotFound, (*orderDoc).domain)
}

func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	return replace(ctx, r.c, o.ID, toOrderDoc(o), domain.ErrNotFound)
}

func (r *OrderRepository) CompareAndSetStatus(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	now := time.Now().UTC()
	set := bson.M{"status": to, "updatedAt": now}
	if to == domain.StatusCancelled {
		set["cancelledAt"] = now
	}
	return r.conditional(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id string, p domain.Payment) (bool, error) {
	set := bson.M{
		"paymentStatus": domain.PaymentPaid,
		"status":        domain.StatusConfirmed,
		"transactionId": p.TransactionNo,
		"vnpayOrderId":  p.GatewayOrderID,
		"bankCode":      p.BankCode,
		"updatedAt":     time.Now().UTC(),
	}
	if p.PaidAt != nil {
		set["payDate"] = *p.PaidAt
	}
	filter := bson.M{
		"_id":           id,
		"paymentStatus": bson.M{"$ne": domain.PaymentPaid},
		"status":        bson.M{"$ne": domain.StatusCancelled},
	}
	return r.conditional(ctx, filter, bson.M{"$set": set})
}

func (r *OrderRepository) MarkPaymentFailed(ctx context.Context, id string) (bool, error) {
	return r.conditional(ctx,
		bson.M{"_id": id, "paymentStatus": bson.M{"$ne": domain.PaymentPaid}},
		bson.M{"$set": bson.M{"paymentStatus": domain.PaymentFailed, "updatedAt": time.Now().UTC()}})
}

// conditional applies update when filter matches. A miss on an existing order
// reports false; a missing order reports ErrNotFound.
func (r *OrderRepository) conditional(ctx context.Context, filter, update bson.M) (bool, error) {
	res, err := r.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("mongo: update order: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	found, err := exists(ctx, r.c, bson.M{"_id": filter["_id"]})
	if err != nil {
		return false, err
	}
	if !found {
		return false, domain.ErrNotFound
	}
	return false, nil
}

func (r *OrderRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Order, int64, error) {
	skip, limit := pageOf(f.Paging)
	return findPage(ctx, r.c, orderFilter(f), sortSpec(f.Sort.Field, f.Sort.Desc), skip, limit, (*orderDoc).domain)
}

// NextCode bumps a single counter document. The increment is atomic, so
// concurrent checkouts never share a code.
func (r *OrderRepository) NextCode(ctx context.Context) (string, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": orderCounter},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", fmt.Errorf("mongo: order counter missing after upsert")
		}
		return "", fmt.Errorf("mongo: next order code: %w", err)
	}
	return domain.FormatCode(domain.CodeSeqStart + counter.Seq), nil
}
