package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain"
)

var (
	ErrNotFound            = domain.NewError(domain.ErrNotFound, "ORDER_NOT_FOUND", "order: not found")
	ErrConflict            = domain.NewError(domain.ErrConflict, "ORDER_CONFLICT", "order: already exists")
	ErrEmptySelection      = domain.NewError(domain.ErrInvalid, "ORDER_EMPTY_SELECTION", "order: no cart items selected")
	ErrCartMismatch        = domain.NewError(domain.ErrInvalid, "ORDER_CART_MISMATCH", "order: some selected cart items were not found")
	ErrStockMismatch       = domain.NewError(domain.ErrInvalid, "ORDER_STOCK_MISMATCH", "order: some books are not available in stock")
	ErrInvalidPrice        = domain.NewError(domain.ErrInvalid, "ORDER_PRICE_INVALID", "order: book price is invalid")
	ErrInvalidQuantity     = domain.NewError(domain.ErrInvalid, "ORDER_QUANTITY_INVALID", "order: quantity must be greater than zero")
	ErrInvalidAmount       = domain.NewError(domain.ErrInvalid, "ORDER_AMOUNT_INVALID", "order: final amount must not be negative")
	ErrAddressTooShort     = domain.NewError(domain.ErrInvalid, "SHIPPING_ADDRESS_TOO_SHORT", "order: shipping address must be at least 10 characters")
	ErrInvalidMethod       = domain.NewError(domain.ErrInvalid, "PAYMENT_METHOD_INVALID", "order: invalid payment method")
	ErrAlreadyCancelled    = domain.NewError(domain.ErrInvalid, "ORDER_ALREADY_CANCELLED", "order: order is already cancelled")
	ErrCannotCancel        = domain.NewError(domain.ErrInvalid, "ORDER_CANNOT_CANCEL", "order: order can no longer be cancelled")
	ErrCannotCancelPaid    = domain.NewError(domain.ErrInvalid, "ORDER_ALREADY_PAID", "order: paid orders cannot be cancelled")
	ErrFinalized           = domain.NewError(domain.ErrInvalid, "ORDER_FINALIZED", "order: cancelled orders cannot be changed")
	ErrInvalidTransition   = domain.NewError(domain.ErrInvalid, "ORDER_INVALID_TRANSITION", "order: invalid status transition")
	ErrAddressLocked       = domain.NewError(domain.ErrInvalid, "ORDER_ADDRESS_LOCKED", "order: shipping address can only change while pending")
	ErrNotOwner            = domain.NewError(domain.ErrForbidden, "ORDER_NOT_OWNER", "order: order belongs to another user")
	ErrNotPayable          = domain.NewError(domain.ErrInvalid, "ORDER_NOT_PAYABLE", "order: order cannot be paid online")
	ErrInsufficientStock   = domain.NewError(domain.ErrInvalid, "INSUFFICIENT_STOCK", "order: insufficient stock")
	ErrConcurrentlyChanged = domain.NewError(domain.ErrConflict, "ORDER_CONCURRENTLY_CHANGED", "order: order was changed by another request")
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusDelivered Status = "DELIVERED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDelivered, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCOD   PaymentMethod = "COD"
	PaymentVNPay PaymentMethod = "VNPAY"
)

func (m PaymentMethod) Valid() bool { return m == PaymentCOD || m == PaymentVNPay }

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
	PaymentFailed PaymentStatus = "FAILED"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentUnpaid || s == PaymentPaid || s == PaymentFailed
}

const MinAddressLength = 10

// CodeSeqStart is the counter value before the first order; the first code is ORD20250001.
const CodeSeqStart = 20250000

func FormatCode(seq int64) string {
	return fmt.Sprintf("ORD%08d", seq)
}

// Line is a priced order line; prices are snapshotted from stock at checkout.
type Line struct {
	BookID    string
	Title     string
	Quantity  int
	UnitPrice int64
	Subtotal  int64
}

func NewLine(bookID, title string, qty int, unitPrice int64) (Line, error) {
	if qty <= 0 {
		return Line{}, ErrInvalidQuantity
	}
	if unitPrice <= 0 {
		return Line{}, ErrInvalidPrice
	}
	return Line{BookID: bookID, Title: title, Quantity: qty, UnitPrice: unitPrice, Subtotal: unitPrice * int64(qty)}, nil
}

// AppliedPromotion records the promotion redeemed by an order.
type AppliedPromotion struct {
	PromotionID    string
	Code           string
	DiscountAmount int64
}

// Payment holds gateway confirmation data.
type Payment struct {
	TransactionNo  string
	GatewayOrderID string
	BankCode       string
	PaidAt         *time.Time
}

type Order struct {
	ID              string
	Code            string
	UserID          string
	Items           []Line
	ShippingAddress string
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	Status          Status
	TotalAmount     int64
	DiscountAmount  int64
	FinalAmount     int64
	Promotion       *AppliedPromotion
	Note            string
	Payment         Payment
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CheckAddress trims the address and enforces the minimum length.
func CheckAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if len([]rune(addr)) < MinAddressLength {
		return "", ErrAddressTooShort
	}
	return addr, nil
}

// Total sums line subtotals.
func Total(lines []Line) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal
	}
	return total
}

func New(id, code, userID string, lines []Line, address string, method PaymentMethod, note string, promo *AppliedPromotion) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptySelection
	}
	if !method.Valid() {
		return nil, ErrInvalidMethod
	}
	addr, err := CheckAddress(address)
	if err != nil {
		return nil, err
	}
	total := Total(lines)
	var discount int64
	if promo != nil {
		discount = promo.DiscountAmount
	}
	final := total - discount
	if final < 0 {
		return nil, ErrInvalidAmount
	}
	now := time.Now().UTC()
	return &Order{
		ID:              id,
		Code:            code,
		UserID:          userID,
		Items:           append([]Line(nil), lines...),
		ShippingAddress: addr,
		PaymentMethod:   method,
		PaymentStatus:   PaymentUnpaid,
		Status:          StatusPending,
		TotalAmount:     total,
		DiscountAmount:  discount,
		FinalAmount:     final,
		Promotion:       promo,
		Note:            strings.TrimSpace(note),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (o *Order) OwnedBy(userID string) bool { return o.UserID == userID }

// Contains reports whether a line for bookID exists.
func (o *Order) Contains(bookID string) bool {
	for _, l := range o.Items {
		if l.BookID == bookID {
			return true
		}
	}
	return false
}

// ChangeAddress is allowed only while the order is pending.
func (o *Order) ChangeAddress(addr string) error {
	if o.Status != StatusPending {
		return ErrAddressLocked
	}
	clean, err := CheckAddress(addr)
	if err != nil {
		return err
	}
	o.ShippingAddress = clean
	o.touch()
	return nil
}

// MoveTo sets the status; callers validate the transition first.
func (o *Order) MoveTo(s Status) {
	o.Status = s
	if s == StatusCancelled {
		now := time.Now().UTC()
		o.CancelledAt = &now
	}
	o.touch()
}

// AwaitingOnlinePayment reports whether a gateway payment may still settle this order.
func (o *Order) AwaitingOnlinePayment() bool {
	return o.PaymentMethod == PaymentVNPay && o.PaymentStatus != PaymentPaid && o.Status != StatusCancelled
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]Line(nil), o.Items...)
	if o.Promotion != nil {
		p := *o.Promotion
		c.Promotion = &p
	}
	if o.Payment.PaidAt != nil {
		t := *o.Payment.PaidAt
		c.Payment.PaidAt = &t
	}
	if o.CancelledAt != nil {
		t := *o.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
