package payment

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain"
)

var (
	ErrInvalidSignature = domain.NewError(domain.ErrInvalid, "INVALID_SIGNATURE", "payment: invalid signature")
	ErrInvalidAmount    = domain.NewError(domain.ErrInvalid, "INVALID_AMOUNT", "payment: amount does not match order")
	ErrPaymentFailed    = domain.NewError(domain.ErrPrecondition, "PAYMENT_FAILED", "payment: payment failed")
	ErrMalformed        = domain.NewError(domain.ErrInvalid, "PAYMENT_CALLBACK_MALFORMED", "payment: malformed callback")
	ErrUnavailable      = domain.NewError(domain.ErrPrecondition, "PAYMENT_UNAVAILABLE", "payment: online payment is not configured")
	// ErrOrderCancelled is a charge confirmed for an order that was already cancelled. It needs a manual refund.
	ErrOrderCancelled = domain.NewError(domain.ErrConflict, "ORDER_CANCELLED", "payment: order was cancelled before the payment arrived")
)

// Outcome of a processed callback.
type Outcome string

const (
	OutcomePaid        Outcome = "paid"
	OutcomeAlreadyPaid Outcome = "already_paid"
	OutcomeFailed      Outcome = "failed"
	OutcomeCancelled   Outcome = "order_cancelled"
)

// Request describes a checkout to be paid through the gateway.
type Request struct {
	OrderID  string
	Amount   int64
	ClientIP string
	Now      time.Time
}

// Callback is the normalised gateway notification.
type Callback struct {
	OrderID           string
	Amount            int64
	ResponseCode      string
	TransactionStatus string
	TransactionNo     string
	BankCode          string
	PayDate           *time.Time
}

// Succeeded reports whether the gateway confirms the charge.
func (c Callback) Succeeded() bool {
	return c.ResponseCode == "00" && c.TransactionStatus == "00"
}

// Gateway is the outbound port to the payment provider.
type Gateway interface {
	PaymentURL(ctx context.Context, req Request) (string, error)
	// ParseCallback verifies the signature and decodes the parameters.
	ParseCallback(params map[string]string) (Callback, error)
}
