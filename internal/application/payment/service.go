// Package payment connects orders to the online payment gateway.
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/readify/internal/application"
	domorder "github.com/Zhima-Mochi/readify/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/readify/internal/domain/outbox"
	domain "github.com/Zhima-Mochi/readify/internal/domain/payment"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/pkg/objectid"

	"go.opentelemetry.io/otel/attribute"
)

const (
	paymentService = "payment-service"
	gatewayPeer    = "vnpay"
)

// CallbackResult is what a processed gateway callback resolved to.
type CallbackResult struct {
	Outcome domain.Outcome
	OrderID string
}

type Service struct {
	orders    domorder.Repository
	gateway   domain.Gateway
	publisher domoutbox.Publisher
	clock     application.Clock
	inst      *application.Instrumentation
}

func NewService(orders domorder.Repository, gateway domain.Gateway, publisher domoutbox.Publisher, tel observability.Observability) *Service {
	return &Service{
		orders:    orders,
		gateway:   gateway,
		publisher: publisher,
		clock:     application.SystemClock,
		inst:      application.NewInstrumentation(paymentService, tel),
	}
}

func (s *Service) WithClock(c application.Clock) *Service {
	s.clock = c
	return s
}

// CreatePaymentURL returns a fresh gateway link for an order the caller still has to pay.
func (s *Service) CreatePaymentURL(ctx context.Context, actor application.Actor, orderID, clientIP string) (_ string, err error) {
	ctx, call := s.inst.Start(ctx, "payment.create_url", "CreatePaymentURL",
		attribute.String("order.id", orderID),
		attribute.String("order.customer_id", actor.UserID),
	)
	defer call.End(&err)

	if !actor.IsCustomer() {
		return "", application.ErrForbidden
	}
	if !objectid.Valid(orderID) {
		return "", application.NewValidation("invalid order id")
	}
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return "", application.WrapRepositoryError(err)
	}
	if !o.OwnedBy(actor.UserID) {
		return "", domorder.ErrNotOwner
	}
	if !o.AwaitingOnlinePayment() {
		return "", domorder.ErrNotPayable
	}
	return s.PaymentURLFor(ctx, o, clientIP)
}

// PaymentURLFor signs a gateway link for the order's final amount.
func (s *Service) PaymentURLFor(ctx context.Context, o *domorder.Order, clientIP string) (string, error) {
	start := time.Now()
	url, err := s.gateway.PaymentURL(ctx, domain.Request{
		OrderID:  o.ID,
		Amount:   o.FinalAmount,
		ClientIP: clientIP,
		Now:      s.clock(),
	})
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.inst.External(gatewayPeer, "payment_url", outcome, time.Since(start))
	return url, err
}

// HandleCallback applies a gateway return or IPN notification. Replays of a successful payment
// resolve to OutcomeAlreadyPaid without touching the order.
func (s *Service) HandleCallback(ctx context.Context, params map[string]string) (_ CallbackResult, err error) {
	ctx, call := s.inst.Start(ctx, "payment.callback", "HandlePaymentCallback")
	defer call.End(&err)

	cb, err := s.gateway.ParseCallback(params)
	if err != nil {
		return CallbackResult{}, err
	}
	res := CallbackResult{OrderID: cb.OrderID}
	call.Field("order_id", cb.OrderID)
	call.Field("transaction_no", cb.TransactionNo)

	o, err := s.orders.Get(ctx, cb.OrderID)
	if err != nil {
		return res, application.WrapRepositoryError(err)
	}
	if cb.Amount != o.FinalAmount {
		return res, domain.ErrInvalidAmount
	}

	if !cb.Succeeded() {
		res.Outcome = domain.OutcomeFailed
		if _, err = s.orders.MarkPaymentFailed(ctx, o.ID); err != nil {
			return res, application.WrapRepositoryError(err)
		}
		call.Field("response_code", cb.ResponseCode)
		return res, domain.ErrPaymentFailed
	}

	if o.Status == domorder.StatusCancelled {
		return s.paidAfterCancel(call, res, cb)
	}

	changed, err := s.orders.MarkPaid(ctx, o.ID, domorder.Payment{
		TransactionNo:  cb.TransactionNo,
		GatewayOrderID: cb.OrderID,
		BankCode:       cb.BankCode,
		PaidAt:         cb.PayDate,
	})
	if err != nil {
		return res, application.WrapRepositoryError(err)
	}
	if !changed {
		cur, err := s.orders.Get(ctx, o.ID)
		if err != nil {
			return res, application.WrapRepositoryError(err)
		}
		if cur.Status == domorder.StatusCancelled && cur.PaymentStatus != domorder.PaymentPaid {
			return s.paidAfterCancel(call, res, cb)
		}
		res.Outcome = domain.OutcomeAlreadyPaid
		call.Status("ALREADY_PAID")
		return res, nil
	}
	res.Outcome = domain.OutcomePaid

	paid, err := s.orders.Get(ctx, o.ID)
	if err != nil {
		return res, application.WrapRepositoryError(err)
	}
	call.Event("order.paid", attribute.String("order.id", o.ID), attribute.Int64("order.final_amount", o.FinalAmount))
	if pubErr := s.inst.Publish(ctx, s.publisher, domorder.NewPaidEvent(paid, cb.TransactionNo)); pubErr != nil {
		call.Status("EVENT_PUBLISH_FAILED")
	}
	return res, nil
}

// paidAfterCancel leaves a cancelled order untouched. Its stock and promotion were already released,
// so the charge is logged for a manual refund.
func (s *Service) paidAfterCancel(call *application.Call, res CallbackResult, cb domain.Callback) (CallbackResult, error) {
	res.Outcome = domain.OutcomeCancelled
	call.Status("ORDER_CANCELLED")
	call.Logger().Warn("payment_refund_required",
		observability.F("order_id", cb.OrderID),
		observability.F("transaction_no", cb.TransactionNo),
		observability.F("amount", cb.Amount),
	)
	return res, domain.ErrOrderCancelled
}

// IPN response codes understood by the gateway.
const (
	RspSuccess          = "00"
	RspOrderNotFound    = "01"
	RspAlreadyConfirmed = "02"
	RspInvalidAmount    = "04"
	RspInvalidSignature = "97"
	RspUnknown          = "99"
)

// IPNResponse maps a callback outcome to the acknowledgement body the gateway expects.
// A declined payment is acknowledged with 00 so the gateway stops retrying.
func IPNResponse(err error) (code, message string) {
	switch {
	case err == nil:
		return RspSuccess, "Confirm Success"
	case errors.Is(err, domain.ErrPaymentFailed):
		return RspSuccess, "Confirm Success"
	case errors.Is(err, domain.ErrOrderCancelled):
		return RspAlreadyConfirmed, "Order already confirmed"
	case errors.Is(err, domorder.ErrNotFound):
		return RspOrderNotFound, "Order not found"
	case errors.Is(err, domain.ErrInvalidAmount):
		return RspInvalidAmount, "Invalid amount"
	case errors.Is(err, domain.ErrInvalidSignature):
		return RspInvalidSignature, "Invalid signature"
	default:
		return RspUnknown, "Unknown error"
	}
}
