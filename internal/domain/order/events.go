package order

import "time"

// CreatedEvent is emitted after the checkout transaction commits.
type CreatedEvent struct {
	OrderID       string
	Code          string
	UserID        string
	FinalAmount   int64
	PaymentMethod PaymentMethod
	PromotionCode string
	OccurredAt    time.Time
}

func (CreatedEvent) EventName() string { return "order.created" }

func NewCreatedEvent(o *Order) CreatedEvent {
	e := CreatedEvent{
		OrderID:       o.ID,
		Code:          o.Code,
		UserID:        o.UserID,
		FinalAmount:   o.FinalAmount,
		PaymentMethod: o.PaymentMethod,
		OccurredAt:    time.Now().UTC(),
	}
	if o.Promotion != nil {
		e.PromotionCode = o.Promotion.Code
	}
	return e
}

// CancelledEvent is emitted once stock and promotion usage have been restored.
type CancelledEvent struct {
	OrderID    string
	Code       string
	UserID     string
	Reason     string
	OccurredAt time.Time
}

func (CancelledEvent) EventName() string { return "order.cancelled" }

func NewCancelledEvent(o *Order, reason string) CancelledEvent {
	return CancelledEvent{
		OrderID:    o.ID,
		Code:       o.Code,
		UserID:     o.UserID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}

type PaidEvent struct {
	OrderID       string
	Code          string
	UserID        string
	Amount        int64
	TransactionNo string
	OccurredAt    time.Time
}

func (PaidEvent) EventName() string { return "order.paid" }

func NewPaidEvent(o *Order, transactionNo string) PaidEvent {
	return PaidEvent{
		OrderID:       o.ID,
		Code:          o.Code,
		UserID:        o.UserID,
		Amount:        o.FinalAmount,
		TransactionNo: transactionNo,
		OccurredAt:    time.Now().UTC(),
	}
}

type StatusChangedEvent struct {
	OrderID    string
	Code       string
	UserID     string
	From       Status
	To         Status
	ChangedBy  string
	OccurredAt time.Time
}

func (StatusChangedEvent) EventName() string { return "order.status_changed" }

func NewStatusChangedEvent(o *Order, from, to Status, by string) StatusChangedEvent {
	return StatusChangedEvent{
		OrderID:    o.ID,
		Code:       o.Code,
		UserID:     o.UserID,
		From:       from,
		To:         to,
		ChangedBy:  by,
		OccurredAt: time.Now().UTC(),
	}
}
