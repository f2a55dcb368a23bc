package order

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckStaffTransitionCOD(t *testing.T) {
	o := &Order{Status: StatusPending, PaymentMethod: PaymentCOD}

	assert.NoError(t, o.CheckStaffTransition(StatusConfirmed))
	assert.True(t, errors.Is(o.CheckStaffTransition(StatusDelivered), ErrInvalidTransition))
	assert.NoError(t, o.CheckStaffTransition(StatusCancelled))

	o.Status = StatusDelivered
	assert.NoError(t, o.CheckStaffTransition(StatusCompleted))

	o.Status = StatusCompleted
	assert.True(t, errors.Is(o.CheckStaffTransition(StatusCancelled), ErrCannotCancel))

	o.Status = StatusCancelled
	assert.True(t, errors.Is(o.CheckStaffTransition(StatusPending), ErrFinalized))
}

func TestCheckStaffTransitionOnlinePaymentJumps(t *testing.T) {
	o := &Order{Status: StatusPending, PaymentMethod: PaymentVNPay}
	assert.NoError(t, o.CheckStaffTransition(StatusCompleted))
	assert.True(t, errors.Is(o.CheckStaffTransition(Status("SHIPPING")), ErrInvalidTransition))
}

func TestCheckCustomerCancel(t *testing.T) {
	cases := []struct {
		name   string
		order  Order
		expect error
	}{
		{"cod pending", Order{Status: StatusPending, PaymentMethod: PaymentCOD}, nil},
		{"cod confirmed", Order{Status: StatusConfirmed, PaymentMethod: PaymentCOD}, ErrCannotCancel},
		{"vnpay unpaid confirmed", Order{Status: StatusConfirmed, PaymentMethod: PaymentVNPay, PaymentStatus: PaymentUnpaid}, nil},
		{"vnpay paid", Order{Status: StatusConfirmed, PaymentMethod: PaymentVNPay, PaymentStatus: PaymentPaid}, ErrCannotCancelPaid},
		{"delivered", Order{Status: StatusDelivered, PaymentMethod: PaymentVNPay}, ErrCannotCancel},
		{"cancelled", Order{Status: StatusCancelled, PaymentMethod: PaymentCOD}, ErrAlreadyCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.order.CheckCustomerCancel()
			if tc.expect == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.expect), "got %v", err)
		})
	}
}

func TestNewComputesAmounts(t *testing.T) {
	l1, err := NewLine("b1", "Go", 2, 50000)
	assert.NoError(t, err)
	l2, err := NewLine("b2", "Rust", 1, 30000)
	assert.NoError(t, err)

	o, err := New("o1", FormatCode(CodeSeqStart+1), "u1", []Line{l1, l2}, "  12 Nguyen Hue, HCMC ", PaymentCOD, "", &AppliedPromotion{Code: "SALE", DiscountAmount: 10000})
	assert.NoError(t, err)
	assert.Equal(t, "ORD20250001", o.Code)
	assert.Equal(t, int64(130000), o.TotalAmount)
	assert.Equal(t, int64(120000), o.FinalAmount)
	assert.Equal(t, "12 Nguyen Hue, HCMC", o.ShippingAddress)

	_, err = New("o2", "c", "u1", []Line{l1}, "short", PaymentCOD, "", nil)
	assert.True(t, errors.Is(err, ErrAddressTooShort))
}
