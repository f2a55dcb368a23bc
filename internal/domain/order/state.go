package order

// OrderState implements the state pattern for order lifecycle transitions.
type OrderState interface {
	Status() Status
	// Advance returns the next fulfilment step.
	Advance() (OrderState, error)
	// CustomerCancel checks whether the owner may cancel an order in this state.
	CustomerCancel(o *Order) error
	// StaffCancel checks whether staff may cancel an order in this state.
	StaffCancel() error
}

// StateOf resolves the state object for a status.
func StateOf(s Status) OrderState {
	switch s {
	case StatusConfirmed:
		return confirmedState{}
	case StatusDelivered:
		return deliveredState{}
	case StatusCompleted:
		return completedState{}
	case StatusCancelled:
		return cancelledState{}
	default:
		return pendingState{}
	}
}

type pendingState struct{}

func (pendingState) Status() Status { return StatusPending }

func (pendingState) Advance() (OrderState, error) { return confirmedState{}, nil }

func (pendingState) CustomerCancel(o *Order) error {
	if o.PaymentMethod == PaymentVNPay && o.PaymentStatus == PaymentPaid {
		return ErrCannotCancelPaid
	}
	return nil
}

func (pendingState) StaffCancel() error { return nil }

type confirmedState struct{}

func (confirmedState) Status() Status { return StatusConfirmed }

func (confirmedState) Advance() (OrderState, error) { return deliveredState{}, nil }

func (confirmedState) CustomerCancel(o *Order) error {
	if o.PaymentMethod == PaymentCOD {
		return ErrCannotCancel
	}
	if o.PaymentStatus == PaymentPaid {
		return ErrCannotCancelPaid
	}
	return nil
}

func (confirmedState) StaffCancel() error { return nil }

type deliveredState struct{}

func (deliveredState) Status() Status { return StatusDelivered }

func (deliveredState) Advance() (OrderState, error) { return completedState{}, nil }

func (deliveredState) CustomerCancel(*Order) error { return ErrCannotCancel }

func (deliveredState) StaffCancel() error { return nil }

type completedState struct{}

func (completedState) Status() Status { return StatusCompleted }

func (completedState) Advance() (OrderState, error) { return nil, ErrInvalidTransition }

func (completedState) CustomerCancel(*Order) error { return ErrCannotCancel }

func (completedState) StaffCancel() error { return ErrCannotCancel }

type cancelledState struct{}

func (cancelledState) Status() Status { return StatusCancelled }

func (cancelledState) Advance() (OrderState, error) { return nil, ErrFinalized }

func (cancelledState) CustomerCancel(*Order) error { return ErrAlreadyCancelled }

func (cancelledState) StaffCancel() error { return ErrFinalized }

// CheckCustomerCancel applies the owner cancel rules for the order's current state.
func (o *Order) CheckCustomerCancel() error {
	return StateOf(o.Status).CustomerCancel(o)
}

// CheckStaffTransition validates a back-office status change. COD orders move one step at a time;
// online-paid orders may jump. Cancelled orders are final and completed orders cannot be cancelled.
func (o *Order) CheckStaffTransition(target Status) error {
	if !target.Valid() {
		return ErrInvalidTransition
	}
	current := StateOf(o.Status)
	if o.Status == StatusCancelled {
		return ErrFinalized
	}
	if target == StatusCancelled {
		return current.StaffCancel()
	}
	if o.PaymentMethod != PaymentCOD {
		return nil
	}
	next, err := current.Advance()
	if err != nil {
		return err
	}
	if next.Status() != target {
		return ErrInvalidTransition
	}
	return nil
}
