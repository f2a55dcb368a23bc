package account

import "time"

type RegisteredEvent struct {
	AccountID  string
	Email      string
	OccurredAt time.Time
}

func (RegisteredEvent) EventName() string { return "account.registered" }

func NewRegisteredEvent(a *Account) RegisteredEvent {
	return RegisteredEvent{
		AccountID:  a.ID,
		Email:      a.Email,
		OccurredAt: time.Now().UTC(),
	}
}
