package account

import "time"

// PendingRegistration stages a sign-up until the email OTP is verified.
type PendingRegistration struct {
	Email        string
	PasswordHash string
	Profile      Profile
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

func (p *PendingRegistration) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
