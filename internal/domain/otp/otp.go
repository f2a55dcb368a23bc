package otp

import (
	"context"
	"math"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain"
)

var (
	ErrNotFound        = domain.NewError(domain.ErrNotFound, "OTP_NOT_FOUND", "otp: not found")
	ErrAlreadySent     = domain.NewError(domain.ErrInvalid, "OTP_ALREADY_SENT", "otp: already sent")
	ErrExpired         = domain.NewError(domain.ErrInvalid, "OTP_EXPIRED", "otp: expired")
	ErrInvalid         = domain.NewError(domain.ErrInvalid, "OTP_INVALID", "otp: invalid code")
	ErrBlocked         = domain.NewError(domain.ErrInvalid, "OTP_BLOCKED", "otp: temporarily blocked")
	ErrCooldown        = domain.NewError(domain.ErrTooManyRequests, "OTP_COOLDOWN", "otp: resend requested too soon")
	ErrResendLimit     = domain.NewError(domain.ErrInvalid, "OTP_RESEND_LIMIT", "otp: resend limit reached")
	ErrTooManyAttempts = domain.NewError(domain.ErrTooManyRequests, "OTP_TOO_MANY_ATTEMPTS", "otp: too many attempts")
	ErrDelivery        = domain.NewError(domain.ErrPrecondition, "OTP_DELIVERY_FAILED", "otp: failed to send email")
)

type Purpose string

const (
	PurposeRegister       Purpose = "REGISTER"
	PurposeForgotPassword Purpose = "FORGOT_PASSWORD"
)

func (p Purpose) Valid() bool { return p == PurposeRegister || p == PurposeForgotPassword }

// Policy holds the throttling limits.
type Policy struct {
	TTL         time.Duration
	Cooldown    time.Duration
	Block       time.Duration
	MaxResend   int
	MaxAttempts int
}

func DefaultPolicy() Policy {
	return Policy{
		TTL:         5 * time.Minute,
		Cooldown:    time.Minute,
		Block:       15 * time.Minute,
		MaxResend:   10,
		MaxAttempts: 10,
	}
}

type Record struct {
	Email        string
	Purpose      Purpose
	CodeHash     string
	ExpiresAt    time.Time
	LastSentAt   time.Time
	Attempts     int
	ResendCount  int
	BlockedUntil *time.Time
	CreatedAt    time.Time
}

func New(email string, purpose Purpose, codeHash string, now time.Time, p Policy) *Record {
	now = now.UTC()
	return &Record{
		Email:      email,
		Purpose:    purpose,
		CodeHash:   codeHash,
		ExpiresAt:  now.Add(p.TTL),
		LastSentAt: now,
		CreatedAt:  now,
	}
}

// Blocked returns the remaining block time, or zero.
func (r *Record) Blocked(now time.Time) time.Duration {
	if r.BlockedUntil == nil || !now.Before(*r.BlockedUntil) {
		return 0
	}
	return r.BlockedUntil.Sub(now)
}

// blockError carries the remaining seconds in the message.
func blockError(remaining time.Duration) error {
	return ErrBlocked.Withf("otp: too many requests, please wait %d seconds", int(math.Ceil(remaining.Seconds())))
}

// PrepareResend applies the resend rules and, on success, rotates the code. A lapsed block resets the resend counter.
// The returned bool reports whether r was mutated even when an error is returned.
func (r *Record) PrepareResend(newHash string, now time.Time, p Policy) (bool, error) {
	changed := false
	if r.BlockedUntil != nil {
		if left := r.Blocked(now); left > 0 {
			return false, blockError(left)
		}
		r.BlockedUntil = nil
		r.ResendCount = 0
		changed = true
	}
	if now.Sub(r.LastSentAt) < p.Cooldown {
		left := p.Cooldown - now.Sub(r.LastSentAt)
		return changed, ErrCooldown.Withf("otp: please wait %d seconds before requesting a new code", int(math.Ceil(left.Seconds())))
	}
	if r.ResendCount >= p.MaxResend {
		until := now.Add(p.Block).UTC()
		r.BlockedUntil = &until
		return true, ErrResendLimit
	}
	r.CodeHash = newHash
	r.ExpiresAt = now.Add(p.TTL).UTC()
	r.LastSentAt = now.UTC()
	r.ResendCount++
	r.Attempts = 0
	return true, nil
}

// CheckVerifiable applies the pre-compare verify rules. A lapsed block resets the attempt counter.
func (r *Record) CheckVerifiable(now time.Time, p Policy) (bool, error) {
	changed := false
	if !now.Before(r.ExpiresAt) {
		return false, ErrExpired
	}
	if r.BlockedUntil != nil {
		if left := r.Blocked(now); left > 0 {
			return false, blockError(left)
		}
		r.BlockedUntil = nil
		r.Attempts = 0
		changed = true
	}
	if r.Attempts >= p.MaxAttempts {
		until := now.Add(p.Block).UTC()
		r.BlockedUntil = &until
		return true, ErrTooManyAttempts
	}
	return changed, nil
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.BlockedUntil != nil {
		b := *r.BlockedUntil
		c.BlockedUntil = &b
	}
	return &c
}

type Repository interface {
	Get(ctx context.Context, email string, purpose Purpose) (*Record, error)
	// Insert fails with ErrAlreadySent when a record exists for (email, purpose).
	Insert(ctx context.Context, r *Record) error
	Save(ctx context.Context, r *Record) error
	Delete(ctx context.Context, email string, purpose Purpose) error
	// IncAttempts atomically bumps the failed attempt counter.
	IncAttempts(ctx context.Context, email string, purpose Purpose) error
}
