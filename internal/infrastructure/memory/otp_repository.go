package memory

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/domain/otp"
)

type OTPRepository struct{ s *Store }

func (s *Store) OTPs() *OTPRepository { return &OTPRepository{s: s} }

func otpKey(email string, purpose otp.Purpose) string { return string(purpose) + "|" + email }

func (r *OTPRepository) Get(ctx context.Context, email string, purpose otp.Purpose) (*otp.Record, error) {
	defer r.s.rlock(ctx)()
	rec, ok := r.s.otps.get(otpKey(email, purpose))
	if !ok {
		return nil, otp.ErrNotFound
	}
	return rec, nil
}

func (r *OTPRepository) Insert(ctx context.Context, rec *otp.Record) error {
	defer r.s.lock(ctx)()
	key := otpKey(rec.Email, rec.Purpose)
	if r.s.otps.has(key) {
		return otp.ErrAlreadySent
	}
	r.s.otps.put(key, rec)
	return nil
}

func (r *OTPRepository) Save(ctx context.Context, rec *otp.Record) error {
	defer r.s.lock(ctx)()
	r.s.otps.put(otpKey(rec.Email, rec.Purpose), rec)
	return nil
}

func (r *OTPRepository) Delete(ctx context.Context, email string, purpose otp.Purpose) error {
	defer r.s.lock(ctx)()
	r.s.otps.remove(otpKey(email, purpose))
	return nil
}

func (r *OTPRepository) IncAttempts(ctx context.Context, email string, purpose otp.Purpose) error {
	defer r.s.lock(ctx)()
	key := otpKey(email, purpose)
	rec, ok := r.s.otps.get(key)
	if !ok {
		return otp.ErrNotFound
	}
	rec.Attempts++
	r.s.otps.put(key, rec)
	return nil
}
