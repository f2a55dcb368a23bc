package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Zhima-Mochi/readify/internal/application/apptest"
	"github.com/Zhima-Mochi/readify/internal/domain"
	domotp "github.com/Zhima-Mochi/readify/internal/domain/otp"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/security"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const email = "reader@example.com"

type fixture struct {
	svc    *Service
	repo   *memory.OTPRepository
	mailer *apptest.Mailer
	clock  *apptest.Clock
}

func newFixture(codes ...string) *fixture {
	repo := memory.NewStore().OTPs()
	mailer := &apptest.Mailer{}
	clock := apptest.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	policy := domotp.Policy{TTL: 5 * time.Minute, Cooldown: time.Minute, Block: 15 * time.Minute, MaxResend: 2, MaxAttempts: 3}
	svc := NewService(repo, security.NewBcryptHasher(bcrypt.MinCost), mailer, policy, observability.Nop()).
		WithCodeSource(apptest.Codes(codes...)).
		WithClock(clock.Now)
	return &fixture{svc: svc, repo: repo, mailer: mailer, clock: clock}
}

func TestSendStoresHashAndMailsCode(t *testing.T) {
	f := newFixture("123456")
	ctx := context.Background()

	require.NoError(t, f.svc.Send(ctx, email, domotp.PurposeRegister))
	mail, ok := f.mailer.Last()
	require.True(t, ok)
	assert.Equal(t, email, mail.To)
	assert.Contains(t, mail.Body, "123456")

	rec, err := f.repo.Get(ctx, email, domotp.PurposeRegister)
	require.NoError(t, err)
	assert.NotEqual(t, "123456", rec.CodeHash)
	assert.Equal(t, f.clock.Now().Add(5*time.Minute), rec.ExpiresAt)

	err = f.svc.Send(ctx, email, domotp.PurposeRegister)
	assert.ErrorIs(t, err, domotp.ErrAlreadySent)
}

func TestSendRollsBackWhenMailFails(t *testing.T) {
	f := newFixture("123456")
	f.mailer.Err = errors.New("smtp down")
	ctx := context.Background()

	err := f.svc.Send(ctx, email, domotp.PurposeForgotPassword)
	require.ErrorIs(t, err, domotp.ErrDelivery)

	_, err = f.repo.Get(ctx, email, domotp.PurposeForgotPassword)
	assert.ErrorIs(t, err, domotp.ErrNotFound)
}

func TestSendRejectsUnknownPurpose(t *testing.T) {
	f := newFixture("123456")
	err := f.svc.Send(context.Background(), email, domotp.Purpose("LOGIN"))
	assert.ErrorIs(t, err, domain.ErrInvalid)
}

func TestResendCooldownAndLimit(t *testing.T) {
	f := newFixture("111111", "222222", "333333", "444444")
	ctx := context.Background()
	require.NoError(t, f.svc.Send(ctx, email, domotp.PurposeRegister))

	err := f.svc.Resend(ctx, email, domotp.PurposeRegister)
	assert.ErrorIs(t, err, domotp.ErrCooldown)
	assert.ErrorIs(t, err, domain.ErrTooManyRequests)

	for i := 0; i < 2; i++ {
		f.clock.Advance(61 * time.Second)
		require.NoError(t, f.svc.Resend(ctx, email, domotp.PurposeRegister))
	}

	f.clock.Advance(61 * time.Second)
	err = f.svc.Resend(ctx, email, domotp.PurposeRegister)
	assert.ErrorIs(t, err, domotp.ErrResendLimit)

	err = f.svc.Resend(ctx, email, domotp.PurposeRegister)
	assert.ErrorIs(t, err, domotp.ErrBlocked)

	// the block lapses and the counter starts over
	f.clock.Advance(16 * time.Minute)
	require.NoError(t, f.svc.Resend(ctx, email, domotp.PurposeRegister))
	rec, err := f.repo.Get(ctx, email, domotp.PurposeRegister)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ResendCount)
	assert.Nil(t, rec.BlockedUntil)
}

func TestResendRestoresPreviousCodeWhenMailFails(t *testing.T) {
	f := newFixture("111111", "222222")
	ctx := context.Background()
	require.NoError(t, f.svc.Send(ctx, email, domotp.PurposeRegister))

	f.clock.Advance(2 * time.Minute)
	f.mailer.Err = errors.New("smtp down")
	require.ErrorIs(t, f.svc.Resend(ctx, email, domotp.PurposeRegister), domotp.ErrDelivery)

	f.mailer.Err = nil
	assert.NoError(t, f.svc.Verify(ctx, email, domotp.PurposeRegister, "111111"))
}

func TestResendMissingRecord(t *testing.T) {
	f := newFixture("111111")
	err := f.svc.Resend(context.Background(), email, domotp.PurposeRegister)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerify(t *testing.T) {
	f := newFixture("654321")
	ctx := context.Background()
	require.NoError(t, f.svc.Send(ctx, email, domotp.PurposeRegister))

	err := f.svc.Verify(ctx, email, domotp.PurposeRegister, "000000")
	assert.ErrorIs(t, err, domotp.ErrInvalid)

	require.NoError(t, f.svc.Verify(ctx, email, domotp.PurposeRegister, "654321"))
	_, err = f.repo.Get(ctx, email, domotp.PurposeRegister)
	assert.ErrorIs(t, err, domotp.ErrNotFound, "a verified code is consumed")
}

func TestVerifyTooManyAttemptsBlocks(t *testing.T) {
	f := newFixture("654321")
	ctx := context.Background()
	require.NoError(t, f.svc.Send(ctx, email, domotp.PurposeRegister))

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, f.svc.Verify(ctx, email, domotp.PurposeRegister, "000000"), domotp.ErrInvalid)
	}
	err := f.svc.Verify(ctx, email, domotp.PurposeRegister, "654321")
	assert.ErrorIs(t, err, domotp.ErrTooManyAttempts)

	err = f.svc.Verify(ctx, email, domotp.PurposeRegister, "654321")
	assert.ErrorIs(t, err, domotp.ErrBlocked)
}

func TestVerifyExpired(t *testing.T) {
	f := newFixture("654321")
	ctx := context.Background()
	require.NoError(t, f.svc.Send(ctx, email, domotp.PurposeRegister))

	f.clock.Advance(5 * time.Minute)
	err := f.svc.Verify(ctx, email, domotp.PurposeRegister, "654321")
	assert.ErrorIs(t, err, domotp.ErrExpired)
}

func TestRandomCode(t *testing.T) {
	code, err := RandomCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)
}
