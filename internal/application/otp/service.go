package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/Zhima-Mochi/readify/internal/application"
	domain "github.com/Zhima-Mochi/readify/internal/domain/otp"
	"github.com/Zhima-Mochi/readify/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const otpService = "otp-service"

// CodeSource produces the plaintext code mailed to the user.
type CodeSource func() (string, error)

// RandomCode returns six uniformly random digits.
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

type Service struct {
	repo   domain.Repository
	hasher application.PasswordHasher
	mailer application.Mailer
	policy domain.Policy
	codes  CodeSource
	clock  application.Clock
	inst   *application.Instrumentation
}

func NewService(repo domain.Repository, hasher application.PasswordHasher, mailer application.Mailer, policy domain.Policy, tel observability.Observability) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		mailer: mailer,
		policy: policy,
		codes:  RandomCode,
		clock:  application.SystemClock,
		inst:   application.NewInstrumentation(otpService, tel),
	}
}

// WithCodeSource replaces the code generator, mainly for tests.
func (s *Service) WithCodeSource(src CodeSource) *Service {
	s.codes = src
	return s
}

func (s *Service) WithClock(c application.Clock) *Service {
	s.clock = c
	return s
}

// Send issues the first code for (email, purpose).
func (s *Service) Send(ctx context.Context, email string, purpose domain.Purpose) (err error) {
	ctx, call := s.inst.Start(ctx, "otp.send", "SendOTP", attribute.String("otp.purpose", string(purpose)))
	defer call.End(&err)

	if !purpose.Valid() {
		return application.NewValidation("invalid otp purpose")
	}
	code, hash, err := s.newCode()
	if err != nil {
		return err
	}
	rec := domain.New(email, purpose, hash, s.clock(), s.policy)
	if err = s.repo.Insert(ctx, rec); err != nil {
		return application.WrapRepositoryError(err)
	}
	if err = s.deliver(ctx, email, purpose, code); err != nil {
		if delErr := s.repo.Delete(ctx, email, purpose); delErr != nil {
			call.Logger().Warn("otp_rollback_failed", observability.F("error", delErr))
		}
		return err
	}
	return nil
}

// Resend rotates the code subject to cooldown, resend limit and block rules.
func (s *Service) Resend(ctx context.Context, email string, purpose domain.Purpose) (err error) {
	ctx, call := s.inst.Start(ctx, "otp.resend", "ResendOTP", attribute.String("otp.purpose", string(purpose)))
	defer call.End(&err)

	rec, err := s.repo.Get(ctx, email, purpose)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	prev := rec.Clone()
	code, hash, err := s.newCode()
	if err != nil {
		return err
	}
	changed, ruleErr := rec.PrepareResend(hash, s.clock(), s.policy)
	if changed {
		if err = s.repo.Save(ctx, rec); err != nil {
			return application.WrapRepositoryError(err)
		}
	}
	if ruleErr != nil {
		return ruleErr
	}
	if err = s.deliver(ctx, email, purpose, code); err != nil {
		if restoreErr := s.repo.Save(ctx, prev); restoreErr != nil {
			call.Logger().Warn("otp_restore_failed", observability.F("error", restoreErr))
		}
		return err
	}
	call.Field("resend_count", rec.ResendCount)
	return nil
}

// Verify consumes the code. A wrong code counts as one attempt.
func (s *Service) Verify(ctx context.Context, email string, purpose domain.Purpose, code string) (err error) {
	ctx, call := s.inst.Start(ctx, "otp.verify", "VerifyOTP", attribute.String("otp.purpose", string(purpose)))
	defer call.End(&err)

	rec, err := s.repo.Get(ctx, email, purpose)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	changed, ruleErr := rec.CheckVerifiable(s.clock(), s.policy)
	if changed {
		if err = s.repo.Save(ctx, rec); err != nil {
			return application.WrapRepositoryError(err)
		}
	}
	if ruleErr != nil {
		return ruleErr
	}
	if !s.hasher.Compare(rec.CodeHash, code) {
		if err = s.repo.IncAttempts(ctx, email, purpose); err != nil {
			return application.WrapRepositoryError(err)
		}
		return domain.ErrInvalid
	}
	return application.WrapRepositoryError(s.repo.Delete(ctx, email, purpose))
}

func (s *Service) newCode() (string, string, error) {
	code, err := s.codes()
	if err != nil {
		return "", "", fmt.Errorf("otp: generate code: %w", err)
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return "", "", fmt.Errorf("otp: hash code: %w", err)
	}
	return code, hash, nil
}

func (s *Service) deliver(ctx context.Context, email string, purpose domain.Purpose, code string) error {
	subject := "Readify: verify your email"
	if purpose == domain.PurposeForgotPassword {
		subject = "Readify: reset your password"
	}
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.policy.TTL.Minutes()))
	if err := s.mailer.Send(ctx, application.Mail{To: email, Subject: subject, Body: body}); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDelivery, err)
	}
	return nil
}
