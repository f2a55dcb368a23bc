package account

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/application"
	domain "github.com/Zhima-Mochi/readify/internal/domain/account"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/pkg/textutil"
)

// VerifyAllAccounts activates every account still waiting for email verification.
func (s *Service) VerifyAllAccounts(ctx context.Context) (_ int64, err error) {
	ctx, call := s.inst.Start(ctx, "account.verify_all", "VerifyAllAccounts")
	defer call.End(&err)

	n, err := s.accounts.UpdateStatusWhere(ctx, domain.StatusNotActiveEmail, domain.StatusActive)
	if err != nil {
		return 0, application.WrapRepositoryError(err)
	}
	call.Field("updated", n)
	return n, nil
}

func (s *Service) VerifyAccountByEmail(ctx context.Context, email string) (_ *domain.Account, err error) {
	ctx, call := s.inst.Start(ctx, "account.verify_by_email", "VerifyAccountByEmail")
	defer call.End(&err)

	acc, err := s.accounts.FindByEmail(ctx, textutil.NormalizeEmail(email))
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if acc.Status == domain.StatusActive {
		call.Status("ALREADY_ACTIVE")
		return acc, nil
	}
	acc.SetStatus(domain.StatusActive)
	if err = s.accounts.Update(ctx, acc); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return acc, nil
}

// HashPlaintextPasswords re-hashes passwords that were stored without bcrypt. Failures are skipped.
func (s *Service) HashPlaintextPasswords(ctx context.Context) (_ int, err error) {
	ctx, call := s.inst.Start(ctx, "account.hash_passwords", "HashPlaintextPasswords")
	defer call.End(&err)

	rows, err := s.accounts.FindPlaintextPasswords(ctx)
	if err != nil {
		return 0, application.WrapRepositoryError(err)
	}
	done := 0
	for _, acc := range rows {
		if acc.PasswordHash == "" {
			continue
		}
		hash, hashErr := s.hasher.Hash(acc.PasswordHash)
		if hashErr != nil {
			call.Logger().Warn("password_hash_failed", observability.F("account_id", acc.ID), observability.F("error", hashErr))
			continue
		}
		acc.SetPassword(hash)
		if upErr := s.accounts.Update(ctx, acc); upErr != nil {
			call.Logger().Warn("password_update_failed", observability.F("account_id", acc.ID), observability.F("error", upErr))
			continue
		}
		done++
	}
	call.Field("scanned", len(rows))
	call.Field("updated", done)
	return done, nil
}
