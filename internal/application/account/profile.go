package account

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/application"
	domain "github.com/Zhima-Mochi/readify/internal/domain/account"
)

func (s *Service) Me(ctx context.Context, userID string) (_ *domain.Account, err error) {
	ctx, call := s.inst.Start(ctx, "account.me", "Me")
	defer call.End(&err)

	acc, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if acc.IsDeleted {
		return nil, domain.ErrDeleted
	}
	return acc, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (_ *domain.Account, err error) {
	ctx, call := s.inst.Start(ctx, "account.update_profile", "UpdateProfile")
	defer call.End(&err)

	acc, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if acc.IsDeleted {
		return nil, domain.ErrDeleted
	}
	if acc.Status == domain.StatusBanned {
		return nil, domain.ErrBanned
	}
	if err = acc.ApplyProfile(patch, s.clock()); err != nil {
		return nil, err
	}
	if err = s.accounts.Update(ctx, acc); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return acc, nil
}
