package account

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/application"
	domain "github.com/Zhima-Mochi/readify/internal/domain/account"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
	"github.com/Zhima-Mochi/readify/internal/pkg/textutil"
)

type CreateAccountInput struct {
	Email    string
	Password string
	Profile  domain.Profile
	// Status defaults to ACTIVE.
	Status *domain.Status
	// Role is only honoured by AddStaff.
	Role domain.Role
}

// CreateAccount lets an admin add a customer account directly.
func (s *Service) CreateAccount(ctx context.Context, actor application.Actor, in CreateAccountInput) (_ *domain.Account, err error) {
	ctx, call := s.inst.Start(ctx, "account.admin_create", "CreateAccount")
	defer call.End(&err)

	if !actor.IsAdmin() {
		return nil, application.ErrForbidden
	}
	return s.create(ctx, in, domain.RoleUser)
}

// AddStaff creates a back-office account with a staff role.
func (s *Service) AddStaff(ctx context.Context, actor application.Actor, in CreateAccountInput) (_ *domain.Account, err error) {
	ctx, call := s.inst.Start(ctx, "account.add_staff", "AddStaff")
	defer call.End(&err)

	if !actor.IsAdmin() {
		return nil, application.ErrForbidden
	}
	if !in.Role.IsStaff() {
		return nil, domain.ErrInvalidRole
	}
	return s.create(ctx, in, in.Role)
}

func (s *Service) create(ctx context.Context, in CreateAccountInput, role domain.Role) (*domain.Account, error) {
	email := textutil.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, application.NewValidation("email and password are required")
	}
	status := domain.StatusActive
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, application.NewValidation("invalid status")
		}
		status = *in.Status
	}
	if in.Profile.DateOfBirth != nil {
		if err := domain.CheckAge(*in.Profile.DateOfBirth, s.clock()); err != nil {
			return nil, err
		}
	}
	taken, err := s.accounts.EmailTaken(ctx, email, "")
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if taken {
		return nil, domain.ErrEmailExists
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	acc := domain.New(s.ids.NewID(), email, hash, in.Profile, role, status)
	if err = s.accounts.Insert(ctx, acc); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return acc, nil
}

type EditAccountInput struct {
	Email   *string
	Profile domain.ProfilePatch
	Status  *domain.Status
}

func (s *Service) EditAccount(ctx context.Context, actor application.Actor, id string, in EditAccountInput) (_ *domain.Account, err error) {
	ctx, call := s.inst.Start(ctx, "account.admin_edit", "EditAccount")
	defer call.End(&err)

	acc, err := s.customer(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if acc.IsDeleted {
		return nil, domain.ErrDeleted
	}
	if in.Email != nil {
		email := textutil.NormalizeEmail(*in.Email)
		if email != acc.Email {
			taken, err := s.accounts.EmailTaken(ctx, email, acc.ID)
			if err != nil {
				return nil, application.WrapRepositoryError(err)
			}
			if taken {
				return nil, domain.ErrEmailExists
			}
			acc.Email = email
		}
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, application.NewValidation("invalid status")
		}
		acc.SetStatus(*in.Status)
	}
	if err = acc.ApplyProfile(in.Profile, s.clock()); err != nil {
		return nil, err
	}
	if err = s.accounts.Update(ctx, acc); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return acc, nil
}

func (s *Service) DeleteAccount(ctx context.Context, actor application.Actor, id string) (err error) {
	ctx, call := s.inst.Start(ctx, "account.admin_delete", "DeleteAccount")
	defer call.End(&err)

	acc, err := s.customer(ctx, actor, id)
	if err != nil {
		return err
	}
	if err = acc.SoftDelete(); err != nil {
		return err
	}
	return application.WrapRepositoryError(s.accounts.Update(ctx, acc))
}

func (s *Service) GetAccountDetail(ctx context.Context, actor application.Actor, id string) (_ *domain.Account, err error) {
	ctx, call := s.inst.Start(ctx, "account.admin_detail", "GetAccountDetail")
	defer call.End(&err)

	return s.customer(ctx, actor, id)
}

// customer loads a role USER account for an admin.
func (s *Service) customer(ctx context.Context, actor application.Actor, id string) (*domain.Account, error) {
	if !actor.IsAdmin() {
		return nil, application.ErrForbidden
	}
	acc, err := s.accounts.Get(ctx, id)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if acc.Role != domain.RoleUser {
		return nil, domain.ErrNotCustomer
	}
	return acc, nil
}

type ListAccountsInput struct {
	application.ListQuery
	Query     string
	Status    *domain.Status
	IsDeleted *bool
	// Role narrows ListStaff to one staff role.
	Role *domain.Role
}

func (s *Service) ListAccounts(ctx context.Context, actor application.Actor, in ListAccountsInput) (_ paging.Result[*domain.Account], err error) {
	ctx, call := s.inst.Start(ctx, "account.admin_list", "ListAccounts")
	defer call.End(&err)

	if !actor.IsAdmin() {
		return paging.Result[*domain.Account]{}, application.ErrForbidden
	}
	return s.list(ctx, in, []domain.Role{domain.RoleUser})
}

func (s *Service) ListStaff(ctx context.Context, actor application.Actor, in ListAccountsInput) (_ paging.Result[*domain.Account], err error) {
	ctx, call := s.inst.Start(ctx, "account.list_staff", "ListStaff")
	defer call.End(&err)

	if !actor.IsAdmin() {
		return paging.Result[*domain.Account]{}, application.ErrForbidden
	}
	roles := domain.StaffRoles
	if in.Role != nil {
		if !in.Role.IsStaff() {
			return paging.Result[*domain.Account]{}, domain.ErrInvalidRole
		}
		roles = []domain.Role{*in.Role}
	}
	return s.list(ctx, in, roles)
}

func (s *Service) list(ctx context.Context, in ListAccountsInput, roles []domain.Role) (paging.Result[*domain.Account], error) {
	p := in.Params()
	rows, total, err := s.accounts.List(ctx, domain.ListFilter{
		Roles:     roles,
		Status:    in.Status,
		IsDeleted: in.IsDeleted,
		Terms:     textutil.Tokens(in.Query, maxSearchTerms),
		Sort:      in.SortBy(domain.SortKeys, domain.SortCreatedAt),
		Paging:    p,
	})
	if err != nil {
		return paging.Result[*domain.Account]{}, application.WrapRepositoryError(err)
	}
	return paging.NewResult(rows, p, total), nil
}
