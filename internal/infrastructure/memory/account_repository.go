package memory

import (
	"context"
	"strings"

	"github.com/Zhima-Mochi/readify/internal/domain/account"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
	"github.com/Zhima-Mochi/readify/internal/pkg/textutil"
)

type AccountRepository struct{ s *Store }

func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }

func (r *AccountRepository) Insert(ctx context.Context, a *account.Account) error {
	defer r.s.lock(ctx)()
	if _, taken := r.s.accounts.first(func(x *account.Account) bool { return x.Email == a.Email }); taken {
		return account.ErrEmailExists
	}
	r.s.accounts.put(a.ID, a)
	return nil
}

func (r *AccountRepository) Get(ctx context.Context, id string) (*account.Account, error) {
	defer r.s.rlock(ctx)()
	a, ok := r.s.accounts.get(id)
	if !ok {
		return nil, account.ErrNotFound
	}
	return a, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	defer r.s.rlock(ctx)()
	a, ok := r.s.accounts.first(func(x *account.Account) bool { return x.Email == email })
	if !ok {
		return nil, account.ErrNotFound
	}
	return a, nil
}

func (r *AccountRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	defer r.s.rlock(ctx)()
	_, ok := r.s.accounts.first(func(x *account.Account) bool { return x.Email == email && x.ID != excludeID })
	return ok, nil
}

func (r *AccountRepository) Update(ctx context.Context, a *account.Account) error {
	defer r.s.lock(ctx)()
	if !r.s.accounts.has(a.ID) {
		return account.ErrNotFound
	}
	r.s.accounts.put(a.ID, a)
	return nil
}

func (r *AccountRepository) List(ctx context.Context, f account.ListFilter) ([]*account.Account, int64, error) {
	unlock := r.s.rlock(ctx)
	rows := r.s.accounts.find(func(a *account.Account) bool { return matchAccount(a, f) })
	unlock()

	sortBy(rows, func(a *account.Account) string { return a.ID }, func(a, b *account.Account) int {
		var c int
		switch f.Sort.Field {
		case account.SortEmail:
			c = strings.Compare(a.Email, b.Email)
		case account.SortFirstName:
			c = strings.Compare(a.FirstName, b.FirstName)
		case account.SortLastName:
			c = strings.Compare(a.LastName, b.LastName)
		case account.SortLastLoginAt:
			c = compareTimePtr(a.LastLoginAt, b.LastLoginAt)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		return dir(c, f.Sort.Desc)
	})
	return paging.Window(rows, f.Paging), int64(len(rows)), nil
}

func matchAccount(a *account.Account, f account.ListFilter) bool {
	if len(f.Roles) > 0 {
		ok := false
		for _, role := range f.Roles {
			if a.Role == role {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	if f.ExcludeStatus != nil && a.Status == *f.ExcludeStatus {
		return false
	}
	if f.IsDeleted != nil && a.IsDeleted != *f.IsDeleted {
		return false
	}
	for _, term := range f.Terms {
		if !textutil.ContainsFold(a.FirstName, term) && !textutil.ContainsFold(a.LastName, term) &&
			!textutil.ContainsFold(a.Email, term) && !textutil.ContainsFold(a.Phone, term) {
			return false
		}
	}
	return true
}

func (r *AccountRepository) UpdateStatusWhere(ctx context.Context, from, to account.Status) (int64, error) {
	defer r.s.lock(ctx)()
	rows := r.s.accounts.find(func(a *account.Account) bool { return a.Status == from })
	for _, a := range rows {
		a.SetStatus(to)
		r.s.accounts.put(a.ID, a)
	}
	return int64(len(rows)), nil
}

func (r *AccountRepository) FindPlaintextPasswords(ctx context.Context) ([]*account.Account, error) {
	defer r.s.rlock(ctx)()
	return r.s.accounts.find(func(a *account.Account) bool {
		return !a.IsDeleted && !strings.HasPrefix(a.PasswordHash, "$2a$") && !strings.HasPrefix(a.PasswordHash, "$2b$")
	}), nil
}

type PendingRepository struct{ s *Store }

func (s *Store) PendingRegistrations() *PendingRepository { return &PendingRepository{s: s} }

func (r *PendingRepository) Upsert(ctx context.Context, p *account.PendingRegistration) error {
	defer r.s.lock(ctx)()
	r.s.pending.put(p.Email, p)
	return nil
}

func (r *PendingRepository) Get(ctx context.Context, email string) (*account.PendingRegistration, error) {
	defer r.s.rlock(ctx)()
	p, ok := r.s.pending.get(email)
	if !ok {
		return nil, account.ErrRegistrationGone
	}
	return p, nil
}

func (r *PendingRepository) Delete(ctx context.Context, email string) error {
	defer r.s.lock(ctx)()
	r.s.pending.remove(email)
	return nil
}
