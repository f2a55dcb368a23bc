package account

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

type ListFilter struct {
	Roles         []Role
	Status        *Status
	ExcludeStatus *Status
	IsDeleted     *bool
	// Terms must each match one of first name, last name, email or phone.
	Terms  []string
	Sort   paging.Sort
	Paging paging.Params
}

// Sort keys accepted by List.
const (
	SortCreatedAt   = "createdAt"
	SortEmail       = "email"
	SortFirstName   = "firstName"
	SortLastName    = "lastName"
	SortLastLoginAt = "lastLoginAt"
)

var SortKeys = []string{SortCreatedAt, SortEmail, SortFirstName, SortLastName, SortLastLoginAt}

type Repository interface {
	Insert(ctx context.Context, a *Account) error
	Get(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// EmailTaken checks every account, deleted ones included, except excludeID.
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	Update(ctx context.Context, a *Account) error
	List(ctx context.Context, f ListFilter) ([]*Account, int64, error)
	UpdateStatusWhere(ctx context.Context, from, to Status) (int64, error)
	// FindPlaintextPasswords returns non-deleted accounts whose password is not a bcrypt hash.
	FindPlaintextPasswords(ctx context.Context) ([]*Account, error)
}

type PendingRepository interface {
	Upsert(ctx context.Context, p *PendingRegistration) error
	Get(ctx context.Context, email string) (*PendingRegistration, error)
	Delete(ctx context.Context, email string) error
}
