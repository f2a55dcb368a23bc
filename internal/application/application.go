package application

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain/account"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

// TxRunner runs fn atomically. Repositories called with the ctx passed to fn join the transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type IDGenerator interface {
	NewID() string
}

type Clock func() time.Time

func SystemClock() time.Time { return time.Now().UTC() }

// Actor is the authenticated caller.
type Actor struct {
	UserID string
	Role   account.Role
}

// SystemActor runs background jobs.
var SystemActor = Actor{UserID: "system", Role: account.RoleAdmin}

func (a Actor) IsCustomer() bool { return a.UserID != "" && a.Role == account.RoleUser }
func (a Actor) IsStaff() bool    { return a.UserID != "" && a.Role.IsStaff() }
func (a Actor) IsAdmin() bool    { return a.UserID != "" && a.Role == account.RoleAdmin }

// HasRole reports whether the actor holds one of roles.
func (a Actor) HasRole(roles ...account.Role) bool {
	if a.UserID == "" {
		return false
	}
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// ListQuery is the raw page/sort input shared by list use cases.
type ListQuery struct {
	Page  int
	Limit int
	Sort  string
	Order string
}

func (q ListQuery) Params() paging.Params { return paging.Default(q.Page, q.Limit) }

// SortBy whitelists the sort field; the order defaults to descending.
func (q ListQuery) SortBy(allowed []string, def string) paging.Sort {
	return paging.Sort{Field: paging.PickSort(q.Sort, allowed, def), Desc: paging.ParseOrder(q.Order, true)}
}
