package promotion

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

const (
	SortCreatedAt     = "createdAt"
	SortStartDate     = "startDate"
	SortEndDate       = "endDate"
	SortDiscountValue = "discountValue"
	SortUsageLimit    = "usageLimit"
	SortUsedCount     = "usedCount"
)

var SortKeys = []string{SortCreatedAt, SortStartDate, SortEndDate, SortDiscountValue, SortUsageLimit, SortUsedCount}

type ListFilter struct {
	Query        string
	Status       Status
	DiscountType DiscountType
	ApplyScope   string
	Sort         paging.Sort
	Paging       paging.Params
}

type Repository interface {
	Insert(ctx context.Context, p *Promotion) error
	Get(ctx context.Context, id string) (*Promotion, error)
	// GetByCode ignores deleted promotions.
	GetByCode(ctx context.Context, code string) (*Promotion, error)
	Update(ctx context.Context, p *Promotion) error
	List(ctx context.Context, f ListFilter) ([]*Promotion, int64, error)
	// Redeem records one use by userID if the user has not used it and the limit allows.
	// It returns ErrAlreadyUsed or ErrUsageLimit when the guard fails.
	Redeem(ctx context.Context, id, userID string) error
	// Release reverses a redemption by userID.
	Release(ctx context.Context, id, userID string) error
}

const (
	LogSortCreatedAt = "createdAt"
	LogSortAction    = "action"
	LogSortCode      = "promotionCode"
)

var LogSortKeys = []string{LogSortCreatedAt, LogSortAction, LogSortCode}

type LogFilter struct {
	Search        string
	PromotionID   string
	PromotionCode string
	Action        Action
	PerformedBy   string
	From          *time.Time
	To            *time.Time
	Sort          paging.Sort
	Paging        paging.Params
}

type LogRepository interface {
	Insert(ctx context.Context, l *Log) error
	Get(ctx context.Context, id string) (*Log, error)
	List(ctx context.Context, f LogFilter) ([]*Log, int64, error)
}
