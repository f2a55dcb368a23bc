package order

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

const (
	SortCreatedAt   = "createdAt"
	SortUpdatedAt   = "updatedAt"
	SortTotalAmount = "totalAmount"
	SortFinalAmount = "finalAmount"
	SortCode        = "orderCode"
)

var SortKeys = []string{SortCreatedAt, SortUpdatedAt, SortTotalAmount, SortFinalAmount, SortCode}

type ListFilter struct {
	UserID        string
	Status        Status
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	// Query matches order code or shipping address, case-insensitively and literally.
	Query  string
	Sort   paging.Sort
	Paging paging.Params
}

type Repository interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	// CompareAndSetStatus moves the order from one status to another and reports whether it matched.
	// Moving to StatusCancelled also stamps CancelledAt.
	CompareAndSetStatus(ctx context.Context, id string, from, to Status) (bool, error)
	// MarkPaid sets PAID and CONFIRMED unless the order is already paid; false means it was.
	MarkPaid(ctx context.Context, id string, p Payment) (bool, error)
	// MarkPaymentFailed flags a failed payment unless the order is already paid.
	MarkPaymentFailed(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, f ListFilter) ([]*Order, int64, error)
	// NextCode allocates the next sequential order code.
	NextCode(ctx context.Context) (string, error)
}
