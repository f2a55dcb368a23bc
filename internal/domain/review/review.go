package review

import (
	"context"
	"strings"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = domain.NewError(domain.ErrNotFound, "REVIEW_NOT_FOUND", "review: not found")
	ErrAlreadyExists   = domain.NewError(domain.ErrConflict, "REVIEW_ALREADY_EXISTS", "review: you have already reviewed this book")
	ErrInvalidRating   = domain.NewError(domain.ErrInvalid, "REVIEW_RATING_INVALID", "review: rating must be between 1 and 5")
	ErrInvalidStatus   = domain.NewError(domain.ErrInvalid, "REVIEW_STATUS_INVALID", "review: invalid status")
	ErrForbidden       = domain.NewError(domain.ErrForbidden, "REVIEW_FORBIDDEN", "review: you cannot modify this review")
	ErrStatusAdminOnly = domain.NewError(domain.ErrForbidden, "REVIEW_STATUS_ADMIN_ONLY", "review: only admins can change review status")
	ErrOwnReview       = domain.NewError(domain.ErrInvalid, "REVIEW_OWN", "review: you cannot mark your own review as helpful")
	ErrNotApproved     = domain.NewError(domain.ErrInvalid, "REVIEW_NOT_APPROVED", "review: review is not approved")
	ErrAlreadyHelpful  = domain.NewError(domain.ErrConflict, "REVIEW_ALREADY_HELPFUL", "review: already marked as helpful")
	ErrOrderMismatch   = domain.NewError(domain.ErrInvalid, "REVIEW_ORDER_INVALID", "review: order is not a completed purchase of this book")
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) Valid() bool { return s == StatusPending || s == StatusApproved || s == StatusRejected }

type Review struct {
	ID           string
	UserID       string
	BookID       string
	OrderID      string
	Rating       int
	Comment      string
	Status       Status
	HelpfulCount int64
	HelpfulBy    []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func CheckRating(r int) error {
	if r < 1 || r > 5 {
		return ErrInvalidRating
	}
	return nil
}

func New(id, userID, bookID, orderID string, rating int, comment string) (*Review, error) {
	if err := CheckRating(rating); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Review{
		ID:        id,
		UserID:    userID,
		BookID:    bookID,
		OrderID:   orderID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		Status:    StatusPending,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Public reports whether non-admin readers can see the review.
func (r *Review) Public() bool { return r.IsActive && r.Status == StatusApproved }

func (r *Review) Deactivate() {
	r.IsActive = false
	r.touch()
}

func (r *Review) Clone() *Review {
	if r == nil {
		return nil
	}
	c := *r
	c.HelpfulBy = append([]string(nil), r.HelpfulBy...)
	return &c
}

func (r *Review) touch() { r.UpdatedAt = time.Now().UTC() }

// Summary is the aggregate of approved, active ratings for a book.
type Summary struct {
	BookID       string
	Average      float64
	Count        int64
	Distribution map[int]int64
}

// Summarize averages ratings rounded to one decimal place.
func Summarize(bookID string, ratings []int) Summary {
	s := Summary{BookID: bookID, Distribution: map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	var sum int64
	for _, r := range ratings {
		if r < 1 || r > 5 {
			continue
		}
		s.Distribution[r]++
		s.Count++
		sum += int64(r)
	}
	if s.Count > 0 {
		avg, _ := decimal.NewFromInt(sum).Div(decimal.NewFromInt(s.Count)).Round(1).Float64()
		s.Average = avg
	}
	return s
}

const (
	SortCreatedAt    = "createdAt"
	SortRating       = "rating"
	SortHelpfulCount = "helpfulCount"
)

var SortKeys = []string{SortCreatedAt, SortRating, SortHelpfulCount}

type ListFilter struct {
	BookID string
	UserID string
	Rating int
	// Status filters by moderation state; empty means any.
	Status Status
	Sort   paging.Sort
	Paging paging.Params
}

type Repository interface {
	Insert(ctx context.Context, r *Review) error
	Get(ctx context.Context, id string) (*Review, error)
	Update(ctx context.Context, r *Review) error
	// ExistsActive reports whether the user already has an active review of the book.
	ExistsActive(ctx context.Context, userID, bookID string) (bool, error)
	// List only returns active reviews.
	List(ctx context.Context, f ListFilter) ([]*Review, int64, error)
	ApprovedRatings(ctx context.Context, bookID string) ([]int, error)
	// MarkHelpful adds userID to the helpful set and reports false when it was already there.
	MarkHelpful(ctx context.Context, id, userID string) (bool, error)
}
