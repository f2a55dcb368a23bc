// Package review handles book reviews, moderation and the rating aggregate kept on each book.
package review

import (
	"context"
	"errors"
	"strings"

	"github.com/Zhima-Mochi/readify/internal/application"
	"github.com/Zhima-Mochi/readify/internal/domain/book"
	domorder "github.com/Zhima-Mochi/readify/internal/domain/order"
	domain "github.com/Zhima-Mochi/readify/internal/domain/review"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/pkg/objectid"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"

	"go.opentelemetry.io/otel/attribute"
)

const reviewService = "review-service"

type Service struct {
	reviews domain.Repository
	books   book.Repository
	orders  domorder.Repository
	ids     application.IDGenerator
	inst    *application.Instrumentation
}

func NewService(reviews domain.Repository, books book.Repository, orders domorder.Repository, ids application.IDGenerator, tel observability.Observability) *Service {
	return &Service{
		reviews: reviews,
		books:   books,
		orders:  orders,
		ids:     ids,
		inst:    application.NewInstrumentation(reviewService, tel),
	}
}

type CreateInput struct {
	BookID  string
	OrderID string
	Rating  int
	Comment string
}

func (s *Service) CreateReview(ctx context.Context, actor application.Actor, in CreateInput) (_ *domain.Review, err error) {
	ctx, call := s.inst.Start(ctx, "review.create", "CreateReview",
		attribute.String("book.id", in.BookID),
		attribute.Int("review.rating", in.Rating),
	)
	defer call.End(&err)

	if actor.UserID == "" {
		return nil, application.ErrUnauthorized
	}
	if !objectid.Valid(in.BookID) {
		return nil, application.NewValidation("invalid bookId")
	}
	if in.OrderID != "" && !objectid.Valid(in.OrderID) {
		return nil, application.NewValidation("invalid orderId")
	}
	r, err := domain.New(s.ids.NewID(), actor.UserID, in.BookID, in.OrderID, in.Rating, in.Comment)
	if err != nil {
		return nil, err
	}
	b, err := s.books.Get(ctx, in.BookID)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if b.IsDeleted {
		return nil, book.ErrNotFound
	}
	exists, err := s.reviews.ExistsActive(ctx, actor.UserID, in.BookID)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if exists {
		return nil, domain.ErrAlreadyExists
	}
	if in.OrderID != "" {
		if err = s.checkPurchase(ctx, actor.UserID, in.OrderID, in.BookID); err != nil {
			return nil, err
		}
	}
	if err = s.reviews.Insert(ctx, r); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if err = s.refreshRating(ctx, r.BookID); err != nil {
		return nil, err
	}
	call.Field("review_id", r.ID)
	return r, nil
}

// checkPurchase ties a review to a completed order of the same user that contains the book.
func (s *Service) checkPurchase(ctx context.Context, userID, orderID, bookID string) error {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, domorder.ErrNotFound) {
			return domain.ErrOrderMismatch
		}
		return application.WrapRepositoryError(err)
	}
	if !o.OwnedBy(userID) || o.Status != domorder.StatusCompleted || !o.Contains(bookID) {
		return domain.ErrOrderMismatch
	}
	return nil
}

type ListInput struct {
	application.ListQuery
	BookID string
	UserID string
	Rating int
	Status domain.Status
}

// ListReviews shows approved reviews to everyone; admins may filter by any status.
func (s *Service) ListReviews(ctx context.Context, actor application.Actor, in ListInput) (_ paging.Result[*domain.Review], err error) {
	ctx, call := s.inst.Start(ctx, "review.list", "ListReviews")
	defer call.End(&err)

	if in.Rating != 0 {
		if err = domain.CheckRating(in.Rating); err != nil {
			return paging.Result[*domain.Review]{}, err
		}
	}
	status := domain.StatusApproved
	if actor.IsAdmin() {
		if in.Status != "" && !in.Status.Valid() {
			return paging.Result[*domain.Review]{}, domain.ErrInvalidStatus
		}
		status = in.Status
	}
	p := in.Params()
	rows, total, err := s.reviews.List(ctx, domain.ListFilter{
		BookID: strings.TrimSpace(in.BookID),
		UserID: strings.TrimSpace(in.UserID),
		Rating: in.Rating,
		Status: status,
		Sort:   in.SortBy(domain.SortKeys, domain.SortCreatedAt),
		Paging: p,
	})
	if err != nil {
		return paging.Result[*domain.Review]{}, application.WrapRepositoryError(err)
	}
	return paging.NewResult(rows, p, total), nil
}

// ListBookReviews is the public review list of one book.
func (s *Service) ListBookReviews(ctx context.Context, bookID string, q application.ListQuery) (paging.Result[*domain.Review], error) {
	if !objectid.Valid(bookID) {
		return paging.Result[*domain.Review]{}, application.NewValidation("invalid bookId")
	}
	return s.ListReviews(ctx, application.Actor{}, ListInput{ListQuery: q, BookID: bookID})
}

func (s *Service) GetReview(ctx context.Context, actor application.Actor, id string) (_ *domain.Review, err error) {
	ctx, call := s.inst.Start(ctx, "review.get", "GetReview", attribute.String("review.id", id))
	defer call.End(&err)

	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !r.Public() {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

type UpdateInput struct {
	Rating  *int
	Comment *string
	Status  *domain.Status
}

// UpdateReview lets the author edit the text and rating; only admins moderate.
func (s *Service) UpdateReview(ctx context.Context, actor application.Actor, id string, in UpdateInput) (_ *domain.Review, err error) {
	ctx, call := s.inst.Start(ctx, "review.update", "UpdateReview", attribute.String("review.id", id))
	defer call.End(&err)

	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && r.UserID != actor.UserID {
		return nil, domain.ErrForbidden
	}
	if in.Status != nil && !actor.IsAdmin() {
		return nil, domain.ErrStatusAdminOnly
	}
	rerate := false
	if in.Rating != nil {
		if err = domain.CheckRating(*in.Rating); err != nil {
			return nil, err
		}
		rerate = rerate || *in.Rating != r.Rating
		r.Rating = *in.Rating
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		rerate = rerate || *in.Status != r.Status
		r.Status = *in.Status
	}
	if in.Comment != nil {
		r.Comment = strings.TrimSpace(*in.Comment)
	}
	if err = s.reviews.Update(ctx, r); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if rerate {
		if err = s.refreshRating(ctx, r.BookID); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (s *Service) DeleteReview(ctx context.Context, actor application.Actor, id string) (err error) {
	ctx, call := s.inst.Start(ctx, "review.delete", "DeleteReview", attribute.String("review.id", id))
	defer call.End(&err)

	r, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && r.UserID != actor.UserID {
		return domain.ErrForbidden
	}
	r.Deactivate()
	if err = s.reviews.Update(ctx, r); err != nil {
		return application.WrapRepositoryError(err)
	}
	return s.refreshRating(ctx, r.BookID)
}

// MarkHelpful counts a vote once per user on approved reviews written by someone else.
func (s *Service) MarkHelpful(ctx context.Context, actor application.Actor, id string) (_ *domain.Review, err error) {
	ctx, call := s.inst.Start(ctx, "review.helpful", "MarkHelpful", attribute.String("review.id", id))
	defer call.End(&err)

	if actor.UserID == "" {
		return nil, application.ErrUnauthorized
	}
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Public() {
		return nil, domain.ErrNotApproved
	}
	if r.UserID == actor.UserID {
		return nil, domain.ErrOwnReview
	}
	added, err := s.reviews.MarkHelpful(ctx, id, actor.UserID)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if !added {
		return nil, domain.ErrAlreadyHelpful
	}
	updated, err := s.reviews.Get(ctx, id)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return updated, nil
}

// BookRatingSummary aggregates approved, active ratings of a book.
func (s *Service) BookRatingSummary(ctx context.Context, bookID string) (_ domain.Summary, err error) {
	ctx, call := s.inst.Start(ctx, "review.summary", "BookRatingSummary", attribute.String("book.id", bookID))
	defer call.End(&err)

	if !objectid.Valid(bookID) {
		return domain.Summary{}, application.NewValidation("invalid bookId")
	}
	ratings, err := s.reviews.ApprovedRatings(ctx, bookID)
	if err != nil {
		return domain.Summary{}, application.WrapRepositoryError(err)
	}
	return domain.Summarize(bookID, ratings), nil
}

// refreshRating recomputes the aggregate stored on the book.
func (s *Service) refreshRating(ctx context.Context, bookID string) error {
	ratings, err := s.reviews.ApprovedRatings(ctx, bookID)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	sum := domain.Summarize(bookID, ratings)
	return application.WrapRepositoryError(s.books.SetRating(ctx, bookID, sum.Average, sum.Count))
}

func (s *Service) load(ctx context.Context, id string) (*domain.Review, error) {
	if !objectid.Valid(id) {
		return nil, application.NewValidation("invalid review id")
	}
	r, err := s.reviews.Get(ctx, id)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return r, nil
}
