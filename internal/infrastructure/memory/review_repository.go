package memory

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/domain/review"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

type ReviewRepository struct{ s *Store }

func (s *Store) Reviews() *ReviewRepository { return &ReviewRepository{s: s} }

func (r *ReviewRepository) Insert(ctx context.Context, rv *review.Review) error {
	defer r.s.lock(ctx)()
	r.s.reviews.put(rv.ID, rv)
	return nil
}

func (r *ReviewRepository) Get(ctx context.Context, id string) (*review.Review, error) {
	defer r.s.rlock(ctx)()
	rv, ok := r.s.reviews.get(id)
	if !ok || !rv.IsActive {
		return nil, review.ErrNotFound
	}
	return rv, nil
}

func (r *ReviewRepository) Update(ctx context.Context, rv *review.Review) error {
	defer r.s.lock(ctx)()
	if !r.s.reviews.has(rv.ID) {
		return review.ErrNotFound
	}
	r.s.reviews.put(rv.ID, rv)
	return nil
}

func (r *ReviewRepository) ExistsActive(ctx context.Context, userID, bookID string) (bool, error) {
	defer r.s.rlock(ctx)()
	_, ok := r.s.reviews.first(func(rv *review.Review) bool {
		return rv.IsActive && rv.UserID == userID && rv.BookID == bookID
	})
	return ok, nil
}

func (r *ReviewRepository) List(ctx context.Context, f review.ListFilter) ([]*review.Review, int64, error) {
	unlock := r.s.rlock(ctx)
	rows := r.s.reviews.find(func(rv *review.Review) bool {
		switch {
		case !rv.IsActive:
			return false
		case f.BookID != "" && rv.BookID != f.BookID:
			return false
		case f.UserID != "" && rv.UserID != f.UserID:
			return false
		case f.Rating != 0 && rv.Rating != f.Rating:
			return false
		case f.Status != "" && rv.Status != f.Status:
			return false
		}
		return true
	})
	unlock()

	sortBy(rows, func(rv *review.Review) string { return rv.ID }, func(a, b *review.Review) int {
		var c int
		switch f.Sort.Field {
		case review.SortRating:
			c = compareInt64(int64(a.Rating), int64(b.Rating))
		case review.SortHelpfulCount:
			c = compareInt64(a.HelpfulCount, b.HelpfulCount)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		return dir(c, f.Sort.Desc)
	})
	return paging.Window(rows, f.Paging), int64(len(rows)), nil
}

func (r *ReviewRepository) ApprovedRatings(ctx context.Context, bookID string) ([]int, error) {
	defer r.s.rlock(ctx)()
	rows := r.s.reviews.find(func(rv *review.Review) bool { return rv.BookID == bookID && rv.Public() })
	out := make([]int, 0, len(rows))
	for _, rv := range rows {
		out = append(out, rv.Rating)
	}
	return out, nil
}

func (r *ReviewRepository) MarkHelpful(ctx context.Context, id, userID string) (bool, error) {
	defer r.s.lock(ctx)()
	rv, ok := r.s.reviews.get(id)
	if !ok {
		return false, review.ErrNotFound
	}
	for _, u := range rv.HelpfulBy {
		if u == userID {
			return false, nil
		}
	}
	rv.HelpfulBy = append(rv.HelpfulBy, userID)
	rv.HelpfulCount++
	r.s.reviews.put(id, rv)
	return true, nil
}
