package memory

import (
	"context"
	"strings"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain/book"
	"github.com/Zhima-Mochi/readify/internal/domain/category"
	"github.com/Zhima-Mochi/readify/internal/domain/media"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
	"github.com/Zhima-Mochi/readify/internal/pkg/textutil"
)

type CategoryRepository struct{ s *Store }

func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{s: s} }

func (r *CategoryRepository) Insert(ctx context.Context, c *category.Category) error {
	defer r.s.lock(ctx)()
	r.s.categories.put(c.ID, c)
	return nil
}

func (r *CategoryRepository) Get(ctx context.Context, id string) (*category.Category, error) {
	defer r.s.rlock(ctx)()
	c, ok := r.s.categories.get(id)
	if !ok || c.IsDeleted {
		return nil, category.ErrNotFound
	}
	return c, nil
}

func (r *CategoryRepository) Update(ctx context.Context, c *category.Category) error {
	defer r.s.lock(ctx)()
	if !r.s.categories.has(c.ID) {
		return category.ErrNotFound
	}
	r.s.categories.put(c.ID, c)
	return nil
}

func (r *CategoryRepository) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	defer r.s.rlock(ctx)()
	_, ok := r.s.categories.first(func(c *category.Category) bool {
		return !c.IsDeleted && c.ID != excludeID && strings.EqualFold(c.Name, name)
	})
	return ok, nil
}

func (r *CategoryRepository) List(ctx context.Context, f category.ListFilter) ([]*category.Category, int64, error) {
	unlock := r.s.rlock(ctx)
	rows := r.s.categories.find(func(c *category.Category) bool {
		if c.IsDeleted {
			return false
		}
		return f.Query == "" || textutil.ContainsFold(c.Name, f.Query) || textutil.ContainsFold(c.Description, f.Query)
	})
	unlock()

	sortBy(rows, func(c *category.Category) string { return c.ID }, func(a, b *category.Category) int {
		var c int
		switch f.Sort.Field {
		case category.SortName:
			c = strings.Compare(a.Name, b.Name)
		case category.SortUpdatedAt:
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		return dir(c, f.Sort.Desc)
	})
	return paging.Window(rows, f.Paging), int64(len(rows)), nil
}

func (r *CategoryRepository) CountActive(ctx context.Context, ids []string) (int64, error) {
	set := inSet(ids)
	defer r.s.rlock(ctx)()
	return r.s.categories.count(func(c *category.Category) bool {
		_, ok := set[c.ID]
		return ok && !c.IsDeleted
	}), nil
}

type BookRepository struct{ s *Store }

func (s *Store) Books() *BookRepository { return &BookRepository{s: s} }

func (r *BookRepository) Insert(ctx context.Context, b *book.Book) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.books.first(func(x *book.Book) bool { return !x.IsDeleted && x.Slug == b.Slug }); ok {
		return book.ErrSlugExists
	}
	r.s.books.put(b.ID, b)
	return nil
}

func (r *BookRepository) Get(ctx context.Context, id string) (*book.Book, error) {
	defer r.s.rlock(ctx)()
	b, ok := r.s.books.get(id)
	if !ok {
		return nil, book.ErrNotFound
	}
	return b, nil
}

func (r *BookRepository) GetBySlug(ctx context.Context, slug string) (*book.Book, error) {
	defer r.s.rlock(ctx)()
	b, ok := r.s.books.first(func(x *book.Book) bool { return x.Slug == slug && x.Visible() })
	if !ok {
		return nil, book.ErrNotFound
	}
	return b, nil
}

func (r *BookRepository) GetMany(ctx context.Context, ids []string) ([]*book.Book, error) {
	set := inSet(ids)
	defer r.s.rlock(ctx)()
	return r.s.books.find(func(b *book.Book) bool {
		_, ok := set[b.ID]
		return ok
	}), nil
}

func (r *BookRepository) Update(ctx context.Context, b *book.Book) error {
	defer r.s.lock(ctx)()
	if !r.s.books.has(b.ID) {
		return book.ErrNotFound
	}
	r.s.books.put(b.ID, b)
	return nil
}

func (r *BookRepository) SlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	defer r.s.rlock(ctx)()
	_, ok := r.s.books.first(func(b *book.Book) bool { return !b.IsDeleted && b.Slug == slug && b.ID != excludeID })
	return ok, nil
}

func (r *BookRepository) ISBNTaken(ctx context.Context, isbn, excludeID string) (bool, error) {
	if isbn == "" {
		return false, nil
	}
	defer r.s.rlock(ctx)()
	_, ok := r.s.books.first(func(b *book.Book) bool { return b.ISBN == isbn && b.ID != excludeID })
	return ok, nil
}

func (r *BookRepository) List(ctx context.Context, f book.ListFilter) ([]*book.Book, int64, error) {
	var ids map[string]struct{}
	if f.IDs != nil {
		ids = inSet(f.IDs)
	}
	unlock := r.s.rlock(ctx)
	rows := r.s.books.find(func(b *book.Book) bool { return matchBook(b, f, ids) })
	unlock()

	sortBy(rows, func(b *book.Book) string { return b.ID }, func(a, b *book.Book) int {
		switch f.Sort {
		case book.SortOldest:
			return a.CreatedAt.Compare(b.CreatedAt)
		case book.SortPriceAsc:
			return compareInt64(a.BasePrice, b.BasePrice)
		case book.SortPriceDesc:
			return -compareInt64(a.BasePrice, b.BasePrice)
		case book.SortBestSelling:
			return -compareInt64(a.SoldCount, b.SoldCount)
		default:
			return -a.CreatedAt.Compare(b.CreatedAt)
		}
	})
	return paging.Window(rows, f.Paging), int64(len(rows)), nil
}

func matchBook(b *book.Book, f book.ListFilter, ids map[string]struct{}) bool {
	if f.PublicOnly && !b.Visible() {
		return false
	}
	if ids != nil {
		if _, ok := ids[b.ID]; !ok {
			return false
		}
	}
	if f.CategoryID != "" {
		found := false
		for _, c := range b.CategoryIDs {
			if c == f.CategoryID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.MinPrice != nil && b.BasePrice < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && b.BasePrice > *f.MaxPrice {
		return false
	}
	if f.Status != nil && b.Status != *f.Status {
		return false
	}
	if f.IsDeleted != nil && b.IsDeleted != *f.IsDeleted {
		return false
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		hit := textutil.ContainsFold(b.Title, q) || textutil.ContainsFold(b.Slug, q) || textutil.ContainsFold(b.ISBN, q)
		for _, a := range b.Authors {
			hit = hit || textutil.ContainsFold(a, q)
		}
		if !hit {
			return false
		}
	}
	return true
}

func (r *BookRepository) Suggest(ctx context.Context, q string, limit int) ([]*book.Book, error) {
	unlock := r.s.rlock(ctx)
	rows := r.s.books.find(func(b *book.Book) bool {
		if !b.Visible() {
			return false
		}
		if textutil.ContainsFold(b.Title, q) {
			return true
		}
		for _, a := range b.Authors {
			if textutil.ContainsFold(a, q) {
				return true
			}
		}
		return false
	})
	unlock()

	sortBy(rows, func(b *book.Book) string { return b.ID }, func(a, b *book.Book) int {
		return -compareInt64(a.SoldCount, b.SoldCount)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *BookRepository) IncSold(ctx context.Context, id string, qty int) error {
	return r.mutate(ctx, id, func(b *book.Book) { b.SoldCount += int64(qty) })
}

func (r *BookRepository) SetRating(ctx context.Context, id string, avg float64, count int64) error {
	return r.mutate(ctx, id, func(b *book.Book) {
		b.RatingAvg = avg
		b.RatingCount = count
	})
}

func (r *BookRepository) mutate(ctx context.Context, id string, fn func(*book.Book)) error {
	defer r.s.lock(ctx)()
	b, ok := r.s.books.get(id)
	if !ok {
		return book.ErrNotFound
	}
	fn(b)
	r.s.books.put(id, b)
	return nil
}

type MediaRepository struct{ s *Store }

func (s *Store) Media() *MediaRepository { return &MediaRepository{s: s} }

func (r *MediaRepository) Insert(ctx context.Context, m *media.Media) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.media.first(func(x *media.Media) bool { return x.PublicID == m.PublicID }); ok {
		return media.ErrPublicIDExists
	}
	r.s.media.put(m.ID, m)
	return nil
}

func (r *MediaRepository) Get(ctx context.Context, id string) (*media.Media, error) {
	defer r.s.rlock(ctx)()
	m, ok := r.s.media.get(id)
	if !ok {
		return nil, media.ErrNotFound
	}
	return m, nil
}

func (r *MediaRepository) GetMany(ctx context.Context, ids []string) ([]*media.Media, error) {
	set := inSet(ids)
	defer r.s.rlock(ctx)()
	return r.s.media.find(func(m *media.Media) bool {
		_, ok := set[m.ID]
		return ok
	}), nil
}

func (r *MediaRepository) Update(ctx context.Context, m *media.Media) error {
	defer r.s.lock(ctx)()
	if !r.s.media.has(m.ID) {
		return media.ErrNotFound
	}
	r.s.media.put(m.ID, m)
	return nil
}

func (r *MediaRepository) Delete(ctx context.Context, id string) error {
	defer r.s.lock(ctx)()
	if !r.s.media.remove(id) {
		return media.ErrNotFound
	}
	return nil
}

func (r *MediaRepository) DeleteTempBefore(ctx context.Context, before time.Time) (int64, error) {
	defer r.s.lock(ctx)()
	stale := r.s.media.find(func(m *media.Media) bool {
		return m.Status == media.StatusTemp && m.CreatedAt.Before(before)
	})
	for _, m := range stale {
		r.s.media.remove(m.ID)
	}
	return int64(len(stale)), nil
}
