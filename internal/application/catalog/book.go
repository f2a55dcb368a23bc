package catalog

import (
	"context"
	"strings"

	"github.com/Zhima-Mochi/readify/internal/application"
	"github.com/Zhima-Mochi/readify/internal/domain/book"
	"github.com/Zhima-Mochi/readify/internal/domain/inventory"
	"github.com/Zhima-Mochi/readify/internal/domain/media"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/pkg/objectid"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"

	"go.opentelemetry.io/otel/attribute"
)

type ListBooksInput struct {
	Page       int
	Limit      int
	CategoryID string
	MinPrice   *int64
	MaxPrice   *int64
	InStock    bool
	Query      string
	Sort       string
}

// ListBooks is the public storefront listing.
func (s *Service) ListBooks(ctx context.Context, in ListBooksInput) (_ paging.Result[*book.Book], err error) {
	ctx, call := s.inst.Start(ctx, "catalog.list_books", "ListBooks")
	defer call.End(&err)

	f := book.ListFilter{
		PublicOnly: true,
		CategoryID: in.CategoryID,
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		Query:      strings.TrimSpace(in.Query),
		Sort:       paging.PickSort(in.Sort, book.SortKeys, book.SortNewest),
		Paging:     paging.New(in.Page, in.Limit, book.DefaultPageSize, paging.MaxLimit),
	}
	if in.InStock {
		ids, err := s.stocks.InStockBookIDs(ctx)
		if err != nil {
			return paging.Result[*book.Book]{}, application.WrapRepositoryError(err)
		}
		f.IDs = append([]string{}, ids...)
	}
	return s.listBooks(ctx, f)
}

type AdminListBooksInput struct {
	ListBooksInput
	Status    *book.Status
	IsDeleted *bool
}

func (s *Service) AdminListBooks(ctx context.Context, actor application.Actor, in AdminListBooksInput) (_ paging.Result[*book.Book], err error) {
	ctx, call := s.inst.Start(ctx, "catalog.admin_list_books", "AdminListBooks")
	defer call.End(&err)

	if err = requireStaff(actor); err != nil {
		return paging.Result[*book.Book]{}, err
	}
	return s.listBooks(ctx, book.ListFilter{
		CategoryID: in.CategoryID,
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		Query:      strings.TrimSpace(in.Query),
		Status:     in.Status,
		IsDeleted:  in.IsDeleted,
		Sort:       paging.PickSort(in.Sort, book.SortKeys, book.SortNewest),
		Paging:     paging.New(in.Page, in.Limit, book.DefaultPageSize, paging.MaxLimit),
	})
}

func (s *Service) listBooks(ctx context.Context, f book.ListFilter) (paging.Result[*book.Book], error) {
	rows, total, err := s.books.List(ctx, f)
	if err != nil {
		return paging.Result[*book.Book]{}, application.WrapRepositoryError(err)
	}
	return paging.NewResult(rows, f.Paging, total), nil
}

// SuggestBooks powers search-as-you-type. Queries shorter than two characters return nothing.
func (s *Service) SuggestBooks(ctx context.Context, q string, limit int) (_ []*book.Book, err error) {
	ctx, call := s.inst.Start(ctx, "catalog.suggest_books", "SuggestBooks")
	defer call.End(&err)

	q = strings.TrimSpace(q)
	if len([]rune(q)) < book.MinSuggestQuery {
		return []*book.Book{}, nil
	}
	if limit <= 0 {
		limit = book.DefaultSuggestMax
	}
	if limit > book.MaxSuggest {
		limit = book.MaxSuggest
	}
	rows, err := s.books.Suggest(ctx, q, limit)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return rows, nil
}

func (s *Service) GetBookBySlug(ctx context.Context, slug string) (_ *book.Book, err error) {
	ctx, call := s.inst.Start(ctx, "catalog.get_book_by_slug", "GetBookBySlug", attribute.String("book.slug", slug))
	defer call.End(&err)

	b, err := s.cache.GetOrLoad(ctx, slug, func(ctx context.Context) (*book.Book, error) {
		return s.books.GetBySlug(ctx, slug)
	})
	return b, application.WrapRepositoryError(err)
}

func (s *Service) AdminGetBook(ctx context.Context, actor application.Actor, id string) (_ *book.Book, err error) {
	ctx, call := s.inst.Start(ctx, "catalog.admin_get_book", "AdminGetBook")
	defer call.End(&err)

	if err = requireStaff(actor); err != nil {
		return nil, err
	}
	b, err := s.books.Get(ctx, id)
	return b, application.WrapRepositoryError(err)
}

type CreateBookInput struct {
	Details         book.Details
	Slug            string
	CategoryIDs     []string
	BasePrice       int64
	Currency        string
	Status          *book.Status
	CoverMediaID    string
	GalleryMediaIDs []string
	InitialQuantity int
	Location        string
}

// CreateBook inserts the book with its stock record and attaches its TEMP media in one transaction.
func (s *Service) CreateBook(ctx context.Context, actor application.Actor, in CreateBookInput) (_ *book.Book, err error) {
	ctx, call := s.inst.Start(ctx, "catalog.create_book", "CreateBook")
	defer call.End(&err)

	if err = requireStaff(actor); err != nil {
		return nil, err
	}
	if in.CoverMediaID == "" {
		return nil, book.ErrCoverRequired
	}
	if in.InitialQuantity < 0 {
		return nil, inventory.ErrInvalidQuantity
	}
	slug, err := book.SlugFor(in.Slug, in.Details.Title)
	if err != nil {
		return nil, err
	}
	status := book.StatusActive
	if in.Status != nil {
		status = *in.Status
	}
	b, err := book.New(s.ids.NewID(), slug, in.Details, in.CategoryIDs, in.BasePrice, in.Currency, status)
	if err != nil {
		return nil, err
	}
	if err = s.checkUnique(ctx, b.Slug, b.ISBN, ""); err != nil {
		return nil, err
	}
	if err = s.checkCategories(ctx, b.CategoryIDs); err != nil {
		return nil, err
	}
	mediaIDs := objectid.Unique(append([]string{in.CoverMediaID}, in.GalleryMediaIDs...))

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		items, err := s.loadAttachable(ctx, mediaIDs, "")
		if err != nil {
			return err
		}
		b.SetImages(imageOf(items[in.CoverMediaID]), galleryOf(items, in.GalleryMediaIDs, in.CoverMediaID))
		if err := s.books.Insert(ctx, b); err != nil {
			return application.WrapRepositoryError(err)
		}
		stock, err := inventory.NewStock(s.ids.NewID(), b.ID, in.InitialQuantity, b.BasePrice, in.Location)
		if err != nil {
			return err
		}
		if err := s.stocks.Insert(ctx, stock); err != nil {
			return application.WrapRepositoryError(err)
		}
		return s.attach(ctx, items, mediaIDs, b.ID)
	})
	if err != nil {
		return nil, err
	}
	call.Field("book_id", b.ID)
	return b, nil
}

type UpdateBookInput struct {
	Patch        book.Patch
	CoverMediaID *string
	// GalleryMediaIDs replaces the gallery when non-nil.
	GalleryMediaIDs []string
}

func (s *Service) UpdateBook(ctx context.Context, actor application.Actor, id string, in UpdateBookInput) (_ *book.Book, err error) {
	ctx, call := s.inst.Start(ctx, "catalog.update_book", "UpdateBook", attribute.String("book.id", id))
	defer call.End(&err)

	if err = requireStaff(actor); err != nil {
		return nil, err
	}
	b, err := s.books.Get(ctx, id)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if b.IsDeleted {
		return nil, book.ErrNotFound
	}
	oldSlug, oldPrice := b.Slug, b.BasePrice
	oldMedia := b.MediaIDs()

	patch := in.Patch
	if patch.Title != nil || patch.Slug != nil {
		title := b.Title
		if patch.Title != nil {
			title = *patch.Title
		}
		explicit := ""
		if patch.Slug != nil {
			explicit = *patch.Slug
		}
		slug, err := book.SlugFor(explicit, title)
		if err != nil {
			return nil, err
		}
		patch.Slug = &slug
	}
	if err = b.Apply(patch); err != nil {
		return nil, err
	}
	if patch.Slug != nil {
		b.Slug = *patch.Slug
	}
	isbn := ""
	if patch.ISBN != nil {
		isbn = b.ISBN
	}
	if err = s.checkUnique(ctx, b.Slug, isbn, b.ID); err != nil {
		return nil, err
	}
	if patch.CategoryIDs != nil {
		if err = s.checkCategories(ctx, b.CategoryIDs); err != nil {
			return nil, err
		}
	}

	cover := b.CoverMediaID()
	if in.CoverMediaID != nil {
		cover = *in.CoverMediaID
	}
	gallery := b.GalleryMediaIDs()
	if in.GalleryMediaIDs != nil {
		gallery = in.GalleryMediaIDs
	}
	mediaChanged := in.CoverMediaID != nil || in.GalleryMediaIDs != nil
	if mediaChanged && cover == "" {
		return nil, book.ErrCoverRequired
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if mediaChanged {
			if err := s.replaceMedia(ctx, b, oldMedia, cover, gallery); err != nil {
				return err
			}
		}
		if err := s.books.Update(ctx, b); err != nil {
			return application.WrapRepositoryError(err)
		}
		if b.BasePrice != oldPrice {
			stock, err := s.stocks.GetByBook(ctx, b.ID)
			if err != nil {
				return application.WrapRepositoryError(err)
			}
			if err := stock.Adjust(stock.Quantity, b.BasePrice); err != nil {
				return err
			}
			return application.WrapRepositoryError(s.stocks.Update(ctx, stock))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, call, oldSlug, b.Slug)
	return b, nil
}

// replaceMedia attaches newly referenced TEMP media and releases the ones no longer used.
func (s *Service) replaceMedia(ctx context.Context, b *book.Book, oldIDs []string, cover string, gallery []string) error {
	wanted := objectid.Unique(append([]string{cover}, gallery...))
	old := make(map[string]struct{}, len(oldIDs))
	for _, id := range oldIDs {
		old[id] = struct{}{}
	}
	var added []string
	for _, id := range wanted {
		if _, ok := old[id]; !ok {
			added = append(added, id)
		}
	}
	items, err := s.loadAttachable(ctx, added, "")
	if err != nil {
		return err
	}
	kept, err := s.media.GetMany(ctx, wanted)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	for _, m := range kept {
		if _, ok := items[m.ID]; !ok {
			items[m.ID] = m
		}
	}
	if _, ok := items[cover]; !ok {
		return media.ErrMissing
	}
	b.SetImages(imageOf(items[cover]), galleryOf(items, gallery, cover))
	if err := s.attach(ctx, items, added, b.ID); err != nil {
		return err
	}

	keep := make(map[string]struct{}, len(wanted))
	for _, id := range wanted {
		keep[id] = struct{}{}
	}
	var removed []string
	for _, id := range oldIDs {
		if _, ok := keep[id]; !ok {
			removed = append(removed, id)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	gone, err := s.media.GetMany(ctx, removed)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	for _, m := range gone {
		m.Release()
		if err := s.media.Update(ctx, m); err != nil {
			return application.WrapRepositoryError(err)
		}
	}
	return nil
}

func (s *Service) DeleteBook(ctx context.Context, actor application.Actor, id string) (err error) {
	ctx, call := s.inst.Start(ctx, "catalog.delete_book", "DeleteBook", attribute.String("book.id", id))
	defer call.End(&err)

	if err = requireStaff(actor); err != nil {
		return err
	}
	var slug string
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.books.Get(ctx, id)
		if err != nil {
			return application.WrapRepositoryError(err)
		}
		if err := b.SoftDelete(s.clock()); err != nil {
			return err
		}
		slug = b.Slug
		if err := s.books.Update(ctx, b); err != nil {
			return application.WrapRepositoryError(err)
		}
		return s.updateStock(ctx, id, (*inventory.Stock).Deactivate)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, call, slug)
	return nil
}

func (s *Service) RestoreBook(ctx context.Context, actor application.Actor, id string) (_ *book.Book, err error) {
	ctx, call := s.inst.Start(ctx, "catalog.restore_book", "RestoreBook", attribute.String("book.id", id))
	defer call.End(&err)

	if err = requireStaff(actor); err != nil {
		return nil, err
	}
	var restored *book.Book
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.books.Get(ctx, id)
		if err != nil {
			return application.WrapRepositoryError(err)
		}
		if err := b.Restore(); err != nil {
			return err
		}
		taken, err := s.books.SlugTaken(ctx, b.Slug, b.ID)
		if err != nil {
			return application.WrapRepositoryError(err)
		}
		if taken {
			return book.ErrSlugExists
		}
		if err := s.books.Update(ctx, b); err != nil {
			return application.WrapRepositoryError(err)
		}
		restored = b
		return s.updateStock(ctx, id, (*inventory.Stock).Activate)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, call, restored.Slug)
	return restored, nil
}

func (s *Service) updateStock(ctx context.Context, bookID string, fn func(*inventory.Stock)) error {
	stock, err := s.stocks.GetByBook(ctx, bookID)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	fn(stock)
	return application.WrapRepositoryError(s.stocks.Update(ctx, stock))
}

func (s *Service) checkUnique(ctx context.Context, slug, isbn, excludeID string) error {
	taken, err := s.books.SlugTaken(ctx, slug, excludeID)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	if taken {
		return book.ErrSlugExists
	}
	if isbn == "" {
		return nil
	}
	taken, err = s.books.ISBNTaken(ctx, isbn, excludeID)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	if taken {
		return book.ErrISBNExists
	}
	return nil
}

func (s *Service) checkCategories(ctx context.Context, ids []string) error {
	if err := book.CheckCategoryIDs(ids); err != nil {
		return err
	}
	n, err := s.categories.CountActive(ctx, ids)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	if n != int64(len(ids)) {
		return book.ErrCategoriesInvalid
	}
	return nil
}

// loadAttachable loads ids and requires each to exist and be TEMP.
func (s *Service) loadAttachable(ctx context.Context, ids []string, owner string) (map[string]*media.Media, error) {
	out := make(map[string]*media.Media, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.media.GetMany(ctx, ids)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	for _, m := range rows {
		if err := m.EnsureAttachable(owner); err != nil {
			return nil, err
		}
		out[m.ID] = m
	}
	if len(out) != len(ids) {
		return nil, media.ErrMissing
	}
	return out, nil
}

func (s *Service) attach(ctx context.Context, items map[string]*media.Media, ids []string, bookID string) error {
	for _, id := range ids {
		m := items[id]
		m.Attach(media.ModelBook, bookID)
		if err := s.media.Update(ctx, m); err != nil {
			return application.WrapRepositoryError(err)
		}
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, call *application.Call, slugs ...string) {
	if err := s.cache.Invalidate(ctx, slugs...); err != nil {
		call.Logger().Warn("book_cache_invalidate_failed", observability.F("error", err.Error()))
	}
}

func imageOf(m *media.Media) book.Image {
	return book.Image{MediaID: m.ID, URL: m.URL}
}

func galleryOf(items map[string]*media.Media, ids []string, cover string) []book.Image {
	out := make([]book.Image, 0, len(ids))
	seen := map[string]struct{}{cover: {}}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if m, ok := items[id]; ok {
			out = append(out, imageOf(m))
		}
	}
	return out
}
