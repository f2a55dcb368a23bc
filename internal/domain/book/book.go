package book

import (
	"strings"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain"
	"github.com/Zhima-Mochi/readify/internal/pkg/textutil"
)

var (
	ErrNotFound            = domain.NewError(domain.ErrNotFound, "BOOK_NOT_FOUND", "book: not found")
	ErrSlugExists          = domain.NewError(domain.ErrConflict, "BOOK_SLUG_EXISTS", "book: slug already exists")
	ErrISBNExists          = domain.NewError(domain.ErrConflict, "BOOK_ISBN_EXISTS", "book: isbn already exists")
	ErrTitleRequired       = domain.NewError(domain.ErrInvalid, "BOOK_TITLE_REQUIRED", "book: title is required")
	ErrSlugInvalid         = domain.NewError(domain.ErrInvalid, "BOOK_SLUG_INVALID", "book: slug is empty after normalisation")
	ErrCategoriesRequired  = domain.NewError(domain.ErrInvalid, "BOOK_CATEGORIES_REQUIRED", "book: at least one category is required")
	ErrCategoriesDuplicate = domain.NewError(domain.ErrInvalid, "BOOK_CATEGORIES_DUPLICATE", "book: duplicate category ids")
	ErrCategoriesInvalid   = domain.NewError(domain.ErrInvalid, "BOOK_CATEGORIES_INVALID", "book: one or more categories do not exist")
	ErrPriceInvalid        = domain.NewError(domain.ErrInvalid, "BOOK_PRICE_INVALID", "book: base price must be greater than zero")
	ErrCoverRequired       = domain.NewError(domain.ErrInvalid, "BOOK_COVER_REQUIRED", "book: cover media is required")
	ErrAlreadyDeleted      = domain.NewError(domain.ErrInvalid, "BOOK_ALREADY_DELETED", "book: already deleted")
	ErrNotDeleted          = domain.NewError(domain.ErrInvalid, "BOOK_NOT_DELETED", "book: book is not deleted")
)

type Status int

const (
	StatusHidden Status = 0
	StatusActive Status = 1
)

type ImageKind string

const (
	ImageCover   ImageKind = "cover"
	ImageGallery ImageKind = "gallery"
)

type Image struct {
	Kind    ImageKind
	MediaID string
	URL     string
}

const DefaultCurrency = "VND"

type Book struct {
	ID           string
	Title        string
	Slug         string
	Subtitle     string
	Description  string
	Authors      []string
	Language     string
	PublishDate  *time.Time
	PageCount    int
	ISBN         string
	Publisher    string
	CategoryIDs  []string
	Images       []Image
	BasePrice    int64
	Currency     string
	ThumbnailURL string
	Status       Status
	Tags         []string
	SoldCount    int64
	RatingAvg    float64
	RatingCount  int64
	IsDeleted    bool
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Details is the editable descriptive part of a book.
type Details struct {
	Title       string
	Subtitle    string
	Description string
	Authors     []string
	Language    string
	PublishDate *time.Time
	PageCount   int
	ISBN        string
	Publisher   string
	Tags        []string
}

// SlugFor derives the slug from an explicit value or the title.
func SlugFor(slug, title string) (string, error) {
	src := strings.TrimSpace(slug)
	if src == "" {
		src = title
	}
	s := textutil.Slugify(src)
	if s == "" {
		return "", ErrSlugInvalid
	}
	return s, nil
}

func New(id, slug string, d Details, categoryIDs []string, basePrice int64, currency string, status Status) (*Book, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if basePrice <= 0 {
		return nil, ErrPriceInvalid
	}
	if err := CheckCategoryIDs(categoryIDs); err != nil {
		return nil, err
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	now := time.Now().UTC()
	b := &Book{
		ID:          id,
		Slug:        slug,
		CategoryIDs: append([]string(nil), categoryIDs...),
		BasePrice:   basePrice,
		Currency:    currency,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.applyDetails(d)
	return b, nil
}

func (b *Book) applyDetails(d Details) {
	b.Title = strings.TrimSpace(d.Title)
	b.Subtitle = strings.TrimSpace(d.Subtitle)
	b.Description = strings.TrimSpace(d.Description)
	b.Authors = trimAll(d.Authors)
	b.Language = strings.TrimSpace(d.Language)
	b.PublishDate = d.PublishDate
	b.PageCount = d.PageCount
	b.ISBN = strings.TrimSpace(d.ISBN)
	b.Publisher = strings.TrimSpace(d.Publisher)
	b.Tags = trimAll(d.Tags)
}

// CheckCategoryIDs enforces a non-empty, duplicate free list.
func CheckCategoryIDs(ids []string) error {
	if len(ids) == 0 {
		return ErrCategoriesRequired
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return ErrCategoriesDuplicate
		}
		seen[id] = struct{}{}
	}
	return nil
}

// SetImages replaces the cover and gallery and keeps the thumbnail in sync with the cover.
func (b *Book) SetImages(cover Image, gallery []Image) {
	cover.Kind = ImageCover
	imgs := make([]Image, 0, len(gallery)+1)
	imgs = append(imgs, cover)
	for _, g := range gallery {
		g.Kind = ImageGallery
		imgs = append(imgs, g)
	}
	b.Images = imgs
	b.ThumbnailURL = cover.URL
	b.touch()
}

func (b *Book) CoverMediaID() string {
	for _, img := range b.Images {
		if img.Kind == ImageCover {
			return img.MediaID
		}
	}
	return ""
}

func (b *Book) GalleryMediaIDs() []string {
	var ids []string
	for _, img := range b.Images {
		if img.Kind == ImageGallery {
			ids = append(ids, img.MediaID)
		}
	}
	return ids
}

func (b *Book) MediaIDs() []string {
	ids := make([]string, 0, len(b.Images))
	for _, img := range b.Images {
		ids = append(ids, img.MediaID)
	}
	return ids
}

// Patch holds optional updates; nil fields are left untouched.
type Patch struct {
	Title       *string
	Slug        *string
	Subtitle    *string
	Description *string
	Authors     []string
	Language    *string
	PublishDate *time.Time
	PageCount   *int
	ISBN        *string
	Publisher   *string
	Tags        []string
	CategoryIDs []string
	BasePrice   *int64
	Status      *Status
}

func (b *Book) Apply(p Patch) error {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return ErrTitleRequired
		}
		b.Title = t
	}
	if p.BasePrice != nil {
		if *p.BasePrice <= 0 {
			return ErrPriceInvalid
		}
		b.BasePrice = *p.BasePrice
	}
	if p.CategoryIDs != nil {
		if err := CheckCategoryIDs(p.CategoryIDs); err != nil {
			return err
		}
		b.CategoryIDs = append([]string(nil), p.CategoryIDs...)
	}
	if p.Subtitle != nil {
		b.Subtitle = strings.TrimSpace(*p.Subtitle)
	}
	if p.Description != nil {
		b.Description = strings.TrimSpace(*p.Description)
	}
	if p.Authors != nil {
		b.Authors = trimAll(p.Authors)
	}
	if p.Language != nil {
		b.Language = strings.TrimSpace(*p.Language)
	}
	if p.PublishDate != nil {
		d := *p.PublishDate
		b.PublishDate = &d
	}
	if p.PageCount != nil {
		b.PageCount = *p.PageCount
	}
	if p.ISBN != nil {
		b.ISBN = strings.TrimSpace(*p.ISBN)
	}
	if p.Publisher != nil {
		b.Publisher = strings.TrimSpace(*p.Publisher)
	}
	if p.Tags != nil {
		b.Tags = trimAll(p.Tags)
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	b.touch()
	return nil
}

func (b *Book) SoftDelete(at time.Time) error {
	if b.IsDeleted {
		return ErrAlreadyDeleted
	}
	t := at.UTC()
	b.IsDeleted = true
	b.DeletedAt = &t
	b.touch()
	return nil
}

func (b *Book) Restore() error {
	if !b.IsDeleted {
		return ErrNotDeleted
	}
	b.IsDeleted = false
	b.DeletedAt = nil
	b.touch()
	return nil
}

// Visible reports whether the public storefront may show the book.
func (b *Book) Visible() bool {
	return !b.IsDeleted && b.Status == StatusActive
}

func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	c := *b
	c.Authors = append([]string(nil), b.Authors...)
	c.CategoryIDs = append([]string(nil), b.CategoryIDs...)
	c.Images = append([]Image(nil), b.Images...)
	c.Tags = append([]string(nil), b.Tags...)
	if b.PublishDate != nil {
		d := *b.PublishDate
		c.PublishDate = &d
	}
	if b.DeletedAt != nil {
		d := *b.DeletedAt
		c.DeletedAt = &d
	}
	return &c
}

func (b *Book) touch() { b.UpdatedAt = time.Now().UTC() }

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
