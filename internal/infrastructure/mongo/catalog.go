package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Zhima-Mochi/readify/internal/domain/book"
	"github.com/Zhima-Mochi/readify/internal/domain/category"
	"github.com/Zhima-Mochi/readify/internal/domain/media"
)

type categoryDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	IsDeleted   bool      `bson:"isDeleted"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

func toCategoryDoc(c *category.Category) categoryDoc {
	return categoryDoc{ID: c.ID, Name: c.Name, Description: c.Description, IsDeleted: c.IsDeleted, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func (d *categoryDoc) domain() *category.Category {
	return &category.Category{ID: d.ID, Name: d.Name, Description: d.Description, IsDeleted: d.IsDeleted, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

type CategoryRepository struct{ c *mongo.Collection }

func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{c: s.col(colCategories)} }

func (r *CategoryRepository) Insert(ctx context.Context, c *category.Category) error {
	return insert(ctx, r.c, toCategoryDoc(c), category.ErrNameExists)
}

func (r *CategoryRepository) Get(ctx context.Context, id string) (*category.Category, error) {
	return findOne(ctx, r.c, bson.M{"_id": id, "isDeleted": false}, category.ErrNotFound, (*categoryDoc).domain)
}

func (r *CategoryRepository) Update(ctx context.Context, c *category.Category) error {
	return replace(ctx, r.c, c.ID, toCategoryDoc(c), category.ErrNotFound)
}

func (r *CategoryRepository) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	f := bson.M{
		"isDeleted": false,
		"name":      primitive.Regex{Pattern: "^" + contains(name).Pattern + "$", Options: "i"},
	}
	if excludeID != "" {
		f["_id"] = bson.M{"$ne": excludeID}
	}
	return exists(ctx, r.c, f)
}

func (r *CategoryRepository) List(ctx context.Context, f category.ListFilter) ([]*category.Category, int64, error) {
	m := bson.M{"isDeleted": false}
	if f.Query != "" {
		m["$or"] = anyContains(f.Query, "name", "description")
	}
	skip, limit := pageOf(f.Paging)
	return findPage(ctx, r.c, m, sortSpec(f.Sort.Field, f.Sort.Desc), skip, limit, (*categoryDoc).domain)
}

func (r *CategoryRepository) CountActive(ctx context.Context, ids []string) (int64, error) {
	n, err := r.c.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}, "isDeleted": false})
	if err != nil {
		return 0, fmt.Errorf("mongo: count categories: %w", err)
	}
	return n, nil
}

type imageDoc struct {
	Kind    book.ImageKind `bson:"kind"`
	MediaID string         `bson:"mediaId"`
	URL     string         `bson:"url"`
}

type bookDoc struct {
	ID           string      `bson:"_id"`
	Title        string      `bson:"title"`
	Slug         string      `bson:"slug"`
	Subtitle     string      `bson:"subtitle,omitempty"`
	Description  string      `bson:"description,omitempty"`
	Authors      []string    `bson:"authors"`
	Language     string      `bson:"language,omitempty"`
	PublishDate  *time.Time  `bson:"publishDate,omitempty"`
	PageCount    int         `bson:"pageCount,omitempty"`
	ISBN         string      `bson:"isbn,omitempty"`
	Publisher    string      `bson:"publisher,omitempty"`
	CategoryIDs  []string    `bson:"categoryIds"`
	Images       []imageDoc  `bson:"images"`
	BasePrice    int64       `bson:"basePrice"`
	Currency     string      `bson:"currency"`
	ThumbnailURL string      `bson:"thumbnailUrl"`
	Status       book.Status `bson:"status"`
	Tags         []string    `bson:"tags,omitempty"`
	SoldCount    int64       `bson:"soldCount"`
	RatingAvg    float64     `bson:"ratingAvg"`
	RatingCount  int64       `bson:"ratingCount"`
	IsDeleted    bool        `bson:"isDeleted"`
	DeletedAt    *time.Time  `bson:"deletedAt,omitempty"`
	CreatedAt    time.Time   `bson:"createdAt"`
	UpdatedAt    time.Time   `bson:"updatedAt"`
}

func toBookDoc(b *book.Book) bookDoc {
	images := make([]imageDoc, 0, len(b.Images))
	for _, im := range b.Images {
		images = append(images, imageDoc{Kind: im.Kind, MediaID: im.MediaID, URL: im.URL})
	}
	return bookDoc{
		ID: b.ID, Title: b.Title, Slug: b.Slug, Subtitle: b.Subtitle, Description: b.Description,
		Authors: b.Authors, Language: b.Language, PublishDate: b.PublishDate, PageCount: b.PageCount,
		ISBN: b.ISBN, Publisher: b.Publisher, CategoryIDs: b.CategoryIDs, Images: images,
		BasePrice: b.BasePrice, Currency: b.Currency, ThumbnailURL: b.ThumbnailURL, Status: b.Status, Tags: b.Tags,
		SoldCount: b.SoldCount, RatingAvg: b.RatingAvg, RatingCount: b.RatingCount,
		IsDeleted: b.IsDeleted, DeletedAt: b.DeletedAt, CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
	}
}

func (d *bookDoc) domain() *book.Book {
	images := make([]book.Image, 0, len(d.Images))
	for _, im := range d.Images {
		images = append(images, book.Image{Kind: im.Kind, MediaID: im.MediaID, URL: im.URL})
	}
	return &book.Book{
		ID: d.ID, Title: d.Title, Slug: d.Slug, Subtitle: d.Subtitle, Description: d.Description,
		Authors: d.Authors, Language: d.Language, PublishDate: d.PublishDate, PageCount: d.PageCount,
		ISBN: d.ISBN, Publisher: d.Publisher, CategoryIDs: d.CategoryIDs, Images: images,
		BasePrice: d.BasePrice, Currency: d.Currency, ThumbnailURL: d.ThumbnailURL, Status: d.Status, Tags: d.Tags,
		SoldCount: d.SoldCount, RatingAvg: d.RatingAvg, RatingCount: d.RatingCount,
		IsDeleted: d.IsDeleted, DeletedAt: d.DeletedAt, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type BookRepository struct{ c *mongo.Collection }

func (s *Store) Books() *BookRepository { return &BookRepository{c: s.col(colBooks)} }

func (r *BookRepository) Insert(ctx context.Context, b *book.Book) error {
	taken, err := r.SlugTaken(ctx, b.Slug, "")
	if err != nil {
		return err
	}
	if taken {
		return book.ErrSlugExists
	}
	return insert(ctx, r.c, toBookDoc(b), book.ErrSlugExists)
}

func (r *BookRepository) Get(ctx context.Context, id string) (*book.Book, error) {
	return findOne(ctx, r.c, bson.M{"_id": id}, book.ErrNotFound, (*bookDoc).domain)
}

func (r *BookRepository) GetBySlug(ctx context.Context, slug string) (*book.Book, error) {
	f := bson.M{"slug": slug, "isDeleted": false, "status": int(book.StatusActive)}
	return findOne(ctx, r.c, f, book.ErrNotFound, (*bookDoc).domain)
}

func (r *BookRepository) GetMany(ctx context.Context, ids []string) ([]*book.Book, error) {
	return findAll(ctx, r.c, bson.M{"_id": bson.M{"$in": ids}}, options.Find(), (*bookDoc).domain)
}

func (r *BookRepository) Update(ctx context.Context, b *book.Book) error {
	return replace(ctx, r.c, b.ID, toBookDoc(b), book.ErrNotFound)
}

func (r *BookRepository) SlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	f := bson.M{"slug": slug, "isDeleted": false}
	if excludeID != "" {
		f["_id"] = bson.M{"$ne": excludeID}
	}
	return exists(ctx, r.c, f)
}

func (r *BookRepository) ISBNTaken(ctx context.Context, isbn, excludeID string) (bool, error) {
	if isbn == "" {
		return false, nil
	}
	f := bson.M{"isbn": isbn}
	if excludeID != "" {
		f["_id"] = bson.M{"$ne": excludeID}
	}
	return exists(ctx, r.c, f)
}

func (r *BookRepository) List(ctx context.Context, f book.ListFilter) ([]*book.Book, int64, error) {
	skip, limit := pageOf(f.Paging)
	return findPage(ctx, r.c, bookFilter(f), bookSort(f.Sort), skip, limit, (*bookDoc).domain)
}

func (r *BookRepository) Suggest(ctx context.Context, q string, limit int) ([]*book.Book, error) {
	f := bson.M{
		"isDeleted": false,
		"status":    int(book.StatusActive),
		"$or":       anyContains(q, "title", "authors"),
	}
	opts := options.Find().SetSort(sortSpec("soldCount", true)).SetLimit(int64(limit))
	return findAll(ctx, r.c, f, opts, (*bookDoc).domain)
}

func (r *BookRepository) IncSold(ctx context.Context, id string, qty int) error {
	return r.set(ctx, id, bson.M{"$inc": bson.M{"soldCount": qty}})
}

func (r *BookRepository) SetRating(ctx context.Context, id string, avg float64, count int64) error {
	return r.set(ctx, id, bson.M{"$set": bson.M{"ratingAvg": avg, "ratingCount": count}})
}

func (r *BookRepository) set(ctx context.Context, id string, update bson.M) error {
	res, err := r.c.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("mongo: update book: %w", err)
	}
	if res.MatchedCount == 0 {
		return book.ErrNotFound
	}
	return nil
}

type attachmentDoc struct {
	Model string `bson:"model"`
	ID    string `bson:"id"`
}

type mediaDoc struct {
	ID           string         `bson:"_id"`
	URL          string         `bson:"url"`
	PublicID     string         `bson:"publicId"`
	Type         media.Type     `bson:"type"`
	Size         int64          `bson:"size"`
	Status       media.Status   `bson:"status"`
	UploadedBy   string         `bson:"uploadedBy"`
	Folder       media.Folder   `bson:"folder"`
	AttachedTo   *attachmentDoc `bson:"attachedTo,omitempty"`
	OriginalName string         `bson:"originalName,omitempty"`
	MimeType     string         `bson:"mimeType,omitempty"`
	CreatedAt    time.Time      `bson:"createdAt"`
	UpdatedAt    time.Time      `bson:"updatedAt"`
}

func toMediaDoc(m *media.Media) mediaDoc {
	d := mediaDoc{
		ID: m.ID, URL: m.URL, PublicID: m.PublicID, Type: m.Type, Size: m.Size, Status: m.Status,
		UploadedBy: m.UploadedBy, Folder: m.Folder, OriginalName: m.OriginalName, MimeType: m.MimeType,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
	if m.AttachedTo != nil {
		d.AttachedTo = &attachmentDoc{Model: m.AttachedTo.Model, ID: m.AttachedTo.ID}
	}
	return d
}

func (d *mediaDoc) domain() *media.Media {
	m := &media.Media{
		ID: d.ID, URL: d.URL, PublicID: d.PublicID, Type: d.Type, Size: d.Size, Status: d.Status,
		UploadedBy: d.UploadedBy, Folder: d.Folder, OriginalName: d.OriginalName, MimeType: d.MimeType,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
	if d.AttachedTo != nil {
		m.AttachedTo = &media.Attachment{Model: d.AttachedTo.Model, ID: d.AttachedTo.ID}
	}
	return m
}

type MediaRepository struct{ c *mongo.Collection }

func (s *Store) Media() *MediaRepository { return &MediaRepository{c: s.col(colMedia)} }

func (r *MediaRepository) Insert(ctx context.Context, m *media.Media) error {
	return insert(ctx, r.c, toMediaDoc(m), media.ErrPublicIDExists)
}

func (r *MediaRepository) Get(ctx context.Context, id string) (*media.Media, error) {
	return findOne(ctx, r.c, bson.M{"_id": id}, media.ErrNotFound, (*mediaDoc).domain)
}

func (r *MediaRepository) GetMany(ctx context.Context, ids []string) ([]*media.Media, error) {
	return findAll(ctx, r.c, bson.M{"_id": bson.M{"$in": ids}}, options.Find(), (*mediaDoc).domain)
}

func (r *MediaRepository) Update(ctx context.Context, m *media.Media) error {
	return replace(ctx, r.c, m.ID, toMediaDoc(m), media.ErrNotFound)
}

func (r *MediaRepository) Delete(ctx context.Context, id string) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo: delete media: %w", err)
	}
	if res.DeletedCount == 0 {
		return media.ErrNotFound
	}
	return nil
}

func (r *MediaRepository) DeleteTempBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.c.DeleteMany(ctx, bson.M{"status": media.StatusTemp, "createdAt": bson.M{"$lt": before}})
	if err != nil {
		return 0, fmt.Errorf("mongo: cleanup media: %w", err)
	}
	return res.DeletedCount, nil
}
