package httppresentation

import (
	"net/http"
	"strings"
	"time"

	"github.com/Zhima-Mochi/readify/internal/application/catalog"
	"github.com/Zhima-Mochi/readify/internal/application/inventory"
	"github.com/Zhima-Mochi/readify/internal/domain/book"
	"github.com/Zhima-Mochi/readify/internal/domain/media"
)

func (h *Handler) routeCatalog(mux *http.ServeMux) {
	h.handle(mux, "POST /categories", h.handleCreateCategory, h.auth())
	h.handle(mux, "GET /categories", h.handleListCategories)
	h.handle(mux, "GET /categories/{id}", h.handleGetCategory)
	h.handle(mux, "PATCH /categories/{id}", h.handleUpdateCategory, h.auth())
	h.handle(mux, "DELETE /categories/{id}", h.handleDeleteCategory, h.auth())

	h.handle(mux, "GET /book", h.handleListBooks)
	h.handle(mux, "GET /book/suggestions", h.handleSuggestBooks)
	h.handle(mux, "GET /book/slug/{slug}", h.handleGetBookBySlug)

	h.handle(mux, "GET /admin/book", h.handleAdminListBooks, h.auth())
	h.handle(mux, "GET /admin/book/{id}", h.handleAdminGetBook, h.auth())
	h.handle(mux, "POST /admin/book", h.handleCreateBook, h.auth())
	h.handle(mux, "PATCH /admin/book/{id}", h.handleUpdateBook, h.auth())
	h.handle(mux, "DELETE /admin/book/{id}", h.handleDeleteBook, h.auth())
	h.handle(mux, "PATCH /admin/book/{id}/restore", h.handleRestoreBook, h.auth())

	h.handle(mux, "GET /stocks", h.handleListStocks, h.auth())
	h.handle(mux, "GET /stocks/{bookId}", h.handleGetStock, h.auth())
	h.handle(mux, "PUT /stocks/{bookId}", h.handleAdjustStock, h.auth())

	h.handle(mux, "POST /media", h.handleRegisterMedia, h.auth())
	h.handle(mux, "DELETE /media/{id}", h.handleRemoveMedia, h.auth())
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.svc.Catalog.CreateCategory(r.Context(), actorOf(r), req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, toCategory(c))
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Catalog.ListCategories(r.Context(), catalog.ListCategoriesInput{
		ListQuery: listQuery(r),
		Query:     strings.TrimSpace(r.URL.Query().Get("q")),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, pageOf(res, toCategory))
}

func (h *Handler) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Catalog.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toCategory(c))
}

type categoryPatchRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

func (h *Handler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.svc.Catalog.UpdateCategory(r.Context(), actorOf(r), r.PathValue("id"), catalog.UpdateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toCategory(c))
}

func (h *Handler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Catalog.DeleteCategory(r.Context(), actorOf(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "category deleted", nil)
}

func bookListInput(r *http.Request) (catalog.ListBooksInput, error) {
	q := r.URL.Query()
	in := catalog.ListBooksInput{
		Page:       queryInt(r, "page"),
		Limit:      queryInt(r, "limit"),
		CategoryID: q.Get("categoryId"),
		Query:      strings.TrimSpace(q.Get("q")),
		Sort:       q.Get("sortBy"),
	}
	var err error
	if in.MinPrice, err = queryInt64Ptr(r, "minPrice"); err != nil {
		return in, err
	}
	if in.MaxPrice, err = queryInt64Ptr(r, "maxPrice"); err != nil {
		return in, err
	}
	inStock, err := queryBoolPtr(r, "inStock")
	if err != nil {
		return in, err
	}
	in.InStock = inStock != nil && *inStock
	return in, nil
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	in, err := bookListInput(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Catalog.ListBooks(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, pageOf(res, toBook))
}

func (h *Handler) handleSuggestBooks(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Catalog.SuggestBooks(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]*bookSummaryDTO, 0, len(rows))
	for _, b := range rows {
		out = append(out, toBookSummary(b))
	}
	writeOK(w, out)
}

func (h *Handler) handleGetBookBySlug(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Catalog.GetBookBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toBook(b))
}

func (h *Handler) handleAdminListBooks(w http.ResponseWriter, r *http.Request) {
	base, err := bookListInput(r)
	if err != nil {
		writeError(w, err)
		return
	}
	in := catalog.AdminListBooksInput{ListBooksInput: base}
	status, err := queryIntPtr(r, "status")
	if err != nil {
		writeError(w, err)
		return
	}
	if status != nil {
		s := book.Status(*status)
		in.Status = &s
	}
	if in.IsDeleted, err = queryBoolPtr(r, "isDeleted"); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Catalog.AdminListBooks(r.Context(), actorOf(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, pageOf(res, toBook))
}

func (h *Handler) handleAdminGetBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Catalog.AdminGetBook(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toBook(b))
}

type bookDetailsRequest struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Subtitle    string     `json:"subtitle" validate:"max=255"`
	Description string     `json:"description"`
	Authors     []string   `json:"authors" validate:"required,min=1,dive,required"`
	Language    string     `json:"language" validate:"omitempty,max=10"`
	PublishDate *time.Time `json:"publishDate"`
	PageCount   int        `json:"pageCount" validate:"gte=0"`
	ISBN        string     `json:"isbn" validate:"omitempty,max=20"`
	Publisher   string     `json:"publisher" validate:"max=255"`
	Tags        []string   `json:"tags"`
}

type createBookRequest struct {
	bookDetailsRequest
	Slug            string   `json:"slug" validate:"omitempty,max=255"`
	CategoryIDs     []string `json:"categoryIds" validate:"required,min=1,dive,required"`
	BasePrice       int64    `json:"basePrice" validate:"gte=0"`
	Currency        string   `json:"currency" validate:"omitempty,len=3"`
	Status          *int     `json:"status" validate:"omitempty,oneof=0 1"`
	CoverMediaID    string   `json:"coverMediaId"`
	GalleryMediaIDs []string `json:"galleryMediaIds"`
	InitialQuantity int      `json:"initialQuantity" validate:"gte=0"`
	Location        string   `json:"location" validate:"max=100"`
}

func (h *Handler) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	in := catalog.CreateBookInput{
		Details: book.Details{
			Title:       req.Title,
			Subtitle:    req.Subtitle,
			Description: req.Description,
			Authors:     req.Authors,
			Language:    req.Language,
			PublishDate: req.PublishDate,
			PageCount:   req.PageCount,
			ISBN:        req.ISBN,
			Publisher:   req.Publisher,
			Tags:        req.Tags,
		},
		Slug:            req.Slug,
		CategoryIDs:     req.CategoryIDs,
		BasePrice:       req.BasePrice,
		Currency:        req.Currency,
		CoverMediaID:    req.CoverMediaID,
		GalleryMediaIDs: req.GalleryMediaIDs,
		InitialQuantity: req.InitialQuantity,
		Location:        req.Location,
	}
	if req.Status != nil {
		s := book.Status(*req.Status)
		in.Status = &s
	}
	b, err := h.svc.Catalog.CreateBook(r.Context(), actorOf(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, toBook(b))
}

type bookPatchRequest struct {
	Title           *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Slug            *string    `json:"slug" validate:"omitempty,min=1,max=255"`
	Subtitle        *string    `json:"subtitle" validate:"omitempty,max=255"`
	Description     *string    `json:"description"`
	Authors         []string   `json:"authors" validate:"omitempty,min=1,dive,required"`
	Language        *string    `json:"language" validate:"omitempty,max=10"`
	PublishDate     *time.Time `json:"publishDate"`
	PageCount       *int       `json:"pageCount" validate:"omitempty,gte=0"`
	ISBN            *string    `json:"isbn" validate:"omitempty,max=20"`
	Publisher       *string    `json:"publisher" validate:"omitempty,max=255"`
	Tags            []string   `json:"tags"`
	CategoryIDs     []string   `json:"categoryIds" validate:"omitempty,min=1,dive,required"`
	BasePrice       *int64     `json:"basePrice" validate:"omitempty,gte=0"`
	Status          *int       `json:"status" validate:"omitempty,oneof=0 1"`
	CoverMediaID    *string    `json:"coverMediaId"`
	GalleryMediaIDs []string   `json:"galleryMediaIds"`
}

func (h *Handler) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	var req bookPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	patch := book.Patch{
		Title:       req.Title,
		Slug:        req.Slug,
		Subtitle:    req.Subtitle,
		Description: req.Description,
		Authors:     req.Authors,
		Language:    req.Language,
		PublishDate: req.PublishDate,
		PageCount:   req.PageCount,
		ISBN:        req.ISBN,
		Publisher:   req.Publisher,
		Tags:        req.Tags,
		CategoryIDs: req.CategoryIDs,
		BasePrice:   req.BasePrice,
	}
	if req.Status != nil {
		s := book.Status(*req.Status)
		patch.Status = &s
	}
	b, err := h.svc.Catalog.UpdateBook(r.Context(), actorOf(r), r.PathValue("id"), catalog.UpdateBookInput{
		Patch:           patch,
		CoverMediaID:    req.CoverMediaID,
		GalleryMediaIDs: req.GalleryMediaIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toBook(b))
}

func (h *Handler) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Catalog.DeleteBook(r.Context(), actorOf(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "book deleted", nil)
}

func (h *Handler) handleRestoreBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Catalog.RestoreBook(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toBook(b))
}

func (h *Handler) handleListStocks(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Inventory.ListStocks(r.Context(), actorOf(r), listQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, pageOf(res, toStock))
}

func (h *Handler) handleGetStock(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Inventory.GetStock(r.Context(), actorOf(r), r.PathValue("bookId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toStock(s))
}

type adjustStockRequest struct {
	Quantity int   `json:"quantity" validate:"gte=0"`
	Price    int64 `json:"price" validate:"gte=0"`
}

func (h *Handler) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	s, err := h.svc.AdjustStock.Execute(r.Context(), inventory.AdjustStockCommand{
		Actor:    actorOf(r),
		BookID:   r.PathValue("bookId"),
		Quantity: req.Quantity,
		Price:    req.Price,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toStock(s))
}

type registerMediaRequest struct {
	URL          string `json:"url" validate:"required,url"`
	PublicID     string `json:"publicId" validate:"required"`
	Type         string `json:"type" validate:"omitempty,oneof=image video file"`
	Folder       string `json:"folder" validate:"omitempty,oneof=book banner account category other"`
	OriginalName string `json:"originalName" validate:"max=255"`
	MimeType     string `json:"mimeType" validate:"max=100"`
	Size         int64  `json:"size" validate:"gte=0"`
}

// handleRegisterMedia records an asset the client already uploaded to the CDN.
func (h *Handler) handleRegisterMedia(w http.ResponseWriter, r *http.Request) {
	var req registerMediaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	m, err := h.svc.Catalog.RegisterMedia(r.Context(), actorOf(r), catalog.RegisterMediaInput{
		URL:          req.URL,
		PublicID:     req.PublicID,
		Type:         media.Type(req.Type),
		Folder:       media.Folder(req.Folder),
		OriginalName: req.OriginalName,
		MimeType:     req.MimeType,
		Size:         req.Size,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, toMedia(m))
}

func (h *Handler) handleRemoveMedia(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Catalog.RemoveMedia(r.Context(), actorOf(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "media removed", nil)
}
