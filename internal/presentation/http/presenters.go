package httppresentation

import (
	"time"

	appaccount "github.com/Zhima-Mochi/readify/internal/application/account"
	appcart "github.com/Zhima-Mochi/readify/internal/application/cart"
	apppromotion "github.com/Zhima-Mochi/readify/internal/application/promotion"
	appwishlist "github.com/Zhima-Mochi/readify/internal/application/wishlist"
	"github.com/Zhima-Mochi/readify/internal/domain/account"
	"github.com/Zhima-Mochi/readify/internal/domain/book"
	"github.com/Zhima-Mochi/readify/internal/domain/cart"
	"github.com/Zhima-Mochi/readify/internal/domain/category"
	"github.com/Zhima-Mochi/readify/internal/domain/inventory"
	"github.com/Zhima-Mochi/readify/internal/domain/media"
	"github.com/Zhima-Mochi/readify/internal/domain/notification"
	"github.com/Zhima-Mochi/readify/internal/domain/order"
	"github.com/Zhima-Mochi/readify/internal/domain/promotion"
	"github.com/Zhima-Mochi/readify/internal/domain/review"
	"github.com/Zhima-Mochi/readify/internal/domain/wishlist"
)

// Response shapes. Domain types carry no JSON tags, so everything leaving the API goes through here.

type accountDTO struct {
	ID          string     `json:"_id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Phone       string     `json:"phone,omitempty"`
	AvatarURL   string     `json:"avatarUrl,omitempty"`
	Address     string     `json:"address,omitempty"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Sex         int        `json:"sex"`
	Role        int        `json:"role"`
	Status      int        `json:"status"`
	IsDeleted   bool       `json:"isDeleted"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toAccount(a *account.Account) accountDTO {
	return accountDTO{
		ID:          a.ID,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Phone:       a.Phone,
		AvatarURL:   a.AvatarURL,
		Address:     a.Address,
		DateOfBirth: a.DateOfBirth,
		Sex:         int(a.Sex),
		Role:        int(a.Role),
		Status:      int(a.Status),
		IsDeleted:   a.IsDeleted,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

type loginDTO struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	Account      accountDTO `json:"account"`
}

type tokenDTO struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func toLogin(res *appaccount.LoginResult) loginDTO {
	return loginDTO{AccessToken: res.AccessToken.Value, RefreshToken: res.RefreshToken.Value, Account: toAccount(res.Account)}
}

type categoryDTO struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsDeleted   bool      `json:"isDeleted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toCategory(c *category.Category) categoryDTO {
	return categoryDTO{ID: c.ID, Name: c.Name, Description: c.Description, IsDeleted: c.IsDeleted, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

type imageDTO struct {
	Kind    string `json:"kind"`
	MediaID string `json:"mediaId"`
	URL     string `json:"url"`
}

type bookDTO struct {
	ID           string     `json:"_id"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	Subtitle     string     `json:"subtitle,omitempty"`
	Description  string     `json:"description,omitempty"`
	Authors      []string   `json:"authors"`
	Language     string     `json:"language,omitempty"`
	PublishDate  *time.Time `json:"publishDate,omitempty"`
	PageCount    int        `json:"pageCount,omitempty"`
	ISBN         string     `json:"isbn,omitempty"`
	Publisher    string     `json:"publisher,omitempty"`
	CategoryIDs  []string   `json:"categoryIds"`
	Images       []imageDTO `json:"images"`
	BasePrice    int64      `json:"basePrice"`
	Currency     string     `json:"currency"`
	ThumbnailURL string     `json:"thumbnailUrl"`
	Status       int        `json:"status"`
	Tags         []string   `json:"tags"`
	SoldCount    int64      `json:"soldCount"`
	RatingAvg    float64    `json:"ratingAvg"`
	RatingCount  int64      `json:"ratingCount"`
	IsDeleted    bool       `json:"isDeleted"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func toBook(b *book.Book) bookDTO {
	images := make([]imageDTO, 0, len(b.Images))
	for _, img := range b.Images {
		images = append(images, imageDTO{Kind: string(img.Kind), MediaID: img.MediaID, URL: img.URL})
	}
	return bookDTO{
		ID:           b.ID,
		Title:        b.Title,
		Slug:         b.Slug,
		Subtitle:     b.Subtitle,
		Description:  b.Description,
		Authors:      nonNil(b.Authors),
		Language:     b.Language,
		PublishDate:  b.PublishDate,
		PageCount:    b.PageCount,
		ISBN:         b.ISBN,
		Publisher:    b.Publisher,
		CategoryIDs:  nonNil(b.CategoryIDs),
		Images:       images,
		BasePrice:    b.BasePrice,
		Currency:     b.Currency,
		ThumbnailURL: b.ThumbnailURL,
		Status:       int(b.Status),
		Tags:         nonNil(b.Tags),
		SoldCount:    b.SoldCount,
		RatingAvg:    b.RatingAvg,
		RatingCount:  b.RatingCount,
		IsDeleted:    b.IsDeleted,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

type bookSummaryDTO struct {
	ID           string `json:"_id"`
	Title        string `json:"title"`
	Slug         string `json:"slug"`
	ThumbnailURL string `json:"thumbnailUrl"`
	BasePrice    int64  `json:"basePrice"`
}

func toBookSummary(b *book.Book) *bookSummaryDTO {
	if b == nil {
		return nil
	}
	return &bookSummaryDTO{ID: b.ID, Title: b.Title, Slug: b.Slug, ThumbnailURL: b.ThumbnailURL, BasePrice: b.BasePrice}
}

type stockDTO struct {
	ID        string    `json:"_id"`
	BookID    string    `json:"bookId"`
	Quantity  int       `json:"quantity"`
	Price     int64     `json:"price"`
	Location  string    `json:"location,omitempty"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toStock(s *inventory.Stock) stockDTO {
	return stockDTO{ID: s.ID, BookID: s.BookID, Quantity: s.Quantity, Price: s.Price, Location: s.Location, Status: string(s.Status), UpdatedAt: s.UpdatedAt}
}

type mediaDTO struct {
	ID           string    `json:"_id"`
	URL          string    `json:"url"`
	PublicID     string    `json:"publicId"`
	Type         string    `json:"type"`
	Size         int64     `json:"size"`
	Status       string    `json:"status"`
	UploadedBy   string    `json:"uploadedBy"`
	Folder       string    `json:"folder"`
	AttachedTo   string    `json:"attachedTo,omitempty"`
	OriginalName string    `json:"originalName,omitempty"`
	MimeType     string    `json:"mimeType,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toMedia(m *media.Media) mediaDTO {
	dto := mediaDTO{
		ID:           m.ID,
		URL:          m.URL,
		PublicID:     m.PublicID,
		Type:         string(m.Type),
		Size:         m.Size,
		Status:       string(m.Status),
		UploadedBy:   m.UploadedBy,
		Folder:       string(m.Folder),
		OriginalName: m.OriginalName,
		MimeType:     m.MimeType,
		CreatedAt:    m.CreatedAt,
	}
	if m.AttachedTo != nil {
		dto.AttachedTo = m.AttachedTo.Model + ":" + m.AttachedTo.ID
	}
	return dto
}

type cartItemDTO struct {
	ID         string    `json:"_id"`
	BookID     string    `json:"bookId"`
	Quantity   int       `json:"quantity"`
	IsSelected bool      `json:"isSelected"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toCartItem(it *cart.Item) cartItemDTO {
	return cartItemDTO{ID: it.ID, BookID: it.BookID, Quantity: it.Quantity, IsSelected: it.IsSelected, CreatedAt: it.CreatedAt}
}

type cartLineDTO struct {
	cartItemDTO
	Book      *bookSummaryDTO `json:"book"`
	UnitPrice int64           `json:"unitPrice"`
	Subtotal  int64           `json:"subtotal"`
	InStock   int             `json:"inStock"`
	Available bool            `json:"available"`
	Clamped   bool            `json:"clamped,omitempty"`
}

func toCartLine(l appcart.Line) cartLineDTO {
	return cartLineDTO{
		cartItemDTO: toCartItem(l.Item),
		Book:        toBookSummary(l.Book),
		UnitPrice:   l.UnitPrice,
		Subtotal:    l.Subtotal(),
		InStock:     l.InStock,
		Available:   l.Available,
		Clamped:     l.Clamped,
	}
}

type cartDTO struct {
	Items      []cartLineDTO `json:"items"`
	TotalItems int           `json:"totalItems"`
	TotalPrice int64         `json:"totalPrice"`
}

func toCart(lines []appcart.Line) cartDTO {
	out := cartDTO{Items: make([]cartLineDTO, 0, len(lines))}
	for _, l := range lines {
		out.Items = append(out.Items, toCartLine(l))
		out.TotalItems += l.Item.Quantity
		if l.Available {
			out.TotalPrice += l.Subtotal()
		}
	}
	return out
}

type wishlistDTO struct {
	ID        string          `json:"_id"`
	BookID    string          `json:"bookId"`
	Book      *bookSummaryDTO `json:"book,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toWishlistItem(it *wishlist.Item) wishlistDTO {
	return wishlistDTO{ID: it.ID, BookID: it.BookID, CreatedAt: it.CreatedAt}
}

func toWishlistEntry(e appwishlist.Entry) wishlistDTO {
	dto := toWishlistItem(e.Item)
	dto.Book = toBookSummary(e.Book)
	return dto
}

type bulkMoveDTO struct {
	Success []string        `json:"success"`
	Failed  []bulkFailedDTO `json:"failed"`
}

type bulkFailedDTO struct {
	BookID string `json:"bookId"`
	Reason string `json:"reason"`
}

func toBulkMove(r appwishlist.BulkMoveResult) bulkMoveDTO {
	out := bulkMoveDTO{Success: nonNil(r.Success), Failed: make([]bulkFailedDTO, 0, len(r.Failed))}
	for _, f := range r.Failed {
		out.Failed = append(out.Failed, bulkFailedDTO{BookID: f.BookID, Reason: f.Reason})
	}
	return out
}

type orderLineDTO struct {
	BookID    string `json:"bookId"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	Subtotal  int64  `json:"subtotal"`
}

type orderPromotionDTO struct {
	PromotionID    string `json:"promotionId"`
	Code           string `json:"code"`
	DiscountAmount int64  `json:"discountAmount"`
}

type orderDTO struct {
	ID              string             `json:"_id"`
	OrderCode       string             `json:"orderCode"`
	UserID          string             `json:"userId"`
	Items           []orderLineDTO     `json:"items"`
	ShippingAddress string             `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	PaymentStatus   string             `json:"paymentStatus"`
	Status          string             `json:"status"`
	TotalAmount     int64              `json:"totalAmount"`
	DiscountAmount  int64              `json:"discountAmount"`
	FinalAmount     int64              `json:"finalAmount"`
	Promotion       *orderPromotionDTO `json:"promotion,omitempty"`
	Note            string             `json:"note,omitempty"`
	TransactionID   string             `json:"transactionId,omitempty"`
	VNPayOrderID    string             `json:"vnpayOrderId,omitempty"`
	BankCode        string             `json:"bankCode,omitempty"`
	PayDate         *time.Time         `json:"payDate,omitempty"`
	CancelledAt     *time.Time         `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func toOrder(o *order.Order) orderDTO {
	lines := make([]orderLineDTO, 0, len(o.Items))
	for _, l := range o.Items {
		lines = append(lines, orderLineDTO{BookID: l.BookID, Title: l.Title, Quantity: l.Quantity, UnitPrice: l.UnitPrice, Subtotal: l.Subtotal})
	}
	dto := orderDTO{
		ID:              o.ID,
		OrderCode:       o.Code,
		UserID:          o.UserID,
		Items:           lines,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   string(o.PaymentMethod),
		PaymentStatus:   string(o.PaymentStatus),
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount,
		DiscountAmount:  o.DiscountAmount,
		FinalAmount:     o.FinalAmount,
		Note:            o.Note,
		TransactionID:   o.Payment.TransactionNo,
		VNPayOrderID:    o.Payment.GatewayOrderID,
		BankCode:        o.Payment.BankCode,
		PayDate:         o.Payment.PaidAt,
		CancelledAt:     o.CancelledAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.Promotion != nil {
		dto.Promotion = &orderPromotionDTO{PromotionID: o.Promotion.PromotionID, Code: o.Promotion.Code, DiscountAmount: o.Promotion.DiscountAmount}
	}
	return dto
}

type createdOrderDTO struct {
	Order      orderDTO `json:"order"`
	PaymentURL string   `json:"paymentUrl,omitempty"`
}

type promotionDTO struct {
	ID            string    `json:"_id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	DiscountType  string    `json:"discountType"`
	DiscountValue int64     `json:"discountValue"`
	MinOrderValue int64     `json:"minOrderValue"`
	MaxDiscount   int64     `json:"maxDiscount"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	UsageLimit    int64     `json:"usageLimit"`
	UsedCount     int64     `json:"usedCount"`
	Status        string    `json:"status"`
	ApplyScope    string    `json:"applyScope"`
	CreatedBy     string    `json:"createdBy"`
	UpdatedBy     string    `json:"updatedBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toPromotion(p *promotion.Promotion) promotionDTO {
	return promotionDTO{
		ID:            p.ID,
		Code:          p.Code,
		Name:          p.Name,
		Description:   p.Description,
		DiscountType:  string(p.DiscountType),
		DiscountValue: p.DiscountValue,
		MinOrderValue: p.MinOrderValue,
		MaxDiscount:   p.MaxDiscount,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		UsageLimit:    p.UsageLimit,
		UsedCount:     p.UsedCount,
		Status:        string(p.Status),
		ApplyScope:    p.ApplyScope,
		CreatedBy:     p.CreatedBy,
		UpdatedBy:     p.UpdatedBy,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type previewDTO struct {
	PromotionCode  string `json:"promotionCode"`
	PromotionName  string `json:"promotionName"`
	DiscountType   string `json:"discountType"`
	DiscountValue  int64  `json:"discountValue"`
	OrderValue     int64  `json:"orderValue"`
	DiscountAmount int64  `json:"discountAmount"`
	FinalAmount    int64  `json:"finalAmount"`
	SavedAmount    int64  `json:"savedAmount"`
}

func toPreview(p apppromotion.Preview) previewDTO {
	return previewDTO{
		PromotionCode:  p.PromotionCode,
		PromotionName:  p.PromotionName,
		DiscountType:   string(p.DiscountType),
		DiscountValue:  p.DiscountValue,
		OrderValue:     p.OrderValue,
		DiscountAmount: p.DiscountAmount,
		FinalAmount:    p.FinalAmount,
		SavedAmount:    p.SavedAmount,
	}
}

type changeDTO struct {
	From any `json:"from"`
	To   any `json:"to"`
}

type promotionLogDTO struct {
	ID            string               `json:"_id"`
	PromotionID   string               `json:"promotionId"`
	PromotionCode string               `json:"promotionCode"`
	PromotionName string               `json:"promotionName"`
	Action        string               `json:"action"`
	PerformedBy   string               `json:"performedBy"`
	OldData       map[string]any       `json:"oldData,omitempty"`
	NewData       map[string]any       `json:"newData,omitempty"`
	Changes       map[string]changeDTO `json:"changes,omitempty"`
	Note          string               `json:"note,omitempty"`
	IPAddress     string               `json:"ipAddress,omitempty"`
	UserAgent     string               `json:"userAgent,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
}

func toPromotionLog(l *promotion.Log) promotionLogDTO {
	dto := promotionLogDTO{
		ID:            l.ID,
		PromotionID:   l.PromotionID,
		PromotionCode: l.PromotionCode,
		PromotionName: l.PromotionName,
		Action:        string(l.Action),
		PerformedBy:   l.PerformedBy,
		OldData:       l.OldData,
		NewData:       l.NewData,
		Note:          l.Note,
		IPAddress:     l.IPAddress,
		UserAgent:     l.UserAgent,
		CreatedAt:     l.CreatedAt,
	}
	if len(l.Changes) > 0 {
		dto.Changes = make(map[string]changeDTO, len(l.Changes))
		for k, c := range l.Changes {
			dto.Changes[k] = changeDTO{From: c.From, To: c.To}
		}
	}
	return dto
}

type notificationDTO struct {
	ID                 string     `json:"_id"`
	UserID             string     `json:"userId,omitempty"`
	Title              string     `json:"title"`
	Content            string     `json:"content"`
	Type               string     `json:"type"`
	RelatedOrderID     string     `json:"relatedOrderId,omitempty"`
	RelatedPromotionID string     `json:"relatedPromotionId,omitempty"`
	IsActive           bool       `json:"isActive"`
	IsRead             bool       `json:"isRead"`
	ReadAt             *time.Time `json:"readAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

func toNotification(n *notification.Notification) notificationDTO {
	return notificationDTO{
		ID:                 n.ID,
		UserID:             n.UserID,
		Title:              n.Title,
		Content:            n.Content,
		Type:               string(n.Type),
		RelatedOrderID:     n.RelatedOrderID,
		RelatedPromotionID: n.RelatedPromotionID,
		IsActive:           n.IsActive,
		CreatedAt:          n.CreatedAt,
	}
}

func toNotificationView(v notification.View) notificationDTO {
	dto := toNotification(v.Notification)
	dto.IsRead = v.IsRead
	dto.ReadAt = v.ReadAt
	return dto
}

type reviewDTO struct {
	ID           string    `json:"_id"`
	UserID       string    `json:"userId"`
	BookID       string    `json:"bookId"`
	OrderID      string    `json:"orderId,omitempty"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	Status       string    `json:"status"`
	HelpfulCount int64     `json:"helpfulCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toReview(r *review.Review) reviewDTO {
	return reviewDTO{
		ID:           r.ID,
		UserID:       r.UserID,
		BookID:       r.BookID,
		OrderID:      r.OrderID,
		Rating:       r.Rating,
		Comment:      r.Comment,
		Status:       string(r.Status),
		HelpfulCount: r.HelpfulCount,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type ratingSummaryDTO struct {
	BookID             string           `json:"bookId"`
	RatingAvg          float64          `json:"ratingAvg"`
	RatingCount        int64            `json:"ratingCount"`
	RatingDistribution map[string]int64 `json:"ratingDistribution"`
}

func toRatingSummary(s review.Summary) ratingSummaryDTO {
	dist := make(map[string]int64, 5)
	for star := 1; star <= 5; star++ {
		dist[string(rune('0'+star))] = s.Distribution[star]
	}
	return ratingSummaryDTO{BookID: s.BookID, RatingAvg: s.Average, RatingCount: s.Count, RatingDistribution: dist}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
