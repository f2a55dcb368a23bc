package httppresentation

import (
	"net/http"
	"strings"
	"time"

	apppromotion "github.com/Zhima-Mochi/readify/internal/application/promotion"
	"github.com/Zhima-Mochi/readify/internal/domain/promotion"
)

func (h *Handler) routePromotions(mux *http.ServeMux) {
	h.handle(mux, "GET /promotions", h.handleListPromotions, h.auth())
	h.handle(mux, "GET /promotions/{id}", h.handleGetPromotion, h.auth())
	h.handle(mux, "POST /promotions", h.handleCreatePromotion, h.auth())
	h.handle(mux, "PATCH /promotions/{id}", h.handleUpdatePromotion, h.auth())
	h.handle(mux, "DELETE /promotions/{id}", h.handleDeletePromotion, h.auth())
	h.handle(mux, "POST /promotions/apply", h.handleApplyPromotion, h.auth())

	h.handle(mux, "GET /promotion-logs", h.handleListPromotionLogs, h.auth())
	h.handle(mux, "GET /promotion-logs/{id}", h.handleGetPromotionLog, h.auth())
}

func requestMeta(r *http.Request) promotion.RequestMeta {
	return promotion.RequestMeta{IPAddress: clientIP(r), UserAgent: r.UserAgent()}
}

func (h *Handler) handleListPromotions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.svc.Promotions.ListPromotions(r.Context(), actorOf(r), apppromotion.ListInput{
		ListQuery:    listQuery(r),
		Query:        strings.TrimSpace(q.Get("q")),
		Status:       promotion.Status(q.Get("status")),
		DiscountType: promotion.DiscountType(q.Get("discountType")),
		ApplyScope:   q.Get("applyScope"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, pageOf(res, toPromotion))
}

func (h *Handler) handleGetPromotion(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Promotions.GetPromotion(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toPromotion(p))
}

type createPromotionRequest struct {
	Code          string    `json:"code" validate:"required,min=3,max=50"`
	Name          string    `json:"name" validate:"required,max=255"`
	Description   string    `json:"description" validate:"max=1000"`
	DiscountType  string    `json:"discountType" validate:"required,oneof=PERCENT FIXED"`
	DiscountValue int64     `json:"discountValue" validate:"gte=0"`
	MinOrderValue int64     `json:"minOrderValue" validate:"gte=0"`
	MaxDiscount   int64     `json:"maxDiscount" validate:"gte=0"`
	StartDate     time.Time `json:"startDate" validate:"required"`
	EndDate       time.Time `json:"endDate" validate:"required"`
	UsageLimit    int64     `json:"usageLimit" validate:"gte=0"`
	Status        string    `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE EXPIRED"`
}

func (h *Handler) handleCreatePromotion(w http.ResponseWriter, r *http.Request) {
	var req createPromotionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.svc.Promotions.CreatePromotion(r.Context(), actorOf(r), apppromotion.CreateInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Terms: promotion.Terms{
			DiscountType:  promotion.DiscountType(req.DiscountType),
			DiscountValue: req.DiscountValue,
			MinOrderValue: req.MinOrderValue,
			MaxDiscount:   req.MaxDiscount,
		},
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		UsageLimit: req.UsageLimit,
		Status:     promotion.Status(req.Status),
		Meta:       requestMeta(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, toPromotion(p))
}

type promotionPatchRequest struct {
	Code          *string    `json:"code" validate:"omitempty,min=3,max=50"`
	Name          *string    `json:"name" validate:"omitempty,min=1,max=255"`
	Description   *string    `json:"description" validate:"omitempty,max=1000"`
	DiscountType  *string    `json:"discountType" validate:"omitempty,oneof=PERCENT FIXED"`
	DiscountValue *int64     `json:"discountValue" validate:"omitempty,gte=0"`
	MinOrderValue *int64     `json:"minOrderValue" validate:"omitempty,gte=0"`
	MaxDiscount   *int64     `json:"maxDiscount" validate:"omitempty,gte=0"`
	StartDate     *time.Time `json:"startDate"`
	EndDate       *time.Time `json:"endDate"`
	UsageLimit    *int64     `json:"usageLimit" validate:"omitempty,gte=0"`
	Status        *string    `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE EXPIRED"`
}

func (req promotionPatchRequest) patch() promotion.Patch {
	p := promotion.Patch{
		Code:          req.Code,
		Name:          req.Name,
		Description:   req.Description,
		DiscountValue: req.DiscountValue,
		MinOrderValue: req.MinOrderValue,
		MaxDiscount:   req.MaxDiscount,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		UsageLimit:    req.UsageLimit,
	}
	if req.DiscountType != nil {
		t := promotion.DiscountType(*req.DiscountType)
		p.DiscountType = &t
	}
	if req.Status != nil {
		s := promotion.Status(*req.Status)
		p.Status = &s
	}
	return p
}

func (h *Handler) handleUpdatePromotion(w http.ResponseWriter, r *http.Request) {
	var req promotionPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.svc.Promotions.UpdatePromotion(r.Context(), actorOf(r), r.PathValue("id"), req.patch(), requestMeta(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toPromotion(p))
}

func (h *Handler) handleDeletePromotion(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Promotions.DeletePromotion(r.Context(), actorOf(r), r.PathValue("id"), requestMeta(r)); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "promotion deleted", nil)
}

type applyPromotionRequest struct {
	Code       string `json:"code" validate:"required"`
	OrderValue int64  `json:"orderValue" validate:"gt=0"`
}

func (h *Handler) handleApplyPromotion(w http.ResponseWriter, r *http.Request) {
	var req applyPromotionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.svc.Promotions.ApplyPromotion(r.Context(), actorOf(r), req.Code, req.OrderValue)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toPreview(p))
}

func (h *Handler) handleListPromotionLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := apppromotion.LogListInput{
		ListQuery:     listQuery(r),
		Search:        strings.TrimSpace(q.Get("search")),
		PromotionID:   q.Get("promotionId"),
		PromotionCode: q.Get("promotionCode"),
		Action:        promotion.Action(q.Get("action")),
		PerformedBy:   q.Get("performedBy"),
	}
	var err error
	if in.From, err = queryTimePtr(r, "from"); err != nil {
		writeError(w, err)
		return
	}
	if in.To, err = queryTimePtr(r, "to"); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Promotions.ListPromotionLogs(r.Context(), actorOf(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, pageOf(res, toPromotionLog))
}

func (h *Handler) handleGetPromotionLog(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Promotions.GetPromotionLog(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toPromotionLog(l))
}
