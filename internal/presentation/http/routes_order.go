package httppresentation

import (
	"net/http"
	"net/url"
	"strings"

	apporder "github.com/Zhima-Mochi/readify/internal/application/order"
	apppayment "github.com/Zhima-Mochi/readify/internal/application/payment"
	"github.com/Zhima-Mochi/readify/internal/domain/order"
	"github.com/Zhima-Mochi/readify/internal/domain/payment"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/observability/logctx"
)

func (h *Handler) routeOrders(mux *http.ServeMux) {
	h.handle(mux, "POST /orders", h.handleCreateOrder, h.auth())
	h.handle(mux, "GET /orders", h.handleOrderHistory, h.auth())
	h.handle(mux, "GET /orders/admin", h.handleListOrders, h.auth())
	h.handle(mux, "GET /orders/{id}", h.handleGetOrder, h.auth())
	h.handle(mux, "PATCH /orders/{id}", h.handleUpdateOrder, h.auth())
	h.handle(mux, "PATCH /orders/{id}/cancel", h.handleCancelOrder, h.auth())
	h.handle(mux, "POST /orders/{id}/payment-url", h.handleCreatePaymentURL, h.auth())

	h.handle(mux, "GET /payment/vnpay/return", h.handlePaymentReturn)
	h.handle(mux, "GET /payment/vnpay/ipn", h.handlePaymentIPN)
	h.handle(mux, "POST /payment/vnpay/ipn", h.handlePaymentIPN)
}

type createOrderRequest struct {
	SelectedCartItemIDs []string `json:"selectedCartItemIds" validate:"required,min=1,dive,required"`
	ShippingAddress     string   `json:"shippingAddress" validate:"required,max=500"`
	PaymentMethod       string   `json:"paymentMethod" validate:"required,oneof=COD VNPAY"`
	Note                string   `json:"note" validate:"max=500"`
	PromotionCode       string   `json:"promotionCode" validate:"max=50"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.CreateOrder.Execute(r.Context(), apporder.CreateOrderCommand{
		Actor:               actorOf(r),
		SelectedCartItemIDs: req.SelectedCartItemIDs,
		ShippingAddress:     req.ShippingAddress,
		PaymentMethod:       order.PaymentMethod(req.PaymentMethod),
		Note:                req.Note,
		PromotionCode:       req.PromotionCode,
		ClientIP:            clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "order created", createdOrderDTO{Order: toOrder(res.Order), PaymentURL: res.PaymentURL})
}

func orderFilter(r *http.Request) apporder.ListFilter {
	q := r.URL.Query()
	return apporder.ListFilter{
		ListQuery:     listQuery(r),
		Status:        order.Status(q.Get("status")),
		PaymentMethod: order.PaymentMethod(q.Get("paymentMethod")),
		PaymentStatus: order.PaymentStatus(q.Get("paymentStatus")),
		Search:        strings.TrimSpace(q.Get("q")),
	}
}

func (h *Handler) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Orders.OrderHistory(r.Context(), actorOf(r), orderFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, pageOf(res, toOrder))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Orders.ListOrders(r.Context(), actorOf(r), orderFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, pageOf(res, toOrder))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Orders.GetOrder(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toOrder(o))
}

type updateOrderRequest struct {
	ShippingAddress *string `json:"shippingAddress" validate:"omitempty,min=1,max=500"`
	Status          *string `json:"status" validate:"omitempty,oneof=PENDING CONFIRMED DELIVERED COMPLETED CANCELLED"`
}

func (h *Handler) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	in := apporder.UpdateOrderInput{ShippingAddress: req.ShippingAddress}
	if req.Status != nil {
		s := order.Status(*req.Status)
		in.Status = &s
	}
	o, err := h.svc.Orders.UpdateOrder(r.Context(), actorOf(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toOrder(o))
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Orders.CancelOrder(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "order cancelled", toOrder(o))
}

func (h *Handler) handleCreatePaymentURL(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Payments.CreatePaymentURL(r.Context(), actorOf(r), r.PathValue("id"), clientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]string{"paymentUrl": u})
}

func callbackParams(r *http.Request) map[string]string {
	q := r.URL.Query()
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err == nil {
			q = r.Form
		}
	}
	out := make(map[string]string, len(q))
	for k := range q {
		out[k] = q.Get(k)
	}
	return out
}

// handlePaymentReturn applies the browser redirect from the gateway and sends the shopper
// back to the storefront result page.
func (h *Handler) handlePaymentReturn(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Payments.HandleCallback(r.Context(), callbackParams(r))
	outcome := "success"
	if err != nil || res.Outcome == payment.OutcomeFailed {
		outcome = "failed"
		logctx.FromOr(r.Context(), h.log).Warn("payment_return_failed",
			observability.F("order_id", res.OrderID),
			observability.F("error", errString(err)),
		)
	}
	target := strings.TrimRight(h.cfg.FrontendURL, "/") + "/payment/" + outcome
	if res.OrderID != "" {
		target += "?orderId=" + url.QueryEscape(res.OrderID)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

type ipnResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// handlePaymentIPN always answers 200; the outcome travels in RspCode.
func (h *Handler) handlePaymentIPN(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Payments.HandleCallback(r.Context(), callbackParams(r))
	code, msg := apppayment.IPNResponse(err)
	if code != apppayment.RspSuccess {
		logctx.FromOr(r.Context(), h.log).Warn("payment_ipn_rejected",
			observability.F("order_id", res.OrderID),
			observability.F("rsp_code", code),
			observability.F("error", errString(err)),
		)
	}
	writeJSON(w, http.StatusOK, ipnResponse{RspCode: code, Message: msg})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
