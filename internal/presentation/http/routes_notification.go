package httppresentation

import (
	"net/http"

	appnotification "github.com/Zhima-Mochi/readify/internal/application/notification"
	"github.com/Zhima-Mochi/readify/internal/domain/notification"
)

func (h *Handler) routeNotifications(mux *http.ServeMux) {
	h.handle(mux, "POST /notifications", h.handleCreateNotification, h.auth())
	h.handle(mux, "GET /notifications", h.handleListNotifications, h.auth())
	h.handle(mux, "GET /notifications/unread-count", h.handleUnreadCount, h.auth())
	h.handle(mux, "PATCH /notifications/mark-all-read", h.handleMarkAllRead, h.auth())
	h.handle(mux, "GET /notifications/{id}", h.handleGetNotification, h.auth())
	h.handle(mux, "PATCH /notifications/{id}", h.handleSetReadState, h.auth())
	h.handle(mux, "DELETE /notifications/{id}", h.handleDeleteNotification, h.auth())
}

type createNotificationRequest struct {
	UserID             string `json:"userId"`
	Title              string `json:"title" validate:"required,max=255"`
	Content            string `json:"content" validate:"required,max=2000"`
	Type               string `json:"type" validate:"omitempty,oneof=ORDER PROMOTION SYSTEM ACCOUNT OTHER"`
	RelatedOrderID     string `json:"relatedOrderId"`
	RelatedPromotionID string `json:"relatedPromotionId"`
}

func (h *Handler) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	n, err := h.svc.Notifications.CreateNotification(r.Context(), actorOf(r), appnotification.CreateInput{
		UserID:             req.UserID,
		Title:              req.Title,
		Content:            req.Content,
		Type:               notification.Type(req.Type),
		RelatedOrderID:     req.RelatedOrderID,
		RelatedPromotionID: req.RelatedPromotionID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, toNotification(n))
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	isRead, err := queryBoolPtr(r, "isRead")
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Notifications.ListNotifications(r.Context(), actorOf(r), appnotification.ListInput{
		ListQuery: listQuery(r),
		Type:      notification.Type(r.URL.Query().Get("type")),
		IsRead:    isRead,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, pageOf(res, toNotificationView))
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Notifications.UnreadCount(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, countDTO{Count: n})
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Notifications.MarkAllAsRead(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]int64{"modifiedCount": n})
}

func (h *Handler) handleGetNotification(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Notifications.GetNotification(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toNotificationView(v))
}

type readStateRequest struct {
	IsRead *bool `json:"isRead" validate:"required"`
}

func (h *Handler) handleSetReadState(w http.ResponseWriter, r *http.Request) {
	var req readStateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := h.svc.Notifications.SetReadState(r.Context(), actorOf(r), r.PathValue("id"), *req.IsRead)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toNotificationView(v))
}

func (h *Handler) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Notifications.DeleteNotification(r.Context(), actorOf(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "notification deleted", nil)
}
