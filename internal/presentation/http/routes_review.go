package httppresentation

import (
	"net/http"

	appreview "github.com/Zhima-Mochi/readify/internal/application/review"
	"github.com/Zhima-Mochi/readify/internal/domain/review"
)

func (h *Handler) routeReviews(mux *http.ServeMux) {
	h.handle(mux, "POST /reviews", h.handleCreateReview, h.auth())
	h.handle(mux, "GET /reviews", h.handleListReviews, h.maybeAuth())
	h.handle(mux, "GET /reviews/book/{bookId}", h.handleListBookReviews)
	h.handle(mux, "GET /reviews/book/{bookId}/summary", h.handleRatingSummary)
	h.handle(mux, "GET /reviews/{id}", h.handleGetReview, h.maybeAuth())
	h.handle(mux, "PATCH /reviews/{id}/helpful", h.handleMarkHelpful, h.auth())
	h.handle(mux, "PATCH /reviews/{id}", h.handleUpdateReview, h.auth())
	h.handle(mux, "DELETE /reviews/{id}", h.handleDeleteReview, h.auth())
}

type createReviewRequest struct {
	BookID  string `json:"bookId" validate:"required"`
	OrderID string `json:"orderId" validate:"required"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

func (h *Handler) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	rv, err := h.svc.Reviews.CreateReview(r.Context(), actorOf(r), appreview.CreateInput{
		BookID:  req.BookID,
		OrderID: req.OrderID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, toReview(rv))
}

func (h *Handler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.svc.Reviews.ListReviews(r.Context(), actorOf(r), appreview.ListInput{
		ListQuery: listQuery(r),
		BookID:    q.Get("bookId"),
		UserID:    q.Get("userId"),
		Rating:    queryInt(r, "rating"),
		Status:    review.Status(q.Get("status")),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, pageOf(res, toReview))
}

func (h *Handler) handleListBookReviews(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Reviews.ListBookReviews(r.Context(), r.PathValue("bookId"), listQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, pageOf(res, toReview))
}

func (h *Handler) handleRatingSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Reviews.BookRatingSummary(r.Context(), r.PathValue("bookId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toRatingSummary(s))
}

func (h *Handler) handleGetReview(w http.ResponseWriter, r *http.Request) {
	rv, err := h.svc.Reviews.GetReview(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toReview(rv))
}

type reviewPatchRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
	Status  *string `json:"status" validate:"omitempty,oneof=PENDING APPROVED REJECTED"`
}

func (h *Handler) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	in := appreview.UpdateInput{Rating: req.Rating, Comment: req.Comment}
	if req.Status != nil {
		s := review.Status(*req.Status)
		in.Status = &s
	}
	rv, err := h.svc.Reviews.UpdateReview(r.Context(), actorOf(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toReview(rv))
}

func (h *Handler) handleMarkHelpful(w http.ResponseWriter, r *http.Request) {
	rv, err := h.svc.Reviews.MarkHelpful(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toReview(rv))
}

func (h *Handler) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reviews.DeleteReview(r.Context(), actorOf(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "review deleted", nil)
}
