package httppresentation

import (
	"net/http"
)

func (h *Handler) routeCart(mux *http.ServeMux) {
	h.handle(mux, "POST /cart", h.handleAddToCart, h.auth())
	h.handle(mux, "GET /cart", h.handleGetCart, h.auth())
	h.handle(mux, "PUT /cart", h.handleUpdateCartQuantity, h.auth())
	h.handle(mux, "DELETE /cart", h.handleClearCart, h.auth())
	h.handle(mux, "GET /cart/count", h.handleCountCart, h.auth())
	h.handle(mux, "GET /cart/selected", h.handleSelectedCartItems, h.auth())
	h.handle(mux, "GET /cart/item/{bookId}", h.handleGetCartItem, h.auth())
	h.handle(mux, "DELETE /cart/{bookId}", h.handleRemoveFromCart, h.auth())
	h.handle(mux, "PATCH /cart/toggle-select/{bookId}", h.handleToggleSelect, h.auth())
	h.handle(mux, "PATCH /cart/update-selection", h.handleUpdateSelection, h.auth())
	h.handle(mux, "PATCH /cart/select-all", h.handleSelectAll, h.auth())
	h.handle(mux, "PATCH /cart/deselect-all", h.handleDeselectAll, h.auth())

	h.handle(mux, "POST /wishlist", h.handleAddToWishlist, h.auth())
	h.handle(mux, "GET /wishlist", h.handleGetWishlist, h.auth())
	h.handle(mux, "DELETE /wishlist", h.handleClearWishlist, h.auth())
	h.handle(mux, "GET /wishlist/count", h.handleCountWishlist, h.auth())
	h.handle(mux, "GET /wishlist/check/{bookId}", h.handleCheckWishlist, h.auth())
	h.handle(mux, "DELETE /wishlist/{bookId}", h.handleRemoveFromWishlist, h.auth())
	h.handle(mux, "POST /wishlist/move-to-cart/{bookId}", h.handleMoveToCart, h.auth())
	h.handle(mux, "POST /wishlist/bulk-move-to-cart", h.handleBulkMoveToCart, h.auth())
	h.handle(mux, "POST /wishlist/bulk-remove", h.handleBulkRemove, h.auth())
}

type cartItemRequest struct {
	BookID   string `json:"bookId" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type countDTO struct {
	Count int64 `json:"count"`
}

func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	it, err := h.svc.Cart.AddToCart(r.Context(), actorOf(r), req.BookID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "added to cart", toCartItem(it))
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.Cart.GetCart(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toCart(lines))
}

func (h *Handler) handleUpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	it, err := h.svc.Cart.UpdateQuantity(r.Context(), actorOf(r), req.BookID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toCartItem(it))
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Cart.ClearCart(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "cart cleared", map[string]int64{"deletedCount": n})
}

func (h *Handler) handleCountCart(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Cart.CountCartItems(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, countDTO{Count: n})
}

func (h *Handler) handleSelectedCartItems(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.Cart.GetSelectedItems(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toCart(lines))
}

func (h *Handler) handleGetCartItem(w http.ResponseWriter, r *http.Request) {
	line, err := h.svc.Cart.GetCartItem(r.Context(), actorOf(r), r.PathValue("bookId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toCartLine(line))
}

func (h *Handler) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cart.RemoveFromCart(r.Context(), actorOf(r), r.PathValue("bookId")); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "removed from cart", nil)
}

func (h *Handler) handleToggleSelect(w http.ResponseWriter, r *http.Request) {
	it, err := h.svc.Cart.ToggleSelect(r.Context(), actorOf(r), r.PathValue("bookId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toCartItem(it))
}

type selectionRequest struct {
	BookID     string `json:"bookId" validate:"required"`
	IsSelected *bool  `json:"isSelected" validate:"required"`
}

func (h *Handler) handleUpdateSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	it, err := h.svc.Cart.SetSelection(r.Context(), actorOf(r), req.BookID, *req.IsSelected)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toCartItem(it))
}

func (h *Handler) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Cart.SelectAll(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]int64{"modifiedCount": n})
}

func (h *Handler) handleDeselectAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Cart.DeselectAll(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]int64{"modifiedCount": n})
}

type bookIDRequest struct {
	BookID string `json:"bookId" validate:"required"`
}

type bookIDsRequest struct {
	BookIDs []string `json:"bookIds" validate:"required,min=1,max=100,dive,required"`
}

func (h *Handler) handleAddToWishlist(w http.ResponseWriter, r *http.Request) {
	var req bookIDRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	it, err := h.svc.Wishlist.AddToWishlist(r.Context(), actorOf(r), req.BookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "added to wishlist", toWishlistItem(it))
}

func (h *Handler) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Wishlist.GetWishlist(r.Context(), actorOf(r), listQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, pageOf(res, toWishlistEntry))
}

func (h *Handler) handleClearWishlist(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Wishlist.ClearWishlist(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "wishlist cleared", map[string]int64{"deletedCount": n})
}

func (h *Handler) handleCountWishlist(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Wishlist.CountWishlist(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, countDTO{Count: n})
}

func (h *Handler) handleCheckWishlist(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.Wishlist.IsInWishlist(r.Context(), actorOf(r), r.PathValue("bookId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]bool{"isInWishlist": ok})
}

func (h *Handler) handleRemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Wishlist.RemoveFromWishlist(r.Context(), actorOf(r), r.PathValue("bookId")); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "removed from wishlist", nil)
}

func (h *Handler) handleMoveToCart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Wishlist.MoveToCart(r.Context(), actorOf(r), r.PathValue("bookId")); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "moved to cart", nil)
}

func (h *Handler) handleBulkMoveToCart(w http.ResponseWriter, r *http.Request) {
	var req bookIDsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Wishlist.BulkMoveToCart(r.Context(), actorOf(r), req.BookIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toBulkMove(res))
}

func (h *Handler) handleBulkRemove(w http.ResponseWriter, r *http.Request) {
	var req bookIDsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Wishlist.BulkRemove(r.Context(), actorOf(r), req.BookIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]int64{"deletedCount": res.DeletedCount, "requestedCount": int64(res.RequestedCount)})
}
