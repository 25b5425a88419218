package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/ray-remotestate/canteen/cart"
	"github.com/ray-remotestate/canteen/utils"
)

var tooMany = fmt.Sprintf("quantity must not exceed %d", cart.MaxLineQuantity)

type cartItemRequest struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.Carts.View(r.Context(), principal(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

// AddToCart adds quantity (default one) of an item.
func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := utils.DecodeJSON(r, &req); err != nil || req.ItemID == uuid.Nil {
		utils.RespondError(w, http.StatusBadRequest, "item_id is required")
		return
	}
	if req.Quantity > cart.MaxLineQuantity {
		utils.RespondError(w, http.StatusBadRequest, tooMany)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	view, err := h.Carts.Add(r.Context(), principal(r), req.ItemID, req.Quantity)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Quantity > cart.MaxLineQuantity {
		utils.RespondError(w, http.StatusBadRequest, tooMany)
		return
	}

	view, err := h.Carts.Update(r.Context(), principal(r), id, req.Quantity)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	view, err := h.Carts.Remove(r.Context(), principal(r), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.Carts.Clear(r.Context(), principal(r)); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
