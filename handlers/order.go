package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/ray-remotestate/canteen/models"
	"github.com/ray-remotestate/canteen/utils"
	"github.com/ray-remotestate/canteen/workflow"
)

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Instructions string `json:"instructions"`
	}
	// an empty body is a plain checkout
	if err := utils.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request")
		return
	}

	order, err := h.Orders.PlaceOrder(r.Context(), principal(r), req.Instructions)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, order)
}

func (h *Handlers) MyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Orders.ListMine(r.Context(), principal(r))
	h.respondOrders(w, r, orders, err)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.Orders.Get(r.Context(), principal(r), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, order)
}

func (h *Handlers) OrderActions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	actions, err := h.Orders.NextActions(r.Context(), principal(r), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if actions == nil {
		actions = []workflow.Action{}
	}
	utils.RespondJSON(w, http.StatusOK, actions)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.Orders.Cancel(r.Context(), principal(r), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, order)
}

// ListOrders is the admin view, optionally filtered by ?status= and ?user_id=.
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	var status models.OrderStatus
	if v := r.URL.Query().Get("status"); v != "" {
		parsed, ok := models.ParseStatus(v)
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "unknown status")
			return
		}
		status = parsed
	}
	var userID uuid.UUID
	if v := r.URL.Query().Get("user_id"); v != "" {
		parsed, err := uuid.Parse(v)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		userID = parsed
	}
	orders, err := h.Orders.ListAll(r.Context(), principal(r), status, userID)
	h.respondOrders(w, r, orders, err)
}

func (h *Handlers) TodayOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Orders.ListToday(r.Context(), principal(r))
	h.respondOrders(w, r, orders, err)
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request")
		return
	}
	target, ok := models.ParseStatus(req.Status)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "unknown status")
		return
	}

	order, err := h.Orders.Transition(r.Context(), principal(r), id, target)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, order)
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Orders.Stats(r.Context(), principal(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, stats)
}

func (h *Handlers) respondOrders(w http.ResponseWriter, r *http.Request, orders []models.Order, err error) {
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	utils.RespondJSON(w, http.StatusOK, orders)
}
