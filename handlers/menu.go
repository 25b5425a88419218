package handlers

import (
	"net/http"
	"strconv"

	"github.com/ray-remotestate/canteen/models"
	"github.com/ray-remotestate/canteen/services"
	"github.com/ray-remotestate/canteen/utils"
)

// ListMenu supports ?category=, ?q= and ?available=true.
func (h *Handlers) ListMenu(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.MenuFilter{
		Category: models.Category(q.Get("category")),
		Query:    q.Get("q"),
	}
	if v := q.Get("available"); v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "available must be true or false")
			return
		}
		f.AvailableOnly = available
	}

	items, err := h.Menu.List(r.Context(), principal(r), f)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if items == nil {
		items = []models.MenuItem{}
	}
	utils.RespondJSON(w, http.StatusOK, items)
}

func (h *Handlers) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "invalid menu item id")
		return
	}
	item, err := h.Menu.Get(r.Context(), principal(r), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.Menu.Categories())
}

func (h *Handlers) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var in services.MenuItemInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request")
		return
	}
	item, err := h.Menu.Create(r.Context(), principal(r), in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, item)
}

func (h *Handlers) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "invalid menu item id")
		return
	}
	var in services.MenuItemInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request")
		return
	}
	item, err := h.Menu.Update(r.Context(), principal(r), id, in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}

func (h *Handlers) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "invalid menu item id")
		return
	}
	if err := h.Menu.Delete(r.Context(), principal(r), id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ToggleAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "invalid menu item id")
		return
	}
	item, err := h.Menu.ToggleAvailability(r.Context(), principal(r), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}
